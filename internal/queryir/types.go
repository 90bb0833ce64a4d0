package queryir

import (
	"github.com/roach88/reelfeed/internal/model"
)

// Query is an abstract query. Sealed.
type Query interface {
	queryNode()
}

// Predicate is a filter condition. Sealed.
type Predicate interface {
	predicateNode()
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Direction Direction
}

// Select reads Columns from a table.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order> LIMIT <limit> OFFSET <offset>
//
// An empty OrderBy gets the backend's stable default (id ascending), so
// results are always deterministic. Limit 0 means no limit.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []Order
	Limit   int
	Offset  int
}

func (Select) queryNode() {}

// Equals is field = value.
type Equals struct {
	Field string
	Value model.Value
}

func (Equals) predicateNode() {}

// Contains matches rows whose case-folded field contains Needle.
// Needle must already be normalized (see model.NormalizeSearch).
type Contains struct {
	Field  string
	Needle string
}

func (Contains) predicateNode() {}

// AtLeast is field >= Value.
type AtLeast struct {
	Field string
	Value int64
}

func (AtLeast) predicateNode() {}

// AtMost is field <= Value.
type AtMost struct {
	Field string
	Value int64
}

func (AtMost) predicateNode() {}

// And is a conjunction. Empty is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
