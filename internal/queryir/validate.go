package queryir

import (
	"errors"
	"fmt"
	"regexp"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks that every identifier in q is safe to emit as SQL and
// that the paging bounds are sane. All problems are joined into one error.
func Validate(q Query) error {
	v := &validator{}
	v.query(q)
	return errors.Join(v.problems...)
}

type validator struct {
	problems []error
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !identifier.MatchString(name) {
		v.addf("invalid %s %q", kind, name)
	}
}

func (v *validator) query(q Query) {
	switch q := q.(type) {
	case nil:
		v.addf("nil query")
	case Select:
		v.selectQuery(q)
	case *Select:
		v.selectQuery(*q)
	default:
		v.addf("unknown query type %T", q)
	}
}

func (v *validator) selectQuery(s Select) {
	v.ident("table", s.From)
	if len(s.Columns) == 0 {
		v.addf("select from %s has no columns", s.From)
	}
	for _, c := range s.Columns {
		v.ident("column", c)
	}
	for _, o := range s.OrderBy {
		v.ident("order field", o.Field)
		if o.Direction != Asc && o.Direction != Desc {
			v.addf("invalid direction %q for %s", o.Direction, o.Field)
		}
	}
	if s.Limit < 0 {
		v.addf("negative limit %d", s.Limit)
	}
	if s.Offset < 0 {
		v.addf("negative offset %d", s.Offset)
	}
	if s.Filter != nil {
		v.predicate(s.Filter)
	}
}

func (v *validator) predicate(p Predicate) {
	switch p := p.(type) {
	case Equals:
		v.ident("field", p.Field)
		if p.Value == nil {
			v.addf("field %s compared to nil value", p.Field)
		}
	case Contains:
		v.ident("field", p.Field)
	case AtLeast:
		v.ident("field", p.Field)
	case AtMost:
		v.ident("field", p.Field)
	case And:
		for _, sub := range p.Predicates {
			v.predicate(sub)
		}
	case nil:
	default:
		v.addf("unknown predicate type %T", p)
	}
}
