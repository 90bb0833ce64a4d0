// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/queryir"
)

// FoldFunc is the SQL function that case-folds text the same way
// model.NormalizeSearch does. The store registers it on every connection.
const FoldFunc = "casefold"

// SQLCompiler compiles queryir to SQL for SQLite.
//
// CRITICAL: every query has an ORDER BY; a select without one gets
// "id COLLATE BINARY ASC".
// CRITICAL: values are always "?" parameters, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a compiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile returns the SQL text and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.Columns, ", "), q.From)

	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = append(params, whereParams...)
	}

	b.WriteString(" ORDER BY " + stableOrder(q.OrderBy))

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
		if q.Offset > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, q.Offset)
		}
	} else if q.Offset > 0 {
		b.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, q.Offset)
	}

	return b.String(), params, nil
}

// stableOrder renders ORDER BY terms. Text ordering uses COLLATE BINARY
// on the id so results do not depend on the connection's collation.
func stableOrder(orders []queryir.Order) string {
	if len(orders) == 0 {
		return "id COLLATE BINARY ASC"
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		if o.Field == "id" {
			parts[i] = fmt.Sprintf("id COLLATE BINARY %s", o.Direction)
			continue
		}
		parts[i] = fmt.Sprintf("%s %s", o.Field, o.Direction)
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", pred.Field, err)
		}
		return pred.Field + " = ?", []any{param}, nil
	case queryir.Contains:
		if pred.Needle == "" {
			return "1 = 1", nil, nil
		}
		sql := fmt.Sprintf(`%s(%s) LIKE ? ESCAPE '\'`, FoldFunc, pred.Field)
		return sql, []any{"%" + escapeLike(pred.Needle) + "%"}, nil
	case queryir.AtLeast:
		return pred.Field + " >= ?", []any{pred.Value}, nil
	case queryir.AtMost:
		return pred.Field + " <= ?", []any{pred.Value}, nil
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// escapeLike escapes LIKE wildcards so the needle matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func valueToParam(v model.Value) (any, error) {
	switch val := v.(type) {
	case model.String:
		return string(val), nil
	case model.Int:
		return int64(val), nil
	case model.Bool:
		return bool(val), nil
	case model.Null:
		return nil, fmt.Errorf("NULL comparison is not supported")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
