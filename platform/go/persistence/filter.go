package persistence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Filter is a conjunction of column predicates supplied by callers of a ScopedTable.
// It never contains the tenant predicate itself; the table adds that when rendering.
type Filter struct {
	conds []condition
	err   error
}

type condition struct {
	column string
	op     string
	arg    any
	hasArg bool
}

// Where starts an empty filter. A nil or empty filter matches every row of the scope.
func Where() *Filter {
	return &Filter{}
}

func (f *Filter) Eq(column string, v any) *Filter      { return f.add(column, "=", v, true) }
func (f *Filter) Ne(column string, v any) *Filter      { return f.add(column, "<>", v, true) }
func (f *Filter) Lt(column string, v any) *Filter      { return f.add(column, "<", v, true) }
func (f *Filter) Le(column string, v any) *Filter      { return f.add(column, "<=", v, true) }
func (f *Filter) Gt(column string, v any) *Filter      { return f.add(column, ">", v, true) }
func (f *Filter) Ge(column string, v any) *Filter      { return f.add(column, ">=", v, true) }
func (f *Filter) IsNull(column string) *Filter         { return f.add(column, "IS NULL", nil, false) }
func (f *Filter) NotNull(column string) *Filter        { return f.add(column, "IS NOT NULL", nil, false) }
func (f *Filter) In(column string, values any) *Filter { return f.add(column, "= ANY", values, true) }

func (f *Filter) add(column, op string, v any, hasArg bool) *Filter {
	if f.err != nil {
		return f
	}
	col, err := normalizeIdentifier(column)
	if err != nil {
		f.err = fmt.Errorf("filter: %w", err)
		return f
	}
	f.conds = append(f.conds, condition{column: col, op: op, arg: v, hasArg: hasArg})
	return f
}

// Err returns the first invalid column reported while building the filter.
func (f *Filter) Err() error {
	if f == nil {
		return nil
	}
	return f.err
}

// render returns the conjunction and its arguments, numbering placeholders from start.
func (f *Filter) render(start int) (string, []any) {
	if f == nil || len(f.conds) == 0 {
		return "TRUE", nil
	}

	parts := make([]string, 0, len(f.conds))
	args := make([]any, 0, len(f.conds))
	next := start
	for _, c := range f.conds {
		ident := pgx.Identifier{c.column}.Sanitize()
		switch {
		case !c.hasArg:
			parts = append(parts, fmt.Sprintf("%s %s", ident, c.op))
		case c.op == "= ANY":
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", ident, next))
			args = append(args, c.arg)
			next++
		default:
			parts = append(parts, fmt.Sprintf("%s %s $%d", ident, c.op, next))
			args = append(args, c.arg)
			next++
		}
	}

	return strings.Join(parts, " AND "), args
}

// Assignments maps columns to new values for updates.
type Assignments map[string]any

// render returns the SET list ordered by column name, numbering placeholders from start.
func (a Assignments) render(start int) (string, []any, error) {
	if len(a) == 0 {
		return "", nil, fmt.Errorf("no fields to update")
	}

	columns := make([]string, 0, len(a))
	for col := range a {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	parts := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for i, raw := range columns {
		col, err := normalizeIdentifier(raw)
		if err != nil {
			return "", nil, fmt.Errorf("assignments: %w", err)
		}
		if col == tenantColumn {
			return "", nil, crossTenantError("update assigns tenant_id")
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), start+i))
		args = append(args, a[raw])
	}

	return strings.Join(parts, ", "), args, nil
}
