package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// Kind names a tenant-owned table.
type Kind string

const (
	KindBookings      Kind = "bookings"
	KindAssignments   Kind = "booking_assignments"
	KindContacts      Kind = "contacts"
	KindProperties    Kind = "properties"
	KindBusinessHours Kind = "business_hours"
)

// scopedKinds is the closed set of tables reachable through a ScopedTable.
var scopedKinds = map[Kind]struct{}{
	KindBookings:      {},
	KindAssignments:   {},
	KindContacts:      {},
	KindProperties:    {},
	KindBusinessHours: {},
}

const tenantColumn = "tenant_id"

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnSources []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ScopeGuard hands out table handles that always carry the caller's tenant predicate.
type ScopeGuard struct {
	db DBTX
}

// NewScopeGuard wraps a pool, connection or transaction.
func NewScopeGuard(db DBTX) *ScopeGuard {
	if db == nil {
		panic("ScopeGuard requires db")
	}
	return &ScopeGuard{db: db}
}

// Table returns a handle for kind restricted to scope.
// It fails closed when the scope carries neither a tenant nor an explicit cross-tenant mode.
func (g *ScopeGuard) Table(scope tenant.Scope, kind Kind) (*ScopedTable, error) {
	if _, ok := scopedKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnscopedKind, kind)
	}
	if !scope.IsResolved() && !scope.IsCrossTenant() {
		return nil, ErrTenantScopeRequired
	}
	return &ScopedTable{db: g.db, kind: kind, scope: scope}, nil
}

// ScopedTable executes statements against one tenant-owned table.
type ScopedTable struct {
	db    DBTX
	kind  Kind
	scope tenant.Scope
}

// Payload is the input of a single-row create.
// The owning tenant may be given in relation form (TenantRef) or as the bare
// tenant_id scalar inside Values; both are normalized to the relation form.
type Payload struct {
	Values    map[string]any
	TenantRef *uuid.UUID
}

func (t *ScopedTable) ident() string {
	return pgx.Identifier{string(t.kind)}.Sanitize()
}

// where renders the effective predicate. In single-tenant mode the tenant
// comparison always occupies the first placeholder and wraps the caller filter.
func (t *ScopedTable) where(f *Filter, start int) (string, []any, error) {
	if err := f.Err(); err != nil {
		return "", nil, err
	}

	if t.scope.IsCrossTenant() {
		sql, args := f.render(start)
		return sql, args, nil
	}

	rest, args := f.render(start + 1)
	sql := fmt.Sprintf("%s = $%d AND (%s)", pgx.Identifier{tenantColumn}.Sanitize(), start, rest)
	return sql, append([]any{t.scope.TenantID}, args...), nil
}

// Select runs SELECT columns FROM table WHERE <effective predicate> tail.
// columns and tail are trusted SQL fragments owned by the calling store.
func (t *ScopedTable) Select(ctx context.Context, columns string, f *Filter, tail string) (pgx.Rows, error) {
	where, args, err := t.where(f, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s %s", columns, t.ident(), where, tail)
	return t.db.Query(ctx, strings.TrimSpace(query), args...)
}

// Count returns the number of rows matching f inside the scope.
func (t *ScopedTable) Count(ctx context.Context, f *Filter) (int64, error) {
	where, args, err := t.where(f, 1)
	if err != nil {
		return 0, err
	}
	var total int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.ident(), where)
	if err := t.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.kind, err)
	}
	return total, nil
}

// normalizeCreate resolves the owning tenant of a single-row payload.
func (t *ScopedTable) normalizeCreate(p Payload) (Payload, error) {
	values := make(map[string]any, len(p.Values))
	var scalar *uuid.UUID
	for k, v := range p.Values {
		if k != tenantColumn {
			values[k] = v
			continue
		}
		id, ok := asUUID(v)
		if !ok {
			return Payload{}, crossTenantError("tenant_id is not a uuid")
		}
		scalar = &id
	}

	ref := p.TenantRef
	if ref == nil {
		ref = scalar
	} else if scalar != nil && *scalar != *ref {
		return Payload{}, crossTenantError("tenant_id disagrees with tenant relation")
	}

	if t.scope.IsCrossTenant() {
		if ref == nil {
			return Payload{}, ErrTenantScopeRequired
		}
		return Payload{Values: values, TenantRef: ref}, nil
	}

	if ref != nil && *ref != t.scope.TenantID {
		return Payload{}, crossTenantError("create")
	}
	id := t.scope.TenantID
	return Payload{Values: values, TenantRef: &id}, nil
}

// Insert creates one row. The tenant is connected through the tenants registry so
// a missing tenant fails the insert instead of producing an orphan row.
func (t *ScopedTable) Insert(ctx context.Context, p Payload, returning string) (pgx.Row, error) {
	normalized, err := t.normalizeCreate(p)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(normalized.Values))
	for col := range normalized.Values {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	idents := []string{pgx.Identifier{tenantColumn}.Sanitize()}
	placeholders := []string{fmt.Sprintf("(SELECT t.tenant_id FROM %s t WHERE t.tenant_id = $1)", TenantsTable)}
	args := []any{*normalized.TenantRef}
	for i, raw := range columns {
		col, err := normalizeIdentifier(raw)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", t.kind, err)
		}
		idents = append(idents, pgx.Identifier{col}.Sanitize())
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, normalized.Values[raw])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.ident(), strings.Join(idents, ", "), strings.Join(placeholders, ", "))
	if returning != "" {
		query += " RETURNING " + returning
	}

	return t.db.QueryRow(ctx, query, args...), nil
}

// InsertMany bulk-loads rows with the COPY protocol. COPY cannot resolve the
// tenant relation, so the tenant_id scalar is injected into every row.
// columns must not include tenant_id unless the scope is cross-tenant.
func (t *ScopedTable) InsertMany(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tenantIdx := -1
	for i, raw := range columns {
		col, err := normalizeIdentifier(raw)
		if err != nil {
			return 0, fmt.Errorf("insert many %s: %w", t.kind, err)
		}
		if col == tenantColumn {
			tenantIdx = i
		}
	}

	if t.scope.IsCrossTenant() {
		if tenantIdx < 0 {
			return 0, ErrTenantScopeRequired
		}
		return t.db.CopyFrom(ctx, pgx.Identifier{string(t.kind)}, columns, pgx.CopyFromRows(rows))
	}

	cols := columns
	if tenantIdx < 0 {
		cols = append([]string{tenantColumn}, columns...)
	}

	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("insert many %s: row has %d values for %d columns", t.kind, len(row), len(columns))
		}
		if tenantIdx >= 0 {
			id, ok := asUUID(row[tenantIdx])
			if !ok || id != t.scope.TenantID {
				return 0, crossTenantError("bulk create")
			}
			out = append(out, row)
			continue
		}
		out = append(out, append([]any{t.scope.TenantID}, row...))
	}

	n, err := t.db.CopyFrom(ctx, pgx.Identifier{string(t.kind)}, cols, pgx.CopyFromRows(out))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", t.kind, err)
	}
	return n, nil
}

func (t *ScopedTable) updateSQL(f *Filter, set Assignments) (string, []any, error) {
	setSQL, setArgs, err := set.render(1)
	if err != nil {
		return "", nil, err
	}
	where, whereArgs, err := t.where(f, len(setArgs)+1)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", t.ident(), setSQL, where)
	return query, append(setArgs, whereArgs...), nil
}

// Update applies set to every row matching f inside the scope and returns the affected count.
func (t *ScopedTable) Update(ctx context.Context, f *Filter, set Assignments) (int64, error) {
	query, args, err := t.updateSQL(f, set)
	if err != nil {
		return 0, err
	}
	tag, err := t.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.kind, err)
	}
	return tag.RowsAffected(), nil
}

// UpdateReturning is Update for a single row, returning the selected columns.
func (t *ScopedTable) UpdateReturning(ctx context.Context, f *Filter, set Assignments, returning string) (pgx.Row, error) {
	query, args, err := t.updateSQL(f, set)
	if err != nil {
		return nil, err
	}
	return t.db.QueryRow(ctx, query+" RETURNING "+returning, args...), nil
}

// Delete removes every row matching f inside the scope and returns the affected count.
func (t *ScopedTable) Delete(ctx context.Context, f *Filter) (int64, error) {
	where, args, err := t.where(f, 1)
	if err != nil {
		return 0, err
	}
	tag, err := t.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", t.ident(), where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.kind, err)
	}
	return tag.RowsAffected(), nil
}

// mapInsertError converts integrity failures on the tenant relation into ErrTenantNotFound.
func mapInsertError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23502" && pgErr.ColumnName == tenantColumn {
		return ErrTenantNotFound
	}
	if isForeignKeyViolation(err) && strings.Contains(pgErr.ConstraintName, "tenant") {
		return ErrTenantNotFound
	}
	return err
}

func asUUID(v any) (uuid.UUID, bool) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, true
	case *uuid.UUID:
		if id == nil {
			return uuid.Nil, false
		}
		return *id, true
	case string:
		parsed, err := uuid.Parse(id)
		return parsed, err == nil
	default:
		return uuid.Nil, false
	}
}
