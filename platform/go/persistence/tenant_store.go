package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// TenantsTable is the tenant registry. It is not tenant-scoped.
const TenantsTable = "tenants"

const tenantColumns = `tenant_id, slug, display_name, timezone, latitude, longitude, created_at, updated_at`

// TenantRecord represents a row of the tenant registry.
type TenantRecord struct {
	TenantID    uuid.UUID `db:"tenant_id"`
	Slug        string    `db:"slug"`
	DisplayName string    `db:"display_name"`
	Timezone    string    `db:"timezone"`
	Latitude    float64   `db:"latitude"`
	Longitude   float64   `db:"longitude"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// BusinessHoursRecord is the placeholder rule for one weekday (0 = Sunday).
type BusinessHoursRecord struct {
	Weekday      int `db:"weekday"`
	SunriseSlots int `db:"sunrise_slots"`
	DuskSlots    int `db:"dusk_slots"`
}

// UpdateTenantParams carries the editable tenant fields; nil fields are left unchanged.
type UpdateTenantParams struct {
	DisplayName *string
	Timezone    *string
	Latitude    *float64
	Longitude   *float64
}

// TenantStore provides access to the tenant registry and the tenant-scoped business hours.
type TenantStore struct {
	db    Database
	guard *ScopeGuard
}

// NewTenantStore creates a store; assumes BootstrapSchema already created the tables.
func NewTenantStore(db Database) (*TenantStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &TenantStore{db: db, guard: NewScopeGuard(db)}, nil
}

// Create inserts a tenant.
func (s *TenantStore) Create(ctx context.Context, rec TenantRecord) (TenantRecord, error) {
	if rec.TenantID == uuid.Nil {
		return TenantRecord{}, errors.New("tenant id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (tenant_id, slug, display_name, timezone, latitude, longitude)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s
    `, TenantsTable, tenantColumns)

	out, err := scanTenantRecord(s.db.QueryRow(ctx, query,
		rec.TenantID, rec.Slug, strings.TrimSpace(rec.DisplayName), rec.Timezone, rec.Latitude, rec.Longitude,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return TenantRecord{}, ErrTenantConflict
		}
		return TenantRecord{}, err
	}
	return out, nil
}

// Get fetches a tenant by id.
func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1`, tenantColumns, TenantsTable)
	return scanTenantRecord(s.db.QueryRow(ctx, query, id))
}

// GetBySlug fetches a tenant by slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug = $1`, tenantColumns, TenantsTable)
	return scanTenantRecord(s.db.QueryRow(ctx, query, slug))
}

// List returns tenants ordered by creation time with the total count.
func (s *TenantStore) List(ctx context.Context, limit, offset int) ([]TenantRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", TenantsTable)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, tenant_id LIMIT $1 OFFSET $2`, tenantColumns, TenantsTable)
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	records := make([]TenantRecord, 0)
	for rows.Next() {
		rec, err := scanTenantRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tenants: %w", err)
	}

	return records, total, nil
}

// ListIDs returns every tenant id; used by the all-tenant scheduler run.
func (s *TenantStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT tenant_id FROM %s ORDER BY tenant_id`, TenantsTable))
	if err != nil {
		return nil, fmt.Errorf("list tenant ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// Update applies the provided fields and returns the updated tenant.
func (s *TenantStore) Update(ctx context.Context, id uuid.UUID, params UpdateTenantParams) (TenantRecord, error) {
	setParts := []string{}
	var args []any

	if params.DisplayName != nil {
		args = append(args, strings.TrimSpace(*params.DisplayName))
		setParts = append(setParts, fmt.Sprintf("display_name = $%d", len(args)))
	}
	if params.Timezone != nil {
		args = append(args, *params.Timezone)
		setParts = append(setParts, fmt.Sprintf("timezone = $%d", len(args)))
	}
	if params.Latitude != nil {
		args = append(args, *params.Latitude)
		setParts = append(setParts, fmt.Sprintf("latitude = $%d", len(args)))
	}
	if params.Longitude != nil {
		args = append(args, *params.Longitude)
		setParts = append(setParts, fmt.Sprintf("longitude = $%d", len(args)))
	}

	if len(setParts) == 0 {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE tenant_id = $%d
        RETURNING %s
    `, TenantsTable, strings.Join(setParts, ", "), len(args), tenantColumns)

	return scanTenantRecord(s.db.QueryRow(ctx, query, args...))
}

// BusinessHours returns the weekday rules of the scoped tenant ordered by weekday.
func (s *TenantStore) BusinessHours(ctx context.Context, scope tenant.Scope) ([]BusinessHoursRecord, error) {
	if scope.IsCrossTenant() {
		return nil, ErrTenantScopeRequired
	}
	table, err := s.guard.Table(scope, KindBusinessHours)
	if err != nil {
		return nil, err
	}

	rows, err := table.Select(ctx, "weekday, sunrise_slots, dusk_slots", nil, "ORDER BY weekday")
	if err != nil {
		return nil, fmt.Errorf("select business hours: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[BusinessHoursRecord])
}

// ReplaceBusinessHours swaps the full rule set of the scoped tenant atomically.
func (s *TenantStore) ReplaceBusinessHours(ctx context.Context, scope tenant.Scope, rules []BusinessHoursRecord) error {
	if scope.IsCrossTenant() {
		return ErrTenantScopeRequired
	}

	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		table, err := NewScopeGuard(tx).Table(scope, KindBusinessHours)
		if err != nil {
			return err
		}
		if _, err := table.Delete(ctx, nil); err != nil {
			return err
		}

		rows := make([][]any, 0, len(rules))
		for _, r := range rules {
			rows = append(rows, []any{int16(r.Weekday), int32(r.SunriseSlots), int32(r.DuskSlots)})
		}
		if _, err := table.InsertMany(ctx, []string{"weekday", "sunrise_slots", "dusk_slots"}, rows); err != nil {
			return mapInsertError(err)
		}
		return nil
	})
}

func scanTenantRecord(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	if err := row.Scan(&rec.TenantID, &rec.Slug, &rec.DisplayName, &rec.Timezone, &rec.Latitude, &rec.Longitude, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrTenantNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}
