package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// PostgresRepository implements the tenant repository using the shared persistence layer.
type PostgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by TenantStore.
func NewPostgresRepository(store *persistence.TenantStore) *PostgresRepository {
	if store == nil {
		panic("tenant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	rows, total, err := r.store.List(ctx, size, offset)
	if err != nil {
		return service.ListResult{}, err
	}

	tenants := make([]service.Tenant, 0, len(rows))
	for _, rec := range rows {
		tenants = append(tenants, toServiceTenant(rec))
	}

	totalPages := (total + size - 1) / size
	return service.ListResult{Tenants: tenants, Page: page, PageSize: size, TotalItems: total, TotalPages: totalPages}, nil
}

func (r *PostgresRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.store.ListIDs(ctx)
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	out, err := r.store.Create(ctx, persistence.TenantRecord{
		TenantID:    t.ID,
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Timezone:    t.Timezone,
		Latitude:    t.Latitude,
		Longitude:   t.Longitude,
	})
	if err != nil {
		return service.Tenant{}, mapError(err)
	}
	return toServiceTenant(out), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return service.Tenant{}, mapError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (service.Tenant, error) {
	rec, err := r.store.GetBySlug(ctx, slug)
	if err != nil {
		return service.Tenant{}, mapError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, input service.UpdateInput) (service.Tenant, error) {
	rec, err := r.store.Update(ctx, id, persistence.UpdateTenantParams{
		DisplayName: input.DisplayName,
		Timezone:    input.Timezone,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	})
	if err != nil {
		return service.Tenant{}, mapError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) BusinessHours(ctx context.Context, id uuid.UUID) ([]service.BusinessHoursRule, error) {
	records, err := r.store.BusinessHours(ctx, tenant.ForTenant(id))
	if err != nil {
		return nil, mapError(err)
	}

	rules := make([]service.BusinessHoursRule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, service.BusinessHoursRule{
			Weekday:      time.Weekday(rec.Weekday),
			SunriseSlots: rec.SunriseSlots,
			DuskSlots:    rec.DuskSlots,
		})
	}
	return rules, nil
}

func (r *PostgresRepository) ReplaceBusinessHours(ctx context.Context, id uuid.UUID, rules []service.BusinessHoursRule) error {
	records := make([]persistence.BusinessHoursRecord, 0, len(rules))
	for _, rule := range rules {
		records = append(records, persistence.BusinessHoursRecord{
			Weekday:      int(rule.Weekday),
			SunriseSlots: rule.SunriseSlots,
			DuskSlots:    rule.DuskSlots,
		})
	}
	return mapError(r.store.ReplaceBusinessHours(ctx, tenant.ForTenant(id), records))
}

func toServiceTenant(rec persistence.TenantRecord) service.Tenant {
	return service.Tenant{
		ID:          rec.TenantID,
		Slug:        rec.Slug,
		DisplayName: rec.DisplayName,
		Timezone:    rec.Timezone,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrTenantNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrTenantConflict):
		return service.ErrConflictSlug
	default:
		return err
	}
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
