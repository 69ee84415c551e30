package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// Repository defines the persistence operations required by the bookings service.
// Every call names the tenant scope it runs under.
type Repository interface {
	Upsert(ctx context.Context, scope tenant.Scope, params persistence.UpsertBookingParams) (persistence.BookingDetail, error)
	SoftDelete(ctx context.Context, scope tenant.Scope, id uuid.UUID, actor string) error
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (persistence.BookingDetail, error)
	ListInRange(ctx context.Context, scope tenant.Scope, start, end time.Time) ([]persistence.BookingDetail, error)
	CountByStatus(ctx context.Context, scope tenant.Scope, start, end time.Time) (map[string]int64, error)
}

type postgresRepository struct {
	store *persistence.BookingStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.BookingStore) Repository {
	if store == nil {
		panic("booking store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Upsert(ctx context.Context, scope tenant.Scope, params persistence.UpsertBookingParams) (persistence.BookingDetail, error) {
	return r.store.Upsert(ctx, scope, params)
}

func (r *postgresRepository) SoftDelete(ctx context.Context, scope tenant.Scope, id uuid.UUID, actor string) error {
	return r.store.SoftDelete(ctx, scope, id, actor)
}

func (r *postgresRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (persistence.BookingDetail, error) {
	return r.store.Get(ctx, scope, id)
}

func (r *postgresRepository) ListInRange(ctx context.Context, scope tenant.Scope, start, end time.Time) ([]persistence.BookingDetail, error) {
	return r.store.ListInRange(ctx, scope, start, end)
}

func (r *postgresRepository) CountByStatus(ctx context.Context, scope tenant.Scope, start, end time.Time) (map[string]int64, error) {
	return r.store.CountByStatus(ctx, scope, start, end)
}
