package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// PostgresRepository reads tenant configuration from TenantStore and writes placeholders through BookingStore.
type PostgresRepository struct {
	tenants  *persistence.TenantStore
	bookings *persistence.BookingStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(tenants *persistence.TenantStore, bookings *persistence.BookingStore) *PostgresRepository {
	if tenants == nil || bookings == nil {
		panic("tenant and booking stores are required")
	}
	return &PostgresRepository{tenants: tenants, bookings: bookings}
}

func (r *PostgresRepository) TenantConfig(ctx context.Context, id uuid.UUID) (service.TenantConfig, error) {
	rec, err := r.tenants.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrTenantNotFound) {
			return service.TenantConfig{}, service.ErrTenantNotFound
		}
		return service.TenantConfig{}, err
	}

	hours, err := r.tenants.BusinessHours(ctx, tenant.ForTenant(id))
	if err != nil {
		return service.TenantConfig{}, err
	}

	rules := make(service.Rules, len(hours))
	for _, h := range hours {
		rules[time.Weekday(h.Weekday)] = service.Rule{Sunrise: h.SunriseSlots, Dusk: h.DuskSlots}
	}

	return service.TenantConfig{
		ID:        rec.TenantID,
		Timezone:  rec.Timezone,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Rules:     rules,
	}, nil
}

func (r *PostgresRepository) ReplacePlaceholders(ctx context.Context, id uuid.UUID, from, fromDate time.Time, slots []service.Slot) (int64, int64, error) {
	records := make([]persistence.PlaceholderRecord, 0, len(slots))
	for _, s := range slots {
		records = append(records, persistence.PlaceholderRecord{
			StartAt:     s.StartAt,
			EndAt:       s.EndAt,
			SlotType:    s.Type,
			SlotDate:    s.Date,
			SlotOrdinal: s.Ordinal,
			Title:       s.Title,
		})
	}
	return r.bookings.ReplacePlaceholders(ctx, tenant.ForTenant(id), from, fromDate, records)
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
