package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
)

// MemoryRepository keeps tenant configuration and placeholders in memory for tests and local runs.
type MemoryRepository struct {
	mu           sync.Mutex
	configs      map[uuid.UUID]service.TenantConfig
	placeholders map[uuid.UUID][]service.Slot
	replaces     int
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		configs:      make(map[uuid.UUID]service.TenantConfig),
		placeholders: make(map[uuid.UUID][]service.Slot),
	}
}

// PutTenant registers or replaces a tenant configuration.
func (r *MemoryRepository) PutTenant(cfg service.TenantConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = cfg
}

// Seed stores placeholders as if written by an earlier run.
func (r *MemoryRepository) Seed(id uuid.UUID, slots ...service.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placeholders[id] = append(r.placeholders[id], slots...)
}

// Placeholders returns a copy of the tenant's placeholders.
func (r *MemoryRepository) Placeholders(id uuid.UUID) []service.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.Slot(nil), r.placeholders[id]...)
}

// Replaces returns how many times ReplacePlaceholders ran.
func (r *MemoryRepository) Replaces() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaces
}

func (r *MemoryRepository) TenantConfig(ctx context.Context, id uuid.UUID) (service.TenantConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[id]
	if !ok {
		return service.TenantConfig{}, service.ErrTenantNotFound
	}
	return cfg, nil
}

func (r *MemoryRepository) ReplacePlaceholders(ctx context.Context, id uuid.UUID, from, fromDate time.Time, slots []service.Slot) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[id]; !ok {
		return 0, 0, service.ErrTenantNotFound
	}
	r.replaces++

	kept := make([]service.Slot, 0, len(r.placeholders[id])+len(slots))
	var deleted int64
	for _, s := range r.placeholders[id] {
		if !s.StartAt.Before(from) || !s.Date.Before(fromDate) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	r.placeholders[id] = append(kept, slots...)
	return deleted, int64(len(slots)), nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
