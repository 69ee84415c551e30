package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// MemoryRepository is an in-memory Repository for tests and local development.
// It applies the same scope rules as the pgx stores.
type MemoryRepository struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]persistence.BookingDetail
	now   func() time.Time
	reads int
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows: make(map[uuid.UUID]persistence.BookingDetail),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Seed stores detail as-is, bypassing scope checks. Intended for test fixtures.
func (r *MemoryRepository) Seed(detail persistence.BookingDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[detail.BookingID] = detail
}

// RangeReads reports how many ListInRange calls reached the repository.
func (r *MemoryRepository) RangeReads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reads
}

func (r *MemoryRepository) Upsert(_ context.Context, scope tenant.Scope, params persistence.UpsertBookingParams) (persistence.BookingDetail, error) {
	if !scope.IsResolved() {
		return persistence.BookingDetail{}, persistence.ErrTenantScopeRequired
	}
	if params.BookingID == uuid.Nil {
		params.BookingID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	existing, ok := r.rows[params.BookingID]
	if ok && (existing.TenantID != scope.TenantID || existing.DeletedAt != nil) {
		return persistence.BookingDetail{}, persistence.ErrBookingConflict
	}

	rec := persistence.BookingRecord{
		BookingID:  params.BookingID,
		TenantID:   scope.TenantID,
		StartAt:    params.StartAt,
		EndAt:      params.EndAt,
		Status:     params.Status,
		ClientID:   params.ClientID,
		AgentID:    params.AgentID,
		PropertyID: params.PropertyID,
		Title:      params.Title,
		Notes:      params.Notes,
		Services:   append([]string{}, params.Services...),
		CreatedBy:  params.Actor,
		UpdatedBy:  params.Actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ok {
		rec.CreatedBy = existing.CreatedBy
		rec.CreatedAt = existing.CreatedAt
	}

	detail := persistence.BookingDetail{BookingRecord: rec, Assignments: []persistence.CrewAssignment{}}
	seen := make(map[uuid.UUID]struct{}, len(params.CrewIDs))
	for _, id := range params.CrewIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		detail.Assignments = append(detail.Assignments, persistence.CrewAssignment{CrewMemberID: id})
	}

	r.rows[rec.BookingID] = detail
	return detail, nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, scope tenant.Scope, id uuid.UUID, actor string) error {
	if !scope.IsResolved() {
		return persistence.ErrTenantScopeRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	detail, ok := r.rows[id]
	if !ok || detail.TenantID != scope.TenantID || detail.DeletedAt != nil {
		return persistence.ErrBookingNotFound
	}
	now := r.now()
	detail.Status = "CANCELLED"
	detail.DeletedAt = &now
	detail.UpdatedAt = now
	detail.UpdatedBy = actor
	r.rows[id] = detail
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, scope tenant.Scope, id uuid.UUID) (persistence.BookingDetail, error) {
	if !scope.IsResolved() && !scope.IsCrossTenant() {
		return persistence.BookingDetail{}, persistence.ErrTenantScopeRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	detail, ok := r.rows[id]
	if !ok || detail.DeletedAt != nil || (!scope.IsCrossTenant() && detail.TenantID != scope.TenantID) {
		return persistence.BookingDetail{}, persistence.ErrBookingNotFound
	}
	return detail, nil
}

func (r *MemoryRepository) ListInRange(_ context.Context, scope tenant.Scope, start, end time.Time) ([]persistence.BookingDetail, error) {
	if !scope.IsResolved() {
		return nil, persistence.ErrTenantScopeRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++

	out := make([]persistence.BookingDetail, 0)
	for _, d := range r.rows {
		if d.TenantID != scope.TenantID || d.DeletedAt != nil {
			continue
		}
		if d.StartAt.Before(end) && d.EndAt.After(start) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].BookingID.String() < out[j].BookingID.String()
	})
	return out, nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, scope tenant.Scope, start, end time.Time) (map[string]int64, error) {
	if !scope.IsResolved() && !scope.IsCrossTenant() {
		return nil, persistence.ErrTenantScopeRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64)
	for _, d := range r.rows {
		if !scope.IsCrossTenant() && d.TenantID != scope.TenantID {
			continue
		}
		if d.DeletedAt == nil && d.StartAt.Before(end) && d.EndAt.After(start) {
			out[d.Status]++
		}
	}
	return out, nil
}
