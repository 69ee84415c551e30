package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/studio-scheduler/domains/bookings/be/repo"
	"github.com/zenGate-Global/studio-scheduler/domains/bookings/be/visibility"
	"github.com/zenGate-Global/studio-scheduler/platform/go/cache"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/requesttrace"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound  = errors.New("booking not found")
	ErrConflict  = errors.New("booking conflict")
	ErrForbidden = errors.New("operation not permitted for viewer")
)

const maxTitleLength = 200

var storedStatuses = map[string]struct{}{
	visibility.StatusRequested: {},
	visibility.StatusApproved:  {},
	visibility.StatusCompleted: {},
	visibility.StatusCancelled: {},
	visibility.StatusBlocked:   {},
}

// UpsertInput is a real booking write. A nil ID creates a new booking.
type UpsertInput struct {
	ID         *uuid.UUID
	StartAt    time.Time
	EndAt      time.Time
	Status     string
	ClientID   *uuid.UUID
	AgentID    *uuid.UUID
	PropertyID *uuid.UUID
	Title      string
	Notes      string
	Services   []string
	CrewIDs    []uuid.UUID
}

// Service defines the business operations for the bookings domain.
// Reads return projections already redacted for the viewer.
type Service interface {
	Upsert(ctx context.Context, v viewer.Viewer, input UpsertInput) (visibility.Projection, error)
	SoftDelete(ctx context.Context, v viewer.Viewer, id uuid.UUID) error
	Get(ctx context.Context, v viewer.Viewer, id uuid.UUID) (visibility.Projection, error)
	ListRange(ctx context.Context, v viewer.Viewer, r Range) ([]visibility.Projection, error)
	ListRangeLite(ctx context.Context, v viewer.Viewer, r Range) ([]visibility.LiteProjection, error)
	CountByStatus(ctx context.Context, v viewer.Viewer, r Range) (map[string]int64, error)
}

// Config tunes the range cache.
type Config struct {
	RangeTTL time.Duration
}

type service struct {
	repo   repo.Repository
	ranges *RangeReader
	cache  cache.Cache
	logger *zap.Logger
}

// New constructs a bookings Service. A nil cache disables range caching.
func New(r repo.Repository, c cache.Cache, cfg Config, logger *zap.Logger) Service {
	if r == nil {
		panic("bookings repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:   r,
		ranges: NewRangeReader(r, c, cfg.RangeTTL, logger),
		cache:  c,
		logger: logger,
	}
}

func (s *service) Upsert(ctx context.Context, v viewer.Viewer, input UpsertInput) (visibility.Projection, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return visibility.Projection{}, err
	}
	if err := authorizeWrite(v, &input); err != nil {
		return visibility.Projection{}, err
	}

	params, err := buildUpsertParams(input)
	if err != nil {
		return visibility.Projection{}, err
	}
	params.Actor = requesttrace.FromContextOrAnonymous(ctx).Actor()

	detail, err := s.repo.Upsert(ctx, scope, params)
	if err != nil {
		return visibility.Projection{}, mapPersistenceError(err)
	}

	s.invalidate(ctx, scope)
	return visibility.Redact(v, FromDetail(detail)), nil
}

func (s *service) SoftDelete(ctx context.Context, v viewer.Viewer, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	if !canManage(v) {
		return ErrForbidden
	}

	actor := requesttrace.FromContextOrAnonymous(ctx).Actor()
	if err := s.repo.SoftDelete(ctx, scope, id, actor); err != nil {
		return mapPersistenceError(err)
	}

	s.invalidate(ctx, scope)
	return nil
}

func (s *service) Get(ctx context.Context, v viewer.Viewer, id uuid.UUID) (visibility.Projection, error) {
	if id == uuid.Nil {
		return visibility.Projection{}, ErrNotFound
	}
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return visibility.Projection{}, err
	}

	detail, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return visibility.Projection{}, mapPersistenceError(err)
	}
	return visibility.Redact(v, FromDetail(detail)), nil
}

func (s *service) ListRange(ctx context.Context, v viewer.Viewer, r Range) ([]visibility.Projection, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.ranges.Read(ctx, scope, v, r)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return out, nil
}

func (s *service) ListRangeLite(ctx context.Context, v viewer.Viewer, r Range) ([]visibility.LiteProjection, error) {
	full, err := s.ListRange(ctx, v, r)
	if err != nil {
		return nil, err
	}
	out := make([]visibility.LiteProjection, 0, len(full))
	for _, p := range full {
		out = append(out, p.Lite())
	}
	return out, nil
}

// CountByStatus aggregates live bookings per stored status. It reveals workload
// the viewer may not own, so it is restricted to managing viewers; a cross-tenant
// scope aggregates over every tenant.
func (s *service) CountByStatus(ctx context.Context, v viewer.Viewer, r Range) (map[string]int64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	scope, ok := tenant.FromContext(ctx)
	if !ok || (!scope.IsResolved() && !scope.IsCrossTenant()) {
		return nil, persistence.ErrTenantScopeRequired
	}
	if !canManage(v) {
		return nil, ErrForbidden
	}

	counts, err := s.repo.CountByStatus(ctx, scope, r.Start, r.End)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return counts, nil
}

// invalidate drops every cached range of the tenant. Failures are logged; entries expire on their own.
func (s *service) invalidate(ctx context.Context, scope tenant.Scope) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTag(ctx, tenant.CacheTag(scope.TenantID)); err != nil {
		platformlogging.FromContextOr(ctx, s.logger).Warn("invalidate booking cache",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.Error(err),
		)
	}
}

// canManage reports whether v may write or delete any booking of the tenant.
func canManage(v viewer.Viewer) bool {
	return v.Elevated() || v.Role == viewer.RoleStaff
}

// authorizeWrite lets managing viewers write anything and clients file requests for themselves.
func authorizeWrite(v viewer.Viewer, input *UpsertInput) error {
	if canManage(v) {
		return nil
	}
	if v.Role != viewer.RoleClient || v.ClientID == nil || input.ID != nil {
		return ErrForbidden
	}
	if input.Status != "" && !strings.EqualFold(input.Status, visibility.StatusRequested) {
		return ErrForbidden
	}
	id := *v.ClientID
	input.ClientID = &id
	input.Status = visibility.StatusRequested
	input.CrewIDs = nil
	return nil
}

func buildUpsertParams(input UpsertInput) (persistence.UpsertBookingParams, error) {
	fieldErrors := FieldErrors{}

	if input.StartAt.IsZero() {
		fieldErrors.add("startAt", "startAt is required")
	}
	if input.EndAt.IsZero() {
		fieldErrors.add("endAt", "endAt is required")
	}
	if !input.StartAt.IsZero() && !input.EndAt.IsZero() && !input.StartAt.Before(input.EndAt) {
		fieldErrors.add("endAt", "endAt must be after startAt")
	}

	status := strings.ToUpper(strings.TrimSpace(input.Status))
	if status == "" {
		status = visibility.StatusRequested
	}
	if _, ok := storedStatuses[status]; !ok {
		fieldErrors.add("status", "unsupported status")
	}

	title := strings.TrimSpace(input.Title)
	if utf8.RuneCountInString(title) > maxTitleLength {
		fieldErrors.add("title", "title must be at most 200 characters")
	}

	for _, id := range input.CrewIDs {
		if id == uuid.Nil {
			fieldErrors.add("crewIds", "crew ids must be valid uuids")
			break
		}
	}

	services := make([]string, 0, len(input.Services))
	for _, raw := range input.Services {
		if svc := strings.TrimSpace(raw); svc != "" {
			services = append(services, svc)
		}
	}

	if len(fieldErrors) > 0 {
		return persistence.UpsertBookingParams{}, &ValidationError{Fields: fieldErrors}
	}

	params := persistence.UpsertBookingParams{
		StartAt:    input.StartAt.UTC(),
		EndAt:      input.EndAt.UTC(),
		Status:     status,
		ClientID:   input.ClientID,
		AgentID:    input.AgentID,
		PropertyID: input.PropertyID,
		Title:      title,
		Notes:      strings.TrimSpace(input.Notes),
		Services:   services,
		CrewIDs:    input.CrewIDs,
	}
	if input.ID != nil {
		params.BookingID = *input.ID
	}
	return params, nil
}

// FromDetail maps a stored booking to the input of the visibility policy.
func FromDetail(d persistence.BookingDetail) visibility.Booking {
	b := visibility.Booking{
		ID:            d.BookingID,
		TenantID:      d.TenantID,
		StartAt:       d.StartAt.UTC(),
		EndAt:         d.EndAt.UTC(),
		Status:        d.Status,
		IsPlaceholder: d.IsPlaceholder,
		ClientID:      d.ClientID,
		ClientName:    d.ClientName,
		AgentID:       d.AgentID,
		AgentName:     d.AgentName,
		PropertyID:    d.PropertyID,
		PropertyName:  d.PropertyName,
		Title:         d.Title,
		Notes:         d.Notes,
		Services:      d.Services,
		Crew:          make([]visibility.Crew, 0, len(d.Assignments)),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
	if d.SlotType != nil {
		b.SlotType = *d.SlotType
	}
	for _, a := range d.Assignments {
		b.Crew = append(b.Crew, visibility.Crew{ID: a.CrewMemberID, Name: a.Name})
	}
	return b
}

// requireTenantScope returns the single-tenant scope of the request.
// Booking reads and writes never run cross-tenant.
func requireTenantScope(ctx context.Context) (tenant.Scope, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.IsResolved() {
		return tenant.Scope{}, persistence.ErrTenantScopeRequired
	}
	return scope, nil
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrBookingNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrBookingConflict):
		return ErrConflict
	default:
		return err
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
