package service

import (
	"context"
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound     = errors.New("tenant not found")
	ErrConflictSlug = errors.New("tenant slug already exists")
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

// MaxSlotsPerSession caps the placeholders a single weekday rule may request per session.
const MaxSlotsPerSession = 12

// Tenant represents the domain model for a tenant registry entry.
type Tenant struct {
	ID          uuid.UUID
	Slug        string
	DisplayName string
	Timezone    string
	Latitude    float64
	Longitude   float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BusinessHoursRule is the number of sunrise and dusk placeholders per weekday.
// Weekday follows time.Weekday, Sunday = 0.
type BusinessHoursRule struct {
	Weekday      time.Weekday
	SunriseSlots int
	DuskSlots    int
}

// CreateInput represents the request to onboard a tenant.
type CreateInput struct {
	ID          *uuid.UUID
	Slug        string
	DisplayName string
	Timezone    string
	Latitude    float64
	Longitude   float64
}

// UpdateInput represents mutable fields for a tenant.
type UpdateInput struct {
	DisplayName *string
	Timezone    *string
	Latitude    *float64
	Longitude   *float64
}

// ListResult wraps paginated tenants.
type ListResult struct {
	Tenants    []Tenant
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// ListOptions captures pagination.
type ListOptions struct {
	Page     int
	PageSize int
}

// Repository abstracts persistence.
type Repository interface {
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	FindBySlug(ctx context.Context, slug string) (Tenant, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tenant, error)
	BusinessHours(ctx context.Context, id uuid.UUID) ([]BusinessHoursRule, error)
	ReplaceBusinessHours(ctx context.Context, id uuid.UUID, rules []BusinessHoursRule) error
}

// Service provides tenant registry operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	return &Service{repo: repo}
}

// List tenants ordered by creation time.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	return s.repo.List(ctx, opts)
}

// ListIDs returns every tenant id.
func (s *Service) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListIDs(ctx)
}

// Create onboards a tenant after validating its slug, timezone and coordinate.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	fieldErrors := FieldErrors{}

	slug, err := persistence.NormalizeSlug(input.Slug)
	if err != nil {
		fieldErrors.add("slug", err.Error())
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = slug
	}

	timezone := strings.TrimSpace(input.Timezone)
	validateTimezone(fieldErrors, timezone)
	validateCoordinate(fieldErrors, input.Latitude, input.Longitude)

	if len(fieldErrors) > 0 {
		return Tenant{}, &ValidationError{Fields: fieldErrors}
	}

	id := uuid.New()
	if input.ID != nil && *input.ID != uuid.Nil {
		id = *input.ID
	}

	return s.repo.Create(ctx, Tenant{
		ID:          id,
		Slug:        slug,
		DisplayName: displayName,
		Timezone:    timezone,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	})
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// GetBySlug returns a tenant by its normalized slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Tenant, error) {
	normalized, err := persistence.NormalizeSlug(slug)
	if err != nil {
		return Tenant{}, &ValidationError{Fields: FieldErrors{"slug": {err.Error()}}}
	}
	return s.repo.FindBySlug(ctx, normalized)
}

// Update modifies mutable fields of a tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tenant, error) {
	fieldErrors := FieldErrors{}

	if input.DisplayName != nil && strings.TrimSpace(*input.DisplayName) == "" {
		fieldErrors.add("displayName", "displayName must not be empty")
	}
	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		input.Timezone = &tz
		validateTimezone(fieldErrors, tz)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	lat, lon := current.Latitude, current.Longitude
	if input.Latitude != nil {
		lat = *input.Latitude
	}
	if input.Longitude != nil {
		lon = *input.Longitude
	}
	validateCoordinate(fieldErrors, lat, lon)

	if len(fieldErrors) > 0 {
		return Tenant{}, &ValidationError{Fields: fieldErrors}
	}

	return s.repo.Update(ctx, id, input)
}

// BusinessHours returns the weekday rules of a tenant ordered by weekday.
func (s *Service) BusinessHours(ctx context.Context, id uuid.UUID) ([]BusinessHoursRule, error) {
	return s.repo.BusinessHours(ctx, id)
}

// ReplaceBusinessHours swaps the full rule set of a tenant.
// Weekdays missing from rules produce no placeholders.
func (s *Service) ReplaceBusinessHours(ctx context.Context, id uuid.UUID, rules []BusinessHoursRule) ([]BusinessHoursRule, error) {
	fieldErrors := FieldErrors{}
	seen := make(map[time.Weekday]struct{}, len(rules))

	for _, r := range rules {
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			fieldErrors.add("weekday", "weekday must be between 0 (Sunday) and 6 (Saturday)")
			continue
		}
		if _, dup := seen[r.Weekday]; dup {
			fieldErrors.add("weekday", "weekday "+r.Weekday.String()+" appears more than once")
		}
		seen[r.Weekday] = struct{}{}

		if r.SunriseSlots < 0 || r.SunriseSlots > MaxSlotsPerSession {
			fieldErrors.add("sunriseSlots", "sunriseSlots must be between 0 and 12")
		}
		if r.DuskSlots < 0 || r.DuskSlots > MaxSlotsPerSession {
			fieldErrors.add("duskSlots", "duskSlots must be between 0 and 12")
		}
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceBusinessHours(ctx, id, rules); err != nil {
		return nil, err
	}
	return s.repo.BusinessHours(ctx, id)
}

// ResolveTenant returns the single-tenant scope of id for middleware consumption.
func (s *Service) ResolveTenant(ctx context.Context, id uuid.UUID) (tenant.Scope, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return tenant.Scope{}, err
	}
	scope := tenant.ForTenant(t.ID)
	scope.Slug = t.Slug
	scope.Timezone = t.Timezone
	return scope, nil
}

func validateTimezone(fieldErrors FieldErrors, tz string) {
	if tz == "" {
		fieldErrors.add("timezone", "timezone is required")
		return
	}
	if _, err := time.LoadLocation(tz); err != nil {
		fieldErrors.add("timezone", "timezone must be an IANA zone name")
	}
}

func validateCoordinate(fieldErrors FieldErrors, lat, lon float64) {
	if lat < -90 || lat > 90 {
		fieldErrors.add("latitude", "latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		fieldErrors.add("longitude", "longitude must be between -180 and 180")
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
