package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/domains/directory/be/repo"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
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
	ErrNotFound = errors.New("contact not found")
	ErrConflict = errors.New("contact conflict")
)

// Contact kinds. Bookings reference CLIENT and AGENT contacts as owners and CREW contacts as assignees.
const (
	KindClient = "CLIENT"
	KindAgent  = "AGENT"
	KindCrew   = "CREW"
)

// Contact represents the domain view of a contact record.
type Contact struct {
	ID          uuid.UUID
	Kind        string
	DisplayName string
	Email       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Property represents the domain view of a shoot location.
type Property struct {
	ID        uuid.UUID
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Kind     *string
	Page     int
	PageSize int
}

// ListResult wraps a page of contacts with pagination metadata.
type ListResult struct {
	Contacts   []Contact
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// CreateContactInput represents the payload required to create a contact.
type CreateContactInput struct {
	Kind        string
	DisplayName string
	Email       *string
}

// CreatePropertyInput represents the payload required to create a property.
type CreatePropertyInput struct {
	Name    string
	Address string
}

// Service defines the business operations for the directory domain.
// Every operation runs under the tenant scope carried by ctx.
type Service interface {
	CreateContact(ctx context.Context, input CreateContactInput) (Contact, error)
	GetContact(ctx context.Context, id uuid.UUID) (Contact, error)
	ListContacts(ctx context.Context, opts ListOptions) (ListResult, error)
	CreateProperty(ctx context.Context, input CreatePropertyInput) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a directory Service instance backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("directory repository is required")
	}
	return &service{repo: r}
}

func (s *service) CreateContact(ctx context.Context, input CreateContactInput) (Contact, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return Contact{}, err
	}

	fieldErrors := FieldErrors{}

	kind, ok := normalizeKind(input.Kind)
	if !ok {
		fieldErrors.add("kind", "kind must be one of CLIENT, AGENT, CREW")
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		fieldErrors.add("displayName", "displayName is required")
	}

	var email *string
	if input.Email != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*input.Email))
		switch {
		case trimmed == "":
		case !strings.Contains(trimmed, "@"):
			fieldErrors.add("email", "email must contain '@'")
		default:
			email = &trimmed
		}
	}

	if len(fieldErrors) > 0 {
		return Contact{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreateContact(ctx, scope, persistence.CreateContactParams{
		ContactID:   uuid.New(),
		Kind:        kind,
		DisplayName: displayName,
		Email:       email,
	})
	if err != nil {
		return Contact{}, mapPersistenceError(err)
	}

	return mapContact(record), nil
}

func (s *service) GetContact(ctx context.Context, id uuid.UUID) (Contact, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return Contact{}, err
	}
	if id == uuid.Nil {
		return Contact{}, ErrNotFound
	}

	record, err := s.repo.GetContact(ctx, scope, id)
	if err != nil {
		return Contact{}, mapPersistenceError(err)
	}
	return mapContact(record), nil
}

func (s *service) ListContacts(ctx context.Context, opts ListOptions) (ListResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return ListResult{}, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := persistence.ListContactsParams{Page: page, PageSize: pageSize}
	if opts.Kind != nil && strings.TrimSpace(*opts.Kind) != "" {
		kind, ok := normalizeKind(*opts.Kind)
		if !ok {
			return ListResult{}, &ValidationError{Fields: FieldErrors{"kind": {"kind must be one of CLIENT, AGENT, CREW"}}}
		}
		params.Kind = &kind
	}

	result, err := s.repo.ListContacts(ctx, scope, params)
	if err != nil {
		return ListResult{}, err
	}

	contacts := make([]Contact, 0, len(result.Contacts))
	for _, record := range result.Contacts {
		contacts = append(contacts, mapContact(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Contacts:   contacts,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) CreateProperty(ctx context.Context, input CreatePropertyInput) (Property, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return Property{}, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Property{}, &ValidationError{Fields: FieldErrors{"name": {"name is required"}}}
	}

	record, err := s.repo.CreateProperty(ctx, scope, persistence.CreatePropertyParams{
		PropertyID: uuid.New(),
		Name:       name,
		Address:    strings.TrimSpace(input.Address),
	})
	if err != nil {
		return Property{}, err
	}
	return mapProperty(record), nil
}

func (s *service) ListProperties(ctx context.Context) ([]Property, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListProperties(ctx, scope)
	if err != nil {
		return nil, err
	}

	out := make([]Property, 0, len(records))
	for _, record := range records {
		out = append(out, mapProperty(record))
	}
	return out, nil
}

func normalizeKind(raw string) (string, bool) {
	kind := strings.ToUpper(strings.TrimSpace(raw))
	switch kind {
	case KindClient, KindAgent, KindCrew:
		return kind, true
	default:
		return "", false
	}
}

func requireTenantScope(ctx context.Context) (tenant.Scope, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.IsResolved() {
		return tenant.Scope{}, persistence.ErrTenantScopeRequired
	}
	return scope, nil
}

func mapContact(record persistence.Contact) Contact {
	return Contact{
		ID:          record.ContactID,
		Kind:        record.Kind,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapProperty(record persistence.Property) Property {
	return Property{
		ID:        record.PropertyID,
		Name:      record.Name,
		Address:   record.Address,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrContactNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrContactConflict):
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
