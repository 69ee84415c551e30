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

const (
	contactColumns  = `contact_id, kind, display_name, email, created_at, updated_at`
	propertyColumns = `property_id, name, address, created_at, updated_at`
)

// Contact represents a client, agent or crew member of a tenant.
type Contact struct {
	ContactID   uuid.UUID `db:"contact_id" json:"contactId"`
	Kind        string    `db:"kind" json:"kind"`
	DisplayName string    `db:"display_name" json:"displayName"`
	Email       *string   `db:"email" json:"email,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Property represents a shoot location of a tenant.
type Property struct {
	PropertyID uuid.UUID `db:"property_id" json:"propertyId"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateContactParams captures the fields required to insert a contact.
type CreateContactParams struct {
	ContactID   uuid.UUID
	Kind        string
	DisplayName string
	Email       *string
}

// ListContactsParams filters and paginates contacts.
type ListContactsParams struct {
	Kind     *string
	Page     int
	PageSize int
}

// ListContactsResult includes the rows and the total count for pagination metadata.
type ListContactsResult struct {
	Contacts   []Contact
	TotalItems int
}

// CreatePropertyParams captures the fields required to insert a property.
type CreatePropertyParams struct {
	PropertyID uuid.UUID
	Name       string
	Address    string
}

// DirectoryStore exposes the tenant-scoped contacts and properties tables.
type DirectoryStore struct {
	guard *ScopeGuard
}

// NewDirectoryStore returns a store bound to db.
func NewDirectoryStore(db DBTX) (*DirectoryStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &DirectoryStore{guard: NewScopeGuard(db)}, nil
}

// CreateContact inserts a contact owned by the scoped tenant.
func (s *DirectoryStore) CreateContact(ctx context.Context, scope tenant.Scope, params CreateContactParams) (Contact, error) {
	if params.ContactID == uuid.Nil {
		params.ContactID = uuid.New()
	}
	table, err := s.guard.Table(scope, KindContacts)
	if err != nil {
		return Contact{}, err
	}

	var email *string
	if params.Email != nil && strings.TrimSpace(*params.Email) != "" {
		trimmed := strings.TrimSpace(*params.Email)
		email = &trimmed
	}

	row, err := table.Insert(ctx, Payload{Values: map[string]any{
		"contact_id":   params.ContactID,
		"kind":         params.Kind,
		"display_name": strings.TrimSpace(params.DisplayName),
		"email":        email,
	}}, contactColumns)
	if err != nil {
		return Contact{}, err
	}

	contact, err := scanContact(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Contact{}, ErrContactConflict
		}
		return Contact{}, mapInsertError(err)
	}
	return contact, nil
}

// GetContact returns a contact of the scoped tenant.
func (s *DirectoryStore) GetContact(ctx context.Context, scope tenant.Scope, id uuid.UUID) (Contact, error) {
	table, err := s.guard.Table(scope, KindContacts)
	if err != nil {
		return Contact{}, err
	}
	rows, err := table.Select(ctx, contactColumns, Where().Eq("contact_id", id), "LIMIT 1")
	if err != nil {
		return Contact{}, fmt.Errorf("select contact: %w", err)
	}
	contact, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Contact])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, err
	}
	return contact, nil
}

// ListContacts returns contacts of the scoped tenant ordered by name.
func (s *DirectoryStore) ListContacts(ctx context.Context, scope tenant.Scope, params ListContactsParams) (ListContactsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	table, err := s.guard.Table(scope, KindContacts)
	if err != nil {
		return ListContactsResult{}, err
	}

	filter := Where()
	if params.Kind != nil && *params.Kind != "" {
		filter.Eq("kind", *params.Kind)
	}

	total, err := table.Count(ctx, filter)
	if err != nil {
		return ListContactsResult{}, err
	}

	result := ListContactsResult{Contacts: []Contact{}, TotalItems: int(total)}
	if total == 0 {
		return result, nil
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := table.Select(ctx, contactColumns, filter,
		fmt.Sprintf("ORDER BY display_name, contact_id LIMIT %d OFFSET %d", params.PageSize, offset))
	if err != nil {
		return ListContactsResult{}, fmt.Errorf("list contacts: %w", err)
	}
	contacts, err := pgx.CollectRows(rows, pgx.RowToStructByName[Contact])
	if err != nil {
		return ListContactsResult{}, fmt.Errorf("scan contacts: %w", err)
	}

	result.Contacts = contacts
	return result, nil
}

// CreateProperty inserts a property owned by the scoped tenant.
func (s *DirectoryStore) CreateProperty(ctx context.Context, scope tenant.Scope, params CreatePropertyParams) (Property, error) {
	if params.PropertyID == uuid.Nil {
		params.PropertyID = uuid.New()
	}
	table, err := s.guard.Table(scope, KindProperties)
	if err != nil {
		return Property{}, err
	}

	row, err := table.Insert(ctx, Payload{Values: map[string]any{
		"property_id": params.PropertyID,
		"name":        strings.TrimSpace(params.Name),
		"address":     strings.TrimSpace(params.Address),
	}}, propertyColumns)
	if err != nil {
		return Property{}, err
	}

	var p Property
	if err := row.Scan(&p.PropertyID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Property{}, mapInsertError(err)
	}
	return p, nil
}

// ListProperties returns every property of the scoped tenant ordered by name.
func (s *DirectoryStore) ListProperties(ctx context.Context, scope tenant.Scope) ([]Property, error) {
	table, err := s.guard.Table(scope, KindProperties)
	if err != nil {
		return nil, err
	}
	rows, err := table.Select(ctx, propertyColumns, nil, "ORDER BY name, property_id")
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Property])
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	if err := row.Scan(&c.ContactID, &c.Kind, &c.DisplayName, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Contact{}, err
	}
	return c, nil
}
