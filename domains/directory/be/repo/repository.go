package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// Repository defines the persistence operations required by the directory service.
type Repository interface {
	CreateContact(ctx context.Context, scope tenant.Scope, params persistence.CreateContactParams) (persistence.Contact, error)
	GetContact(ctx context.Context, scope tenant.Scope, id uuid.UUID) (persistence.Contact, error)
	ListContacts(ctx context.Context, scope tenant.Scope, params persistence.ListContactsParams) (persistence.ListContactsResult, error)
	CreateProperty(ctx context.Context, scope tenant.Scope, params persistence.CreatePropertyParams) (persistence.Property, error)
	ListProperties(ctx context.Context, scope tenant.Scope) ([]persistence.Property, error)
}

type postgresRepository struct {
	store *persistence.DirectoryStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.DirectoryStore) Repository {
	if store == nil {
		panic("directory store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateContact(ctx context.Context, scope tenant.Scope, params persistence.CreateContactParams) (persistence.Contact, error) {
	return r.store.CreateContact(ctx, scope, params)
}

func (r *postgresRepository) GetContact(ctx context.Context, scope tenant.Scope, id uuid.UUID) (persistence.Contact, error) {
	return r.store.GetContact(ctx, scope, id)
}

func (r *postgresRepository) ListContacts(ctx context.Context, scope tenant.Scope, params persistence.ListContactsParams) (persistence.ListContactsResult, error) {
	return r.store.ListContacts(ctx, scope, params)
}

func (r *postgresRepository) CreateProperty(ctx context.Context, scope tenant.Scope, params persistence.CreatePropertyParams) (persistence.Property, error) {
	return r.store.CreateProperty(ctx, scope, params)
}

func (r *postgresRepository) ListProperties(ctx context.Context, scope tenant.Scope) ([]persistence.Property, error) {
	return r.store.ListProperties(ctx, scope)
}
