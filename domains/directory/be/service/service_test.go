package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

type mockRepository struct {
	createContactFn  func(ctx context.Context, scope tenant.Scope, params persistence.CreateContactParams) (persistence.Contact, error)
	getContactFn     func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (persistence.Contact, error)
	listContactsFn   func(ctx context.Context, scope tenant.Scope, params persistence.ListContactsParams) (persistence.ListContactsResult, error)
	createPropertyFn func(ctx context.Context, scope tenant.Scope, params persistence.CreatePropertyParams) (persistence.Property, error)
	listPropertiesFn func(ctx context.Context, scope tenant.Scope) ([]persistence.Property, error)
}

func (m *mockRepository) CreateContact(ctx context.Context, scope tenant.Scope, params persistence.CreateContactParams) (persistence.Contact, error) {
	if m.createContactFn == nil {
		panic("createContactFn not configured")
	}
	return m.createContactFn(ctx, scope, params)
}

func (m *mockRepository) GetContact(ctx context.Context, scope tenant.Scope, id uuid.UUID) (persistence.Contact, error) {
	if m.getContactFn == nil {
		panic("getContactFn not configured")
	}
	return m.getContactFn(ctx, scope, id)
}

func (m *mockRepository) ListContacts(ctx context.Context, scope tenant.Scope, params persistence.ListContactsParams) (persistence.ListContactsResult, error) {
	if m.listContactsFn == nil {
		panic("listContactsFn not configured")
	}
	return m.listContactsFn(ctx, scope, params)
}

func (m *mockRepository) CreateProperty(ctx context.Context, scope tenant.Scope, params persistence.CreatePropertyParams) (persistence.Property, error) {
	if m.createPropertyFn == nil {
		panic("createPropertyFn not configured")
	}
	return m.createPropertyFn(ctx, scope, params)
}

func (m *mockRepository) ListProperties(ctx context.Context, scope tenant.Scope) ([]persistence.Property, error) {
	if m.listPropertiesFn == nil {
		panic("listPropertiesFn not configured")
	}
	return m.listPropertiesFn(ctx, scope)
}

var tenantID = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001")

func scoped() context.Context {
	return tenant.WithScope(context.Background(), tenant.ForTenant(tenantID))
}

func TestServiceRequiresTenantScope(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.CreateContact(context.Background(), CreateContactInput{Kind: "CLIENT", DisplayName: "Casey"})
	require.ErrorIs(t, err, persistence.ErrTenantScopeRequired)

	_, err = svc.ListProperties(tenant.WithScope(context.Background(), tenant.CrossTenant("ops")))
	require.ErrorIs(t, err, persistence.ErrTenantScopeRequired)
}

func TestServiceCreateContactValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	bad := "not-an-email"

	_, err := svc.CreateContact(scoped(), CreateContactInput{Kind: "VENDOR", Email: &bad})
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "kind")
	require.Contains(t, validationErr.Fields, "displayName")
	require.Contains(t, validationErr.Fields, "email")
}

func TestServiceCreateContactSuccess(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	repository := &mockRepository{}
	repository.createContactFn = func(ctx context.Context, scope tenant.Scope, params persistence.CreateContactParams) (persistence.Contact, error) {
		require.Equal(t, tenantID, scope.TenantID)
		require.NotEqual(t, uuid.Nil, params.ContactID)
		require.Equal(t, KindCrew, params.Kind)
		require.Equal(t, "Robin", params.DisplayName)
		require.NotNil(t, params.Email)
		require.Equal(t, "robin@example.com", *params.Email)

		return persistence.Contact{
			ContactID:   params.ContactID,
			Kind:        params.Kind,
			DisplayName: params.DisplayName,
			Email:       params.Email,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}

	email := " Robin@Example.com "
	contact, err := New(repository).CreateContact(scoped(), CreateContactInput{Kind: "crew", DisplayName: " Robin ", Email: &email})
	require.NoError(t, err)
	require.Equal(t, KindCrew, contact.Kind)
	require.Equal(t, "Robin", contact.DisplayName)
}

func TestServiceCreateContactConflict(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		createContactFn: func(context.Context, tenant.Scope, persistence.CreateContactParams) (persistence.Contact, error) {
			return persistence.Contact{}, persistence.ErrContactConflict
		},
	}

	_, err := New(repository).CreateContact(scoped(), CreateContactInput{Kind: KindClient, DisplayName: "Casey"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestServiceGetContactNotFound(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		getContactFn: func(context.Context, tenant.Scope, uuid.UUID) (persistence.Contact, error) {
			return persistence.Contact{}, persistence.ErrContactNotFound
		},
	}

	_, err := New(repository).GetContact(scoped(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = New(repository).GetContact(scoped(), uuid.Nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceListContacts(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{}
	repository.listContactsFn = func(ctx context.Context, scope tenant.Scope, params persistence.ListContactsParams) (persistence.ListContactsResult, error) {
		require.Equal(t, 2, params.Page)
		require.Equal(t, 100, params.PageSize)
		require.NotNil(t, params.Kind)
		require.Equal(t, KindAgent, *params.Kind)
		return persistence.ListContactsResult{
			Contacts:   []persistence.Contact{{ContactID: uuid.New(), Kind: KindAgent, DisplayName: "Ava"}},
			TotalItems: 101,
		}, nil
	}

	kind := "agent"
	result, err := New(repository).ListContacts(scoped(), ListOptions{Kind: &kind, Page: 2, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Contacts, 1)
	require.Equal(t, 2, result.TotalPages)

	bad := "vendor"
	_, err = New(repository).ListContacts(scoped(), ListOptions{Kind: &bad})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestServiceProperties(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{}
	repository.createPropertyFn = func(ctx context.Context, scope tenant.Scope, params persistence.CreatePropertyParams) (persistence.Property, error) {
		require.Equal(t, "Harbour House", params.Name)
		return persistence.Property{PropertyID: params.PropertyID, Name: params.Name, Address: params.Address}, nil
	}
	repository.listPropertiesFn = func(ctx context.Context, scope tenant.Scope) ([]persistence.Property, error) {
		return []persistence.Property{{PropertyID: uuid.New(), Name: "Harbour House"}}, nil
	}
	svc := New(repository)

	_, err := svc.CreateProperty(scoped(), CreatePropertyInput{Name: "  "})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	created, err := svc.CreateProperty(scoped(), CreatePropertyInput{Name: " Harbour House ", Address: "1 Quay"})
	require.NoError(t, err)
	require.Equal(t, "Harbour House", created.Name)

	props, err := svc.ListProperties(scoped())
	require.NoError(t, err)
	require.Len(t, props, 1)
}
