package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/studio-scheduler/domains/directory/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

type mockService struct {
	createContactFn  func(ctx context.Context, input service.CreateContactInput) (service.Contact, error)
	getContactFn     func(ctx context.Context, id uuid.UUID) (service.Contact, error)
	listContactsFn   func(ctx context.Context, opts service.ListOptions) (service.ListResult, error)
	createPropertyFn func(ctx context.Context, input service.CreatePropertyInput) (service.Property, error)
	listPropertiesFn func(ctx context.Context) ([]service.Property, error)
}

func (m *mockService) CreateContact(ctx context.Context, input service.CreateContactInput) (service.Contact, error) {
	if m.createContactFn == nil {
		panic("createContactFn not configured")
	}
	return m.createContactFn(ctx, input)
}

func (m *mockService) GetContact(ctx context.Context, id uuid.UUID) (service.Contact, error) {
	if m.getContactFn == nil {
		panic("getContactFn not configured")
	}
	return m.getContactFn(ctx, id)
}

func (m *mockService) ListContacts(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	if m.listContactsFn == nil {
		panic("listContactsFn not configured")
	}
	return m.listContactsFn(ctx, opts)
}

func (m *mockService) CreateProperty(ctx context.Context, input service.CreatePropertyInput) (service.Property, error) {
	if m.createPropertyFn == nil {
		panic("createPropertyFn not configured")
	}
	return m.createPropertyFn(ctx, input)
}

func (m *mockService) ListProperties(ctx context.Context) ([]service.Property, error) {
	if m.listPropertiesFn == nil {
		panic("listPropertiesFn not configured")
	}
	return m.listPropertiesFn(ctx)
}

var staff = viewer.Viewer{UserID: "s1", Role: viewer.RoleStaff, TenantID: uuid.New()}

func do(t *testing.T, h *Handler, v *viewer.Viewer, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if v != nil {
		req = req.WithContext(viewer.WithViewer(req.Context(), *v))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestContactsCreate(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.createContactFn = func(_ context.Context, input service.CreateContactInput) (service.Contact, error) {
		require.Equal(t, "CLIENT", input.Kind)
		return service.Contact{ID: uuid.New(), Kind: input.Kind, DisplayName: input.DisplayName}, nil
	}

	rec := do(t, New(svc, zaptest.NewLogger(t)), &staff, http.MethodPost, "/contacts", `{"kind":"CLIENT","displayName":"Casey"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Casey", body.DisplayName)
	require.Equal(t, "/api/v1/contacts/"+body.ID.String(), rec.Header().Get("Location"))
}

func TestContactsRequireStaff(t *testing.T) {
	t.Parallel()

	client := viewer.Viewer{UserID: "c1", Role: viewer.RoleClient, TenantID: uuid.New()}
	h := New(&mockService{}, zaptest.NewLogger(t))

	rec := do(t, h, &client, http.MethodGet, "/contacts", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, nil, http.MethodGet, "/properties", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactsErrorsMapToProblems(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		ptype  string
	}{
		{name: "validation", err: &service.ValidationError{Fields: service.FieldErrors{"kind": {"bad"}}}, status: http.StatusBadRequest, ptype: problem.TypeValidation},
		{name: "conflict", err: service.ErrConflict, status: http.StatusConflict, ptype: problem.TypeConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{
				createContactFn: func(context.Context, service.CreateContactInput) (service.Contact, error) {
					return service.Contact{}, tc.err
				},
			}
			rec := do(t, New(svc, zaptest.NewLogger(t)), &staff, http.MethodPost, "/contacts", `{"kind":"CLIENT","displayName":"x"}`)
			require.Equal(t, tc.status, rec.Code)

			var body problem.Details
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.ptype, body.Type)
		})
	}
}

func TestContactsGetNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		getContactFn: func(context.Context, uuid.UUID) (service.Contact, error) {
			return service.Contact{}, service.ErrNotFound
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	rec := do(t, h, &staff, http.MethodGet, "/contacts/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, &staff, http.MethodGet, "/contacts/nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactsListPassesFilters(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.listContactsFn = func(_ context.Context, opts service.ListOptions) (service.ListResult, error) {
		require.NotNil(t, opts.Kind)
		require.Equal(t, "CREW", *opts.Kind)
		require.Equal(t, 3, opts.Page)
		return service.ListResult{Contacts: []service.Contact{{ID: uuid.New(), Kind: "CREW"}}, Page: 3, PageSize: 20, TotalItems: 41, TotalPages: 3}, nil
	}

	rec := do(t, New(svc, zaptest.NewLogger(t)), &staff, http.MethodGet, "/contacts?kind=CREW&page=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body contactList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	require.Equal(t, 41, body.TotalItems)
}

func TestPropertiesCreateAndList(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.createPropertyFn = func(_ context.Context, input service.CreatePropertyInput) (service.Property, error) {
		return service.Property{ID: uuid.New(), Name: input.Name, Address: input.Address}, nil
	}
	svc.listPropertiesFn = func(context.Context) ([]service.Property, error) {
		return nil, nil
	}
	h := New(svc, zaptest.NewLogger(t))

	rec := do(t, h, &staff, http.MethodPost, "/properties", `{"name":"Harbour House","address":"1 Quay"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, &staff, http.MethodGet, "/properties", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())
}
