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

	"github.com/zenGate-Global/studio-scheduler/domains/tenants/be/repo"
	"github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

func operator() viewer.Viewer {
	return viewer.Viewer{
		UserID:       "op-1",
		Role:         viewer.RoleAdmin,
		Capabilities: map[viewer.Capability]struct{}{viewer.CapabilityCrossTenant: {}},
	}
}

type fixture struct {
	t       *testing.T
	handler *Handler
	svc     *service.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := service.New(repo.NewMemoryRepository())
	return &fixture{t: t, handler: New(svc, zaptest.NewLogger(t)), svc: svc}
}

func (f *fixture) do(v *viewer.Viewer, scope *tenant.Scope, method, target, body string) *httptest.ResponseRecorder {
	f.t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			if v != nil {
				ctx = viewer.WithViewer(ctx, *v)
			}
			if scope != nil {
				ctx = tenant.WithScope(ctx, *scope)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	f.handler.Routes(r)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seed(slug string) service.Tenant {
	f.t.Helper()
	created, err := f.svc.Create(context.Background(), service.CreateInput{Slug: slug, Timezone: "Europe/Madrid", Latitude: 40.4, Longitude: -3.7})
	require.NoError(f.t, err)
	return created
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem.Details {
	t.Helper()
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	var details problem.Details
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&details))
	return details
}

func TestTenantsCreateRequiresOperator(t *testing.T) {
	f := newFixture(t)
	admin := viewer.Viewer{UserID: "u1", Role: viewer.RoleAdmin, TenantID: uuid.New()}

	rec := f.do(&admin, nil, http.MethodPost, "/admin/tenants", `{"slug":"acme","timezone":"UTC"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(nil, nil, http.MethodPost, "/admin/tenants", `{"slug":"acme","timezone":"UTC"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantsCreateAndGet(t *testing.T) {
	f := newFixture(t)
	op := operator()

	rec := f.do(&op, nil, http.MethodPost, "/admin/tenants", `{"slug":"Acme","displayName":"Acme","timezone":"Europe/London","latitude":51.5,"longitude":-0.12}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Tenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "acme", created.Slug)
	require.Equal(t, "/api/v1/admin/tenants/"+created.ID.String(), rec.Header().Get("Location"))

	rec = f.do(&op, nil, http.MethodGet, "/admin/tenants/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(&op, nil, http.MethodPost, "/admin/tenants", `{"slug":"acme","timezone":"UTC"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, problem.TypeConflict, decodeProblem(t, rec).Type)
}

func TestTenantsCreateValidation(t *testing.T) {
	f := newFixture(t)
	op := operator()

	rec := f.do(&op, nil, http.MethodPost, "/admin/tenants", `{"slug":"acme","timezone":"Nowhere/City"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decodeProblem(t, rec)
	require.Equal(t, problem.TypeValidation, details.Type)
	require.Contains(t, details.Errors, "timezone")

	rec = f.do(&op, nil, http.MethodPost, "/admin/tenants", `not-json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantsGetUnknownReturnsNotFound(t *testing.T) {
	f := newFixture(t)
	op := operator()

	rec := f.do(&op, nil, http.MethodGet, "/admin/tenants/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(&op, nil, http.MethodGet, "/admin/tenants/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantsListAndUpdate(t *testing.T) {
	f := newFixture(t)
	op := operator()
	acme := f.seed("acme")
	f.seed("beta")

	rec := f.do(&op, nil, http.MethodGet, "/admin/tenants?page=1&pageSize=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list tenantList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Equal(t, 2, list.TotalItems)
	require.Len(t, list.Items, 1)

	rec = f.do(&op, nil, http.MethodPatch, "/admin/tenants/"+acme.ID.String(), `{"displayName":"Acme Studio"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Tenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	require.Equal(t, "Acme Studio", updated.DisplayName)
	require.Equal(t, "Europe/Madrid", updated.Timezone)
}

func TestCurrentTenantUsesScope(t *testing.T) {
	f := newFixture(t)
	acme := f.seed("acme")
	staff := viewer.Viewer{UserID: "s1", Role: viewer.RoleStaff, TenantID: acme.ID}
	scope := tenant.ForTenant(acme.ID)

	rec := f.do(&staff, &scope, http.MethodGet, "/tenant", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Tenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, acme.ID, got.ID)

	cross := tenant.CrossTenant("ops")
	rec = f.do(&staff, &cross, http.MethodGet, "/tenant", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBusinessHoursRequiresStudioAdmin(t *testing.T) {
	f := newFixture(t)
	acme := f.seed("acme")
	scope := tenant.ForTenant(acme.ID)
	staff := viewer.Viewer{UserID: "s1", Role: viewer.RoleStaff, TenantID: acme.ID}
	client := viewer.Viewer{UserID: "c1", Role: viewer.RoleClient, TenantID: acme.ID}
	admin := viewer.Viewer{UserID: "a1", Role: viewer.RoleAdmin, TenantID: acme.ID}
	body := `{"rules":[{"weekday":1,"sunriseSlots":2,"duskSlots":3}]}`

	rec := f.do(&staff, &scope, http.MethodPut, "/tenant/business-hours", body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(&client, &scope, http.MethodGet, "/tenant/business-hours", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(&admin, &scope, http.MethodPut, "/tenant/business-hours", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(&staff, &scope, http.MethodGet, "/tenant/business-hours", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hours businessHours
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hours))
	require.Equal(t, []BusinessHoursRule{{Weekday: 1, SunriseSlots: 2, DuskSlots: 3}}, hours.Rules)

	rec = f.do(&admin, &scope, http.MethodPut, "/tenant/business-hours", `{"rules":[{"weekday":9,"sunriseSlots":1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
