package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	tenantsservice "github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
)

func TestContractsLoad(t *testing.T) {
	for _, name := range docSpecs {
		t.Run(name, func(t *testing.T) {
			spec, err := loadContract(name)
			require.NoError(t, err)
			require.NotEmpty(t, spec.Paths.Map())
			require.Contains(t, spec.Components.SecuritySchemes, "bearerAuth")
		})
	}

	_, err := loadContract("missing")
	require.Error(t, err)
}

func TestOpenAPIJSONRoute(t *testing.T) {
	r := chi.NewRouter()
	registerDocsRoutes(r, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi/bookings.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bookingsRange")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi/unknown.json", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/openapi/scheduler.json")
}

type slugResolverFunc func(ctx context.Context, slug string) (tenantsservice.Tenant, error)

func (f slugResolverFunc) GetBySlug(ctx context.Context, slug string) (tenantsservice.Tenant, error) {
	return f(ctx, slug)
}

func TestTenantClaimExtractor(t *testing.T) {
	id := uuid.New()
	extract := tenantClaimExtractor(slugResolverFunc(func(_ context.Context, slug string) (tenantsservice.Tenant, error) {
		if slug == "harbour-studio" {
			return tenantsservice.Tenant{ID: id, Slug: slug}, nil
		}
		return tenantsservice.Tenant{}, tenantsservice.ErrNotFound
	}))

	creds, err := extract(map[string]interface{}{"uid": "u1", "tenantId": "harbour-studio"})
	require.NoError(t, err)
	require.Equal(t, id.String(), *creds.TenantID)

	creds, err = extract(map[string]interface{}{"uid": "u1", "tenantId": id.String()})
	require.NoError(t, err)
	require.Equal(t, id.String(), *creds.TenantID)

	creds, err = extract(map[string]interface{}{"uid": "ops"})
	require.NoError(t, err)
	require.Nil(t, creds.TenantID)

	_, err = extract(map[string]interface{}{"uid": "u1", "tenantId": "unknown"})
	require.True(t, errors.Is(err, tenantsservice.ErrNotFound))
}
