package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/studio-scheduler/platform/go/clock"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

const (
	// HeaderTenantMode selects the tenant mode of a request. Only "cross-tenant" is recognised.
	HeaderTenantMode = "X-Tenant-Mode"
	// HeaderTenantReason explains a cross-tenant request; it is logged with the request.
	HeaderTenantReason = "X-Tenant-Reason"
)

// Resolver looks up a registered tenant by its internal id.
// Implemented by the tenants service.
type Resolver interface {
	ResolveTenant(ctx context.Context, tenantID uuid.UUID) (tenant.Scope, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid DB hits; zero disables caching.
	CacheTTL time.Duration
	Clock    clock.Clock
}

// WithTenantScope resolves the viewer's tenant once per request and attaches tenant.Scope to context.
// A cross-tenant scope is attached instead only when the request asks for it explicitly
// and the viewer holds the platform:cross-tenant capability.
func WithTenantScope(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}

	var cache *scopeCache
	if cfg.CacheTTL > 0 {
		cache = newScopeCache(cfg.CacheTTL, cfg.Clock)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := platformlogging.FromRequest(r, zap.NewNop())

			v, ok := viewer.FromContext(r.Context())
			if !ok {
				problem.Unauthorized(w, "viewer context required")
				return
			}

			if mode := strings.TrimSpace(r.Header.Get(HeaderTenantMode)); mode != "" {
				if tenant.Mode(strings.ToLower(mode)) != tenant.ModeCrossTenant {
					problem.BadRequest(w, "unsupported tenant mode")
					return
				}
				if !v.Has(viewer.CapabilityCrossTenant) {
					logger.Warn("cross-tenant mode denied", zap.String("user_id", v.UserID))
					problem.Forbidden(w, "cross-tenant mode not permitted")
					return
				}

				reason := strings.TrimSpace(r.Header.Get(HeaderTenantReason))
				if reason == "" {
					reason = r.Method + " " + r.URL.Path
				}
				scope := tenant.CrossTenant(reason)
				logger = logger.With(zap.String("tenant_mode", string(scope.Mode)), zap.String("tenant_reason", scope.Reason))
				ctx := platformlogging.WithLogger(tenant.WithScope(r.Context(), scope), logger)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if v.TenantID == uuid.Nil {
				problem.Unauthorized(w, "tenant required")
				return
			}

			scope, hit := cache.get(v.TenantID)
			if !hit {
				resolved, err := resolver.ResolveTenant(r.Context(), v.TenantID)
				if err != nil {
					logger.Warn("resolve tenant", zap.String("tenant_id", v.TenantID.String()), zap.Error(err))
					problem.Unauthorized(w, "tenant not found")
					return
				}
				if !resolved.IsResolved() || resolved.TenantID != v.TenantID {
					problem.Forbidden(w, "tenant mismatch")
					return
				}
				scope = resolved
				cache.put(scope)
			}

			logger = logger.With(zap.String("tenant_id", scope.TenantID.String()))
			ctx := platformlogging.WithLogger(tenant.WithScope(r.Context(), scope), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type scopeCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock clock.Clock
	items map[uuid.UUID]cacheItem
}

type cacheItem struct {
	scope     tenant.Scope
	expiresAt time.Time
}

func newScopeCache(ttl time.Duration, clk clock.Clock) *scopeCache {
	return &scopeCache{ttl: ttl, clock: clk, items: make(map[uuid.UUID]cacheItem)}
}

func (c *scopeCache) get(id uuid.UUID) (tenant.Scope, bool) {
	if c == nil {
		return tenant.Scope{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return tenant.Scope{}, false
	}
	if c.clock.Now().After(item.expiresAt) {
		delete(c.items, id)
		return tenant.Scope{}, false
	}
	return item.scope, true
}

func (c *scopeCache) put(scope tenant.Scope) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items[scope.TenantID] = cacheItem{scope: scope, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}
