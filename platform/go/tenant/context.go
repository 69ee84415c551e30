package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Mode tells scoped storage how to treat the tenant predicate.
type Mode string

const (
	// ModeSingle restricts every scoped operation to TenantID.
	ModeSingle Mode = "single"
	// ModeCrossTenant disables the tenant predicate. It must be requested explicitly.
	ModeCrossTenant Mode = "cross-tenant"
)

// Scope captures the resolved tenant for a request or job.
// It is attached to the context once by middleware (or by the job runner) and
// passed explicitly into every scoped persistence call.
type Scope struct {
	TenantID uuid.UUID
	Slug     string
	Timezone string
	Mode     Mode
	// Reason is recorded for cross-tenant scopes so logs can explain why the predicate was lifted.
	Reason string
}

// ForTenant returns a single-tenant scope.
func ForTenant(id uuid.UUID) Scope {
	return Scope{TenantID: id, Mode: ModeSingle}
}

// CrossTenant returns a privileged scope without a tenant predicate.
// There is no implicit path to this value; callers must name the reason.
func CrossTenant(reason string) Scope {
	return Scope{Mode: ModeCrossTenant, Reason: strings.TrimSpace(reason)}
}

// IsCrossTenant reports whether the scope explicitly lifts the tenant predicate.
func (s Scope) IsCrossTenant() bool {
	return s.Mode == ModeCrossTenant && s.Reason != ""
}

// IsResolved reports whether the scope carries a usable single tenant.
func (s Scope) IsResolved() bool {
	return s.Mode == ModeSingle && s.TenantID != uuid.Nil
}

type ctxKey string

const scopeKey ctxKey = "STUDIO_TENANT_SCOPE"

// WithScope returns a derived context carrying the tenant Scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// FromContext extracts the tenant Scope and a boolean indicating presence.
func FromContext(ctx context.Context) (Scope, bool) {
	v := ctx.Value(scopeKey)
	if v == nil {
		return Scope{}, false
	}

	scope, ok := v.(Scope)
	return scope, ok
}

// CacheTag returns the invalidation tag shared by every cached booking read of a tenant.
func CacheTag(id uuid.UUID) string {
	return "tenant:" + id.String() + ":bookings"
}
