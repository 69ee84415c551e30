package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	platformauth "github.com/zenGate-Global/studio-scheduler/platform/go/auth"
)

// Role is the viewer's relationship to the studio.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleStaff  Role = "STAFF"
	RoleClient Role = "CLIENT"
	RoleAgent  Role = "AGENT"
	RoleCrew   Role = "CREW"
)

// Capability is a named permission granted by the identity provider.
type Capability string

const (
	CapabilityAdmin       Capability = "admin"
	CapabilityViewAll     Capability = "bookings:view-all"
	CapabilityCrossTenant Capability = "platform:cross-tenant"
)

var ErrInvalidViewer = errors.New("invalid viewer context")

// Viewer is the verified caller as seen by the booking core.
type Viewer struct {
	UserID       string
	Role         Role
	TenantID     uuid.UUID
	ClientID     *uuid.UUID
	AgentID      *uuid.UUID
	CrewMemberID *uuid.UUID
	Capabilities map[Capability]struct{}
}

// Has reports whether the viewer holds the capability.
func (v Viewer) Has(c Capability) bool {
	_, ok := v.Capabilities[c]
	return ok
}

// Elevated reports whether the viewer may see every booking of the tenant unredacted.
func (v Viewer) Elevated() bool {
	return v.Role == RoleAdmin || v.Has(CapabilityAdmin) || v.Has(CapabilityViewAll)
}

// ScopeKey identifies every dimension that changes what the viewer is allowed to see.
// Two viewers with the same key receive identical projections of identical rows.
func (v Viewer) ScopeKey() string {
	return strings.Join([]string{
		"r=" + string(v.Role),
		"e=" + fmt.Sprint(v.Elevated()),
		"c=" + idOrDash(v.ClientID),
		"a=" + idOrDash(v.AgentID),
		"w=" + idOrDash(v.CrewMemberID),
	}, "|")
}

// CapabilityList returns the capabilities sorted for stable logging.
func (v Viewer) CapabilityList() []string {
	out := make([]string, 0, len(v.Capabilities))
	for c := range v.Capabilities {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// FromCredentials builds a Viewer from verified credentials.
// The tenant claim must already be the internal tenant UUID.
func FromCredentials(creds *platformauth.UserCredentials) (Viewer, error) {
	if creds == nil {
		return Viewer{}, fmt.Errorf("%w: credentials are required", ErrInvalidViewer)
	}

	v := Viewer{
		UserID:       creds.Id,
		Role:         Role(strings.ToUpper(strings.TrimSpace(creds.Role))),
		Capabilities: make(map[Capability]struct{}, len(creds.Capabilities)+1),
	}

	if creds.TenantID != nil && *creds.TenantID != "" {
		tid, err := uuid.Parse(*creds.TenantID)
		if err != nil {
			return Viewer{}, fmt.Errorf("%w: tenant id: %v", ErrInvalidViewer, err)
		}
		v.TenantID = tid
	}

	var err error
	if v.ClientID, err = parseOptionalID(creds.ClientID); err != nil {
		return Viewer{}, fmt.Errorf("%w: client id: %v", ErrInvalidViewer, err)
	}
	if v.AgentID, err = parseOptionalID(creds.AgentID); err != nil {
		return Viewer{}, fmt.Errorf("%w: agent id: %v", ErrInvalidViewer, err)
	}
	if v.CrewMemberID, err = parseOptionalID(creds.CrewMemberID); err != nil {
		return Viewer{}, fmt.Errorf("%w: crew member id: %v", ErrInvalidViewer, err)
	}

	for _, c := range creds.Capabilities {
		if c = strings.TrimSpace(c); c != "" {
			v.Capabilities[Capability(c)] = struct{}{}
		}
	}
	if creds.IsAdmin {
		v.Capabilities[CapabilityAdmin] = struct{}{}
	}

	if v.Role == "" {
		v.Role = inferRole(v)
	}

	return v, nil
}

// inferRole covers tokens minted before the role claim existed.
func inferRole(v Viewer) Role {
	switch {
	case v.Has(CapabilityAdmin):
		return RoleAdmin
	case v.ClientID != nil:
		return RoleClient
	case v.AgentID != nil:
		return RoleAgent
	case v.CrewMemberID != nil:
		return RoleCrew
	default:
		return RoleStaff
	}
}

func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func idOrDash(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

type ctxKey struct{}

// WithViewer stores the viewer on the context.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext retrieves the viewer from context, if present.
func FromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(ctxKey{}).(Viewer)
	return v, ok
}
