package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"

	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

// ErrInsufficientRole is returned when the operation's security scopes name roles the viewer lacks.
var ErrInsufficientRole = errors.New("insufficient role")

// ValidateAuthenticationViaSwagger satisfies operations that declare bearerAuth in the contract.
// The scopes listed on the security requirement are treated as accepted roles
// (ADMIN, STAFF, CLIENT, AGENT, CREW); an empty list admits any authenticated viewer.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != "bearerAuth" {
		return nil
	}

	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return fmt.Errorf("missing or invalid Authorization header")
	}

	if len(input.Scopes) == 0 {
		return nil
	}

	v, ok := viewer.FromContext(r.Context())
	if !ok {
		return fmt.Errorf("viewer context required")
	}
	return requireAnyRole(v, input.Scopes)
}

func requireAnyRole(v viewer.Viewer, roles []string) error {
	for _, raw := range roles {
		role := viewer.Role(strings.ToUpper(strings.TrimSpace(raw)))
		if v.Role == role {
			return nil
		}
		if role == viewer.RoleAdmin && v.Has(viewer.CapabilityAdmin) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in %v", ErrInsufficientRole, v.Role, roles)
}
