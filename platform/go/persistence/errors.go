package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// AuthorizationError is returned when a scoped operation cannot be tied to the caller's tenant.
// It is fatal for the request and must not be retried.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "tenant authorization failed: " + e.Reason
}

var (
	// ErrTenantScopeRequired indicates that no tenant was resolved and no explicit cross-tenant mode was requested.
	ErrTenantScopeRequired = &AuthorizationError{Reason: "tenant scope required"}
	// ErrCrossTenantWrite indicates a payload or filter assignment targeting a different tenant.
	ErrCrossTenantWrite = &AuthorizationError{Reason: "payload references another tenant"}
	// ErrUnscopedKind indicates a request for a table outside the closed set of tenant-scoped kinds.
	ErrUnscopedKind = errors.New("entity kind is not tenant scoped")
	// ErrTenantNotFound indicates the owning tenant row does not exist.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantConflict indicates a duplicated tenant slug.
	ErrTenantConflict = errors.New("tenant conflict")
	// ErrBookingNotFound indicates a missing booking in the current tenant.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrBookingConflict indicates a booking id already taken, possibly by another tenant.
	ErrBookingConflict = errors.New("booking conflict")
	// ErrContactNotFound indicates a missing contact in the current tenant.
	ErrContactNotFound = errors.New("contact not found")
	// ErrContactConflict indicates a duplicated contact email in the current tenant.
	ErrContactConflict = errors.New("contact conflict")
)

// IsAuthorizationError reports whether err is a tenant authorization failure.
func IsAuthorizationError(err error) bool {
	var authErr *AuthorizationError
	return errors.As(err, &authErr)
}

func crossTenantError(field string) error {
	return fmt.Errorf("%w (%s)", ErrCrossTenantWrite, field)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
