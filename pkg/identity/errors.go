package identity

import "errors"

var (
	// ErrUnauthenticated is the single outcome every failed resolution
	// collapses to. The underlying causes are wrapped for diagnostics but
	// must never be echoed to the caller.
	ErrUnauthenticated = errors.New("identity: unauthenticated")

	// ErrMalformedDebugHeader is returned when the development identity
	// header has the wrong field count, an unrecognized role, or a missing
	// tenant for a tenant-scoped role.
	ErrMalformedDebugHeader = errors.New("identity: malformed debug header")

	// ErrMissingUsernameClaim is returned when a verified token carries
	// neither preferred_username nor sub.
	ErrMissingUsernameClaim = errors.New("identity: token missing username claim")

	// ErrMissingTenantClaim is returned when a tenant-scoped role arrives
	// without a tenant claim.
	ErrMissingTenantClaim = errors.New("identity: token missing tenant claim")
)
