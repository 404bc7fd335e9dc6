package identity

import (
	"fmt"
	"strings"
)

// debugFieldCount is the exact number of pipe-delimited fields in a debug
// header: username, role, tenant. The tenant field may be empty, but only
// for platform admins.
const debugFieldCount = 3

// ParseDebugHeader parses a development identity header of the form
// "username|role|tenant" into an Identity.
//
// This path exists purely to unblock local testing: it is a fallback used
// only when no bearer token is present, never an alternative to one.
func ParseDebugHeader(value string) (Identity, error) {
	parts := strings.Split(value, "|")
	if len(parts) != debugFieldCount {
		return Identity{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedDebugHeader, debugFieldCount, len(parts))
	}

	username := strings.TrimSpace(parts[0])
	if username == "" {
		return Identity{}, fmt.Errorf("%w: empty username", ErrMalformedDebugHeader)
	}

	role, ok := ParseRole(strings.TrimSpace(parts[1]))
	if !ok {
		return Identity{}, fmt.Errorf("%w: unrecognized role %q", ErrMalformedDebugHeader, parts[1])
	}

	id := Identity{
		Username: username,
		Role:     role,
		Tenant:   strings.TrimSpace(parts[2]),
	}
	if !id.valid() {
		return Identity{}, fmt.Errorf("%w: role %s requires a tenant", ErrMalformedDebugHeader, role)
	}
	return id, nil
}
