// Package identity turns a request credential into a caller identity.
//
// A request carries at most one usable credential: a bearer token issued by
// the identity provider, or the X-Debug-Identity development header. The
// resolver inspects the token first and only consults the debug header when
// no token is present. A token that fails verification never falls back to
// the header.
//
// # Identity
//
// An Identity has a username, a role and, except for platform admins, a
// tenant. Roles are mapped from the realm roles carried in the token; the
// highest recognized privilege wins and unrecognized roles are ignored.
//
// # Usage
//
//	import "github.com/shopkit/shopkit/pkg/identity"
//
//	resolver := identity.NewResolver(verifier)
//
//	cred := identity.CredentialFromRequest(r)
//	id, err := resolver.Resolve(r.Context(), cred)
//	if err != nil {
//		// respond 401; err wraps identity.ErrUnauthenticated
//	}
//
//	ctx := identity.WithIdentity(r.Context(), id)
//
// All resolution failures wrap ErrUnauthenticated so callers can answer with
// a single status code without inspecting the cause.
package identity
