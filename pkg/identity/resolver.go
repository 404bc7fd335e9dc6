package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// TokenVerifier validates a bearer token and returns its raw claims.
// *idtoken.Verifier satisfies this interface.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (map[string]any, error)
}

// Resolver turns a request credential into an Identity. A nil verifier
// means token verification is disabled (no key set endpoint configured) and
// only the debug path can succeed.
type Resolver struct {
	verifier TokenVerifier
	log      *slog.Logger
}

// ResolverOption configures the Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the diagnostics logger. Verification failure reasons are
// logged here and never surface to the caller.
func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a Resolver. verifier may be nil to disable the token path.
func NewResolver(verifier TokenVerifier, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		verifier: verifier,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve establishes the caller's identity from the presented credential.
//
// A present bearer token commits the request to the token path: any
// verification failure, including token verification being disabled, is
// Unauthenticated, never a silent fallback to the debug header. The debug
// path is consulted only when no token was presented at all.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) (Identity, error) {
	switch c := cred.(type) {
	case BearerToken:
		return r.resolveToken(ctx, c.Token)
	case DebugHeader:
		id, err := ParseDebugHeader(c.Value)
		if err != nil {
			r.log.DebugContext(ctx, "debug header rejected", "error", err)
			return Identity{}, errors.Join(ErrUnauthenticated, err)
		}
		return id, nil
	case Absent:
		return Identity{}, fmt.Errorf("%w: no credential presented", ErrUnauthenticated)
	default:
		return Identity{}, fmt.Errorf("%w: unknown credential type %T", ErrUnauthenticated, cred)
	}
}

func (r *Resolver) resolveToken(ctx context.Context, token string) (Identity, error) {
	if r.verifier == nil {
		return Identity{}, fmt.Errorf("%w: token verification is not configured", ErrUnauthenticated)
	}

	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		// The precise reason stays in the logs; the caller only learns 401.
		r.log.WarnContext(ctx, "token verification failed", "error", err)
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}

	id, err := FromClaims(claims)
	if err != nil {
		r.log.WarnContext(ctx, "verified token yielded no usable identity", "error", err)
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	return id, nil
}

// FromClaims maps a verified claim set onto the canonical identity triple:
//
//   - username: "preferred_username", else "sub"
//   - role: ordered precedence scan of "realm_access"."roles", default user
//   - tenant: "tenant" claim, else "tenant_name" ("tenant" wins when both exist)
func FromClaims(claims map[string]any) (Identity, error) {
	username, _ := claims["preferred_username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if username == "" {
		return Identity{}, ErrMissingUsernameClaim
	}

	id := Identity{
		Username: username,
		Role:     roleFromList(realmRoles(claims)),
		Tenant:   tenantClaim(claims),
	}
	if !id.valid() {
		return Identity{}, fmt.Errorf("%w: role %s carries no tenant claim", ErrMissingTenantClaim, id.Role)
	}
	return id, nil
}

// realmRoles extracts the role list from the realm_access claim.
func realmRoles(claims map[string]any) []string {
	access, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := access["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

func tenantClaim(claims map[string]any) string {
	if tenant, ok := claims["tenant"].(string); ok && tenant != "" {
		return tenant
	}
	tenant, _ := claims["tenant_name"].(string)
	return tenant
}
