package guard

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopkit/shopkit/pkg/accessctl"
	"github.com/shopkit/shopkit/pkg/identity"
)

// IdentityResolver establishes a caller identity from a request credential.
// *identity.Resolver satisfies this interface.
type IdentityResolver interface {
	Resolve(ctx context.Context, cred identity.Credential) (identity.Identity, error)
}

// Guard is the single per-request entry point the routing layer calls: one
// identity resolution followed by one authorization decision.
type Guard struct {
	resolver IdentityResolver
	log      *slog.Logger
}

// Option configures the Guard.
type Option func(*Guard)

// WithLogger sets the diagnostics logger for denied requests.
func WithLogger(log *slog.Logger) Option {
	return func(g *Guard) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates a Guard. Panics on a nil resolver since the guard cannot
// establish identities without one.
func New(resolver IdentityResolver, opts ...Option) *Guard {
	if resolver == nil {
		panic("guard: nil identity resolver")
	}
	g := &Guard{
		resolver: resolver,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ResolveAndAuthorize establishes the caller's identity and checks it
// against the capability in one pass.
//
// Failures split into exactly two outcomes: ErrUnauthenticated when no
// identity could be established, and ErrForbidden when an identity was
// established but the action is disallowed. The deny reason is wrapped for
// diagnostics, never meant for the response body.
func (g *Guard) ResolveAndAuthorize(ctx context.Context, cred identity.Credential, targetTenant string, capability accessctl.Capability) (identity.Identity, error) {
	id, err := g.resolver.Resolve(ctx, cred)
	if err != nil {
		return identity.Identity{}, err
	}
	if err := g.authorize(ctx, id, targetTenant, capability); err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

func (g *Guard) authorize(ctx context.Context, id identity.Identity, targetTenant string, capability accessctl.Capability) error {
	decision := accessctl.Authorize(id, targetTenant, capability)
	if !decision.Allowed {
		g.log.InfoContext(ctx, "request denied",
			"username", id.Username,
			"role", string(id.Role),
			"target_tenant", targetTenant,
			"capability", string(capability),
			"reason", string(decision.Reason),
		)
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return nil
}
