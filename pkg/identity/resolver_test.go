package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/shopkit/pkg/identity"
)

// fakeVerifier returns canned claims or a canned error and records whether
// it was consulted at all.
type fakeVerifier struct {
	claims map[string]any
	err    error
	called bool
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (map[string]any, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func tokenClaims(overrides map[string]any) map[string]any {
	claims := map[string]any{
		"preferred_username": "alice",
		"sub":                "subject-id",
		"realm_access":       map[string]any{"roles": []any{"user"}},
		"tenant":             "brandx",
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(&fakeVerifier{claims: tokenClaims(nil)})
		id, err := r.Resolve(ctx, identity.BearerToken{Token: "tok"})
		require.NoError(t, err)
		assert.Equal(t, identity.Identity{Username: "alice", Role: identity.RoleUser, Tenant: "brandx"}, id)
	})

	t.Run("failed token never falls back", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(&fakeVerifier{err: errors.New("bad signature")})
		_, err := r.Resolve(ctx, identity.BearerToken{Token: "tok"})
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("debug header never consulted when token present", func(t *testing.T) {
		t.Parallel()

		v := &fakeVerifier{err: errors.New("bad signature")}
		r := identity.NewResolver(v)
		cred := identity.CredentialFromHeaders("Bearer tok", "alice|tenant_admin|brandx")

		_, err := r.Resolve(ctx, cred)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
		assert.True(t, v.called, "token path must run")
	})

	t.Run("token without verifier configured", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(nil)
		_, err := r.Resolve(ctx, identity.BearerToken{Token: "tok"})
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("debug header path", func(t *testing.T) {
		t.Parallel()

		v := &fakeVerifier{claims: tokenClaims(nil)}
		r := identity.NewResolver(v)
		id, err := r.Resolve(ctx, identity.DebugHeader{Value: "bob|tenant_admin|brandy"})
		require.NoError(t, err)
		assert.Equal(t, identity.Identity{Username: "bob", Role: identity.RoleTenantAdmin, Tenant: "brandy"}, id)
		assert.False(t, v.called, "verifier must stay idle on the debug path")
	})

	t.Run("malformed debug header", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(nil)
		_, err := r.Resolve(ctx, identity.DebugHeader{Value: "not-a-triple"})
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
		assert.ErrorIs(t, err, identity.ErrMalformedDebugHeader)
	})

	t.Run("absent credential", func(t *testing.T) {
		t.Parallel()

		r := identity.NewResolver(&fakeVerifier{claims: tokenClaims(nil)})
		_, err := r.Resolve(ctx, identity.Absent{})
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})
}

func TestFromClaims(t *testing.T) {
	t.Parallel()

	t.Run("preferred_username wins over sub", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(nil))
		require.NoError(t, err)
		assert.Equal(t, "alice", id.Username)
	})

	t.Run("falls back to sub", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{"preferred_username": nil}))
		require.NoError(t, err)
		assert.Equal(t, "subject-id", id.Username)
	})

	t.Run("no username claim", func(t *testing.T) {
		t.Parallel()

		_, err := identity.FromClaims(tokenClaims(map[string]any{
			"preferred_username": nil,
			"sub":                nil,
		}))
		assert.ErrorIs(t, err, identity.ErrMissingUsernameClaim)
	})

	t.Run("platform_admin wins over tenant_admin", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{
			"realm_access": map[string]any{"roles": []any{"offline_access", "tenant_admin", "platform_admin"}},
			"tenant":       nil,
		}))
		require.NoError(t, err)
		assert.Equal(t, identity.RolePlatformAdmin, id.Role)
		assert.Empty(t, id.Tenant)
	})

	t.Run("tenant_admin recognized among noise", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{
			"realm_access": map[string]any{"roles": []any{"uma_authorization", "tenant_admin"}},
		}))
		require.NoError(t, err)
		assert.Equal(t, identity.RoleTenantAdmin, id.Role)
	})

	t.Run("unrecognized roles default to user", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{
			"realm_access": map[string]any{"roles": []any{"offline_access"}},
		}))
		require.NoError(t, err)
		assert.Equal(t, identity.RoleUser, id.Role)
	})

	t.Run("missing realm_access defaults to user", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{"realm_access": nil}))
		require.NoError(t, err)
		assert.Equal(t, identity.RoleUser, id.Role)
	})

	t.Run("tenant claim wins over tenant_name", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{
			"tenant":      "brandx",
			"tenant_name": "brandy",
		}))
		require.NoError(t, err)
		assert.Equal(t, "brandx", id.Tenant)
	})

	t.Run("tenant_name alone is accepted", func(t *testing.T) {
		t.Parallel()

		id, err := identity.FromClaims(tokenClaims(map[string]any{
			"tenant":      nil,
			"tenant_name": "brandy",
		}))
		require.NoError(t, err)
		assert.Equal(t, "brandy", id.Tenant)
	})

	t.Run("tenant-scoped role without tenant claim", func(t *testing.T) {
		t.Parallel()

		_, err := identity.FromClaims(tokenClaims(map[string]any{"tenant": nil}))
		assert.ErrorIs(t, err, identity.ErrMissingTenantClaim)
	})
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		want := identity.Identity{Username: "alice", Role: identity.RoleUser, Tenant: "brandx"}
		ctx := identity.WithIdentity(context.Background(), want)

		got, ok := identity.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("missing identity", func(t *testing.T) {
		t.Parallel()

		_, ok := identity.FromContext(context.Background())
		assert.False(t, ok)
		assert.Panics(t, func() { identity.MustFromContext(context.Background()) })
	})
}
