package guard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/shopkit/pkg/accessctl"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/identity"
)

// stubResolver returns a fixed identity or error regardless of credential.
type stubResolver struct {
	id  identity.Identity
	err error
}

func (s stubResolver) Resolve(_ context.Context, _ identity.Credential) (identity.Identity, error) {
	return s.id, s.err
}

func TestResolveAndAuthorize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("allowed request returns identity", func(t *testing.T) {
		t.Parallel()

		want := identity.Identity{Username: "bob", Role: identity.RoleUser, Tenant: "brandx"}
		g := guard.New(stubResolver{id: want})

		id, err := g.ResolveAndAuthorize(ctx, identity.Absent{}, "brandx", accessctl.CapabilityOrderCreate)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	})

	t.Run("resolution failure is unauthenticated", func(t *testing.T) {
		t.Parallel()

		g := guard.New(stubResolver{err: identity.ErrUnauthenticated})

		_, err := g.ResolveAndAuthorize(ctx, identity.Absent{}, "brandx", accessctl.CapabilityOrderCreate)
		assert.ErrorIs(t, err, guard.ErrUnauthenticated)
		assert.NotErrorIs(t, err, guard.ErrForbidden)
	})

	t.Run("denied decision is forbidden", func(t *testing.T) {
		t.Parallel()

		id := identity.Identity{Username: "bob", Role: identity.RoleUser, Tenant: "brandx"}
		g := guard.New(stubResolver{id: id})

		_, err := g.ResolveAndAuthorize(ctx, identity.Absent{}, "nike", accessctl.CapabilityOrderCreate)
		assert.ErrorIs(t, err, guard.ErrForbidden)
		assert.NotErrorIs(t, err, guard.ErrUnauthenticated)
	})

	t.Run("nil resolver panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { guard.New(nil) })
	})
}

func TestRequireCapability(t *testing.T) {
	t.Parallel()

	newRouter := func(g *guard.Guard, capability accessctl.Capability, handler http.HandlerFunc) chi.Router {
		r := chi.NewRouter()
		r.Route("/tenants/{tenant_name}/orders", func(r chi.Router) {
			r.Use(g.RequireCapability(capability))
			r.Post("/", handler)
		})
		return r
	}

	t.Run("injects identity into context", func(t *testing.T) {
		t.Parallel()

		want := identity.Identity{Username: "bob", Role: identity.RoleUser, Tenant: "brandx"}
		g := guard.New(stubResolver{id: want})

		var got identity.Identity
		router := newRouter(g, accessctl.CapabilityOrderCreate, func(w http.ResponseWriter, r *http.Request) {
			got = identity.MustFromContext(r.Context())
			w.WriteHeader(http.StatusCreated)
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/tenants/brandx/orders", nil))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, want, got)
	})

	t.Run("unauthenticated yields 401 with generic body", func(t *testing.T) {
		t.Parallel()

		cause := errors.Join(identity.ErrUnauthenticated, errors.New("signature verification failed for kid abc"))
		g := guard.New(stubResolver{err: cause})

		router := newRouter(g, accessctl.CapabilityOrderCreate, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/tenants/brandx/orders", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "signature")
	})

	t.Run("forbidden yields 403 without deny reason", func(t *testing.T) {
		t.Parallel()

		id := identity.Identity{Username: "bob", Role: identity.RoleUser, Tenant: "brandx"}
		g := guard.New(stubResolver{id: id})

		router := newRouter(g, accessctl.CapabilityOrderCreate, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/tenants/nike/orders", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "tenant_mismatch")
	})

	t.Run("tenant param feeds the decision", func(t *testing.T) {
		t.Parallel()

		id := identity.Identity{Username: "alice", Role: identity.RoleTenantAdmin, Tenant: "brandx"}
		g := guard.New(stubResolver{id: id})

		r := chi.NewRouter()
		r.Route("/tenants/{tenant_name}/products", func(r chi.Router) {
			r.Use(g.RequireCapability(accessctl.CapabilityProductCreate))
			r.Post("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("POST", "/tenants/brandx/products", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("POST", "/tenants/nike/products", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireSelfCapability(t *testing.T) {
	t.Parallel()

	t.Run("authorizes against caller's own tenant", func(t *testing.T) {
		t.Parallel()

		id := identity.Identity{Username: "bob", Role: identity.RoleUser, Tenant: "brandx"}
		g := guard.New(stubResolver{id: id})

		r := chi.NewRouter()
		r.Route("/users/me/favourites", func(r chi.Router) {
			r.Use(g.RequireSelfCapability(accessctl.CapabilityFavouriteManage))
			r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/users/me/favourites", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("still rejects unauthenticated callers", func(t *testing.T) {
		t.Parallel()

		g := guard.New(stubResolver{err: identity.ErrUnauthenticated})

		r := chi.NewRouter()
		r.With(g.RequireSelfCapability(accessctl.CapabilityFavouriteManage)).
			Get("/users/me/favourites", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/users/me/favourites", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// TestEndToEndPrecedence wires a real identity resolver behind the guard and
// shows a failed bearer token is never rescued by a valid debug header.
func TestEndToEndPrecedence(t *testing.T) {
	t.Parallel()

	resolver := identity.NewResolver(failingVerifier{})
	g := guard.New(resolver)

	r := chi.NewRouter()
	r.Route("/tenants/{tenant_name}/orders", func(r chi.Router) {
		r.Use(g.RequireCapability(accessctl.CapabilityOrderList))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	req := httptest.NewRequest("GET", "/tenants/brandx/orders", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	req.Header.Set(identity.DebugHeaderName, "bob|user|brandx")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Without the token the same debug header authenticates.
	req = httptest.NewRequest("GET", "/tenants/brandx/orders", nil)
	req.Header.Set(identity.DebugHeaderName, "bob|user|brandx")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingVerifier struct{}

func (failingVerifier) Verify(_ context.Context, _ string) (map[string]any, error) {
	return nil, errors.New("bad signature")
}
