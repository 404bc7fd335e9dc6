package users_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/shopkit/modules/catalog"
	"github.com/shopkit/shopkit/modules/tenants"
	"github.com/shopkit/shopkit/modules/users"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/identity"
	"github.com/shopkit/shopkit/pkg/keycloakadmin"
)

// memStorage is an in-memory users.Storage.
type memStorage struct {
	seq        int64
	byUsername map[string]*users.User
	favourites map[string][]int64

	lastSkip, lastLimit int
}

func newMemStorage() *memStorage {
	return &memStorage{
		byUsername: map[string]*users.User{},
		favourites: map[string][]int64{},
	}
}

func (m *memStorage) Create(_ context.Context, username string, role identity.Role, tenantID *int64) (users.User, error) {
	if _, exists := m.byUsername[username]; exists {
		return users.User{}, fmt.Errorf("%w: %s", users.ErrUserExists, username)
	}
	m.seq++
	u := &users.User{ID: m.seq, Username: username, Role: role, TenantID: tenantID}
	m.byUsername[username] = u
	return *u, nil
}

func (m *memStorage) FindByUsername(_ context.Context, username string) (users.User, error) {
	u, ok := m.byUsername[username]
	if !ok {
		return users.User{}, fmt.Errorf("%w: %s", users.ErrUserNotFound, username)
	}
	return *u, nil
}

func (m *memStorage) FindInTenant(_ context.Context, userID, tenantID int64) (users.User, error) {
	for _, u := range m.byUsername {
		if u.ID == userID && u.TenantID != nil && *u.TenantID == tenantID {
			return *u, nil
		}
	}
	return users.User{}, fmt.Errorf("%w: id %d", users.ErrUserNotFound, userID)
}

func (m *memStorage) Update(_ context.Context, user users.User) (users.User, error) {
	u, ok := m.byUsername[user.Username]
	if !ok {
		return users.User{}, fmt.Errorf("%w: %s", users.ErrUserNotFound, user.Username)
	}
	*u = user
	return user, nil
}

func (m *memStorage) Delete(_ context.Context, userID int64) error {
	for name, u := range m.byUsername {
		if u.ID == userID {
			delete(m.byUsername, name)
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", users.ErrUserNotFound, userID)
}

func (m *memStorage) ListForTenant(_ context.Context, tenantID int64, skip, limit int) ([]users.User, error) {
	m.lastSkip, m.lastLimit = skip, limit
	out := []users.User{}
	for _, u := range m.byUsername {
		if u.TenantID != nil && *u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memStorage) AddFavourite(_ context.Context, username string, productID int64) error {
	for _, id := range m.favourites[username] {
		if id == productID {
			return fmt.Errorf("%w: product %d", users.ErrAlreadyFavourited, productID)
		}
	}
	m.favourites[username] = append(m.favourites[username], productID)
	return nil
}

func (m *memStorage) RemoveFavourite(_ context.Context, username string, productID int64) error {
	ids := m.favourites[username]
	for i, id := range ids {
		if id == productID {
			m.favourites[username] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: product %d", users.ErrNotFavourited, productID)
}

func (m *memStorage) ListFavourites(_ context.Context, username string, skip, limit int) ([]catalog.Product, error) {
	m.lastSkip, m.lastLimit = skip, limit
	out := []catalog.Product{}
	for _, id := range m.favourites[username] {
		out = append(out, catalog.Product{ID: id})
	}
	return out, nil
}

type staticDirectory map[string]tenants.Tenant

func (d staticDirectory) FindByName(_ context.Context, name string) (tenants.Tenant, error) {
	t, ok := d[name]
	if !ok {
		return tenants.Tenant{}, fmt.Errorf("%w: %s", tenants.ErrTenantNotFound, name)
	}
	return t, nil
}

type fakeProducts map[int64]catalog.Product

func (f fakeProducts) GetGlobal(_ context.Context, productID int64) (catalog.Product, error) {
	p, ok := f[productID]
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, productID)
	}
	return p, nil
}

// fakeAccounts records identity store calls and simulates configured
// failures.
type fakeAccounts struct {
	createErr error
	deleteErr error
	loginErr  error

	created   []string
	deleted   []string
	roleSwaps []string // "username old->new"
}

func (f *fakeAccounts) CreateUser(_ context.Context, username, password string, role identity.Role, _ string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, username)
	return nil
}

func (f *fakeAccounts) DeleteUser(_ context.Context, username string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, username)
	return nil
}

func (f *fakeAccounts) UpdateUserRole(_ context.Context, username string, oldRole, newRole identity.Role) error {
	f.roleSwaps = append(f.roleSwaps, fmt.Sprintf("%s %s->%s", username, oldRole, newRole))
	return nil
}

func (f *fakeAccounts) Login(_ context.Context, username, password string) (keycloakadmin.TokenPair, error) {
	if f.loginErr != nil {
		return keycloakadmin.TokenPair{}, f.loginErr
	}
	return keycloakadmin.TokenPair{AccessToken: "token-" + username, TokenType: "Bearer"}, nil
}

type fixture struct {
	storage  *memStorage
	accounts *fakeAccounts
	svc      *users.Service
}

func newFixture() fixture {
	storage := newMemStorage()
	accounts := &fakeAccounts{}
	dir := staticDirectory{
		"brandx": {ID: 1, Name: "brandx"},
		"nike":   {ID: 2, Name: "nike"},
	}
	products := fakeProducts{
		7: {ID: 7, TenantID: 1, Name: "air max", Price: 10},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{
		storage:  storage,
		accounts: accounts,
		svc:      users.NewService(storage, dir, products, accounts, log),
	}
}

func TestServiceSignup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates a regular user with no tenant", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		u, err := f.svc.Signup(ctx, "bob", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleUser, u.Role)
		assert.Nil(t, u.TenantID)
		assert.Equal(t, []string{"bob"}, f.accounts.created)
	})

	t.Run("existing identity store entry is synced, not an error", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.accounts.createErr = keycloakadmin.ErrUserExists
		u, err := f.svc.Signup(ctx, "bob", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "bob", u.Username)
	})

	t.Run("duplicate username", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		_, err := f.svc.Signup(ctx, "bob", "s3cret")
		require.NoError(t, err)
		_, err = f.svc.Signup(ctx, "bob", "other")
		assert.ErrorIs(t, err, users.ErrUserExists)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		_, err := f.svc.Signup(ctx, "", "s3cret")
		assert.ErrorIs(t, err, users.ErrInvalidInput)
		_, err = f.svc.Signup(ctx, "bob", "")
		assert.ErrorIs(t, err, users.ErrInvalidInput)
	})

	t.Run("identity store outage aborts signup", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.accounts.createErr = errors.New("connection refused")
		_, err := f.svc.Signup(ctx, "bob", "s3cret")
		require.Error(t, err)
		_, err = f.storage.FindByUsername(ctx, "bob")
		assert.ErrorIs(t, err, users.ErrUserNotFound, "no local record without an identity store entry")
	})
}

func TestServiceTenantUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create binds to the tenant", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		u, err := f.svc.CreateInTenant(ctx, "brandx", users.CreateInput{
			Username: "alice", Password: "s3cret", Role: identity.RoleTenantAdmin,
		})
		require.NoError(t, err)
		require.NotNil(t, u.TenantID)
		assert.EqualValues(t, 1, *u.TenantID)
	})

	t.Run("unknown role", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		_, err := f.svc.CreateInTenant(ctx, "brandx", users.CreateInput{
			Username: "alice", Password: "s3cret", Role: "superuser",
		})
		assert.ErrorIs(t, err, users.ErrUnknownRole)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		_, err := f.svc.CreateInTenant(ctx, "ghost", users.CreateInput{
			Username: "alice", Password: "s3cret", Role: identity.RoleUser,
		})
		assert.ErrorIs(t, err, tenants.ErrTenantNotFound)
	})

	t.Run("role change swaps the identity store role", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		u, err := f.svc.CreateInTenant(ctx, "brandx", users.CreateInput{
			Username: "alice", Password: "s3cret", Role: identity.RoleTenantAdmin,
		})
		require.NoError(t, err)

		updated, err := f.svc.UpdateRole(ctx, "brandx", u.ID, identity.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleUser, updated.Role)
		assert.Nil(t, updated.TenantID, "non tenant_admin roles drop the tenant binding")
		assert.Equal(t, []string{"alice tenant_admin->user"}, f.accounts.roleSwaps)
	})

	t.Run("unchanged role skips the identity store", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		u, err := f.svc.CreateInTenant(ctx, "brandx", users.CreateInput{
			Username: "alice", Password: "s3cret", Role: identity.RoleTenantAdmin,
		})
		require.NoError(t, err)

		_, err = f.svc.UpdateRole(ctx, "brandx", u.ID, identity.RoleTenantAdmin)
		require.NoError(t, err)
		assert.Empty(t, f.accounts.roleSwaps)
	})

	t.Run("assign promotes an untenanted user", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		_, err := f.svc.Signup(ctx, "bob", "s3cret")
		require.NoError(t, err)

		u, err := f.svc.AssignToTenant(ctx, "nike", "bob", identity.RoleTenantAdmin)
		require.NoError(t, err)
		require.NotNil(t, u.TenantID)
		assert.EqualValues(t, 2, *u.TenantID)
		assert.Equal(t, []string{"bob user->tenant_admin"}, f.accounts.roleSwaps)
	})

	t.Run("delete survives an identity store failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		u, err := f.svc.CreateInTenant(ctx, "brandx", users.CreateInput{
			Username: "alice", Password: "s3cret", Role: identity.RoleTenantAdmin,
		})
		require.NoError(t, err)

		f.accounts.deleteErr = errors.New("connection refused")
		require.NoError(t, f.svc.Delete(ctx, "brandx", u.ID))
		_, err = f.storage.FindByUsername(ctx, "alice")
		assert.ErrorIs(t, err, users.ErrUserNotFound)
	})

	t.Run("list clamps pagination", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		_, err := f.svc.ListForTenant(ctx, "brandx", -3, 5000)
		require.NoError(t, err)
		assert.Equal(t, 0, f.storage.lastSkip)
		assert.Equal(t, 100, f.storage.lastLimit)
	})
}

func TestServiceFavourites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("add and remove", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		require.NoError(t, f.svc.AddFavourite(ctx, "bob", 7))

		out, err := f.svc.ListFavourites(ctx, "bob", 0, 0)
		require.NoError(t, err)
		require.Len(t, out, 1)

		require.NoError(t, f.svc.RemoveFavourite(ctx, "bob", 7))
	})

	t.Run("unknown product", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		err := f.svc.AddFavourite(ctx, "bob", 999)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("double favourite", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		require.NoError(t, f.svc.AddFavourite(ctx, "bob", 7))
		err := f.svc.AddFavourite(ctx, "bob", 7)
		assert.ErrorIs(t, err, users.ErrAlreadyFavourited)
	})

	t.Run("remove without add", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		err := f.svc.RemoveFavourite(ctx, "bob", 7)
		assert.ErrorIs(t, err, users.ErrNotFavourited)
	})
}

func newTestRouter(f fixture) http.Handler {
	g := guard.New(identity.NewResolver(nil))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Mount("/users", users.Router(g, f.svc, log))
	r.Route("/tenants/{tenant_name}/users", func(r chi.Router) {
		r.Mount("/", users.TenantRouter(g, f.svc, log))
	})
	return r
}

func doJSON(router http.Handler, method, path, body, debugIdentity string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugIdentity != "" {
		req.Header.Set(identity.DebugHeaderName, debugIdentity)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("signup is public", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		rec := doJSON(router, "POST", "/users/signup", `{"username":"bob","password":"s3cret"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"role":"user"`)
	})

	t.Run("login returns tokens", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		rec := doJSON(router, "POST", "/users/login", `{"username":"bob","password":"s3cret"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "token-bob")
	})

	t.Run("bad credentials map to 401", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.accounts.loginErr = keycloakadmin.ErrInvalidCredentials
		router := newTestRouter(f)
		rec := doJSON(router, "POST", "/users/login", `{"username":"bob","password":"wrong"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("favourites require authentication", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		rec := doJSON(router, "GET", "/users/me/favourites/", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("favourites round trip", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		caller := "bob|user|brandx"

		rec := doJSON(router, "POST", "/users/me/favourites/7", "", caller)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(router, "GET", "/users/me/favourites/", "", caller)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":7`)

		rec = doJSON(router, "DELETE", "/users/me/favourites/7", "", caller)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown product favourite", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		rec := doJSON(router, "POST", "/users/me/favourites/999", "", "bob|user|brandx")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("tenant user admin is platform only", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		body := `{"username":"alice","password":"s3cret","role":"tenant_admin"}`

		rec := doJSON(router, "POST", "/tenants/brandx/users/", body, "alice|tenant_admin|brandx")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(router, "POST", "/tenants/brandx/users/", body, "root|platform_admin|")
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("role update endpoint", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		router := newTestRouter(f)

		rec := doJSON(router, "POST", "/tenants/brandx/users/",
			`{"username":"alice","password":"s3cret","role":"tenant_admin"}`, "root|platform_admin|")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(router, "PUT", "/tenants/brandx/users/1", `{"role":"user"}`, "root|platform_admin|")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"role":"user"`)
	})

	t.Run("delete unknown user", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(newFixture())
		rec := doJSON(router, "DELETE", "/tenants/brandx/users/42", "", "root|platform_admin|")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
