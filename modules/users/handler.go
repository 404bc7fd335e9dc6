package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopkit/shopkit/modules/catalog"
	"github.com/shopkit/shopkit/modules/tenants"
	"github.com/shopkit/shopkit/pkg/accessctl"
	"github.com/shopkit/shopkit/pkg/binder"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/identity"
	"github.com/shopkit/shopkit/pkg/keycloakadmin"
	"github.com/shopkit/shopkit/pkg/logger"
)

type handler struct {
	svc *Service
	log *slog.Logger
}

// Router mounts the public account endpoints and the self-scoped favourites
// routes.
func Router(g *guard.Guard, svc *Service, log *slog.Logger) chi.Router {
	h := handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)

	r.Route("/me/favourites", func(r chi.Router) {
		r.Use(g.RequireSelfCapability(accessctl.CapabilityFavouriteManage))
		r.Get("/", h.listFavourites)
		r.Post("/{product_id}", h.addFavourite)
		r.Delete("/{product_id}", h.removeFavourite)
	})
	return r
}

// TenantRouter mounts the tenant-user administration endpoints, all platform
// admin only. It expects a {tenant_name} URL parameter from the parent route.
func TenantRouter(g *guard.Guard, svc *Service, log *slog.Logger) chi.Router {
	h := handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(g.RequireCapability(accessctl.CapabilityUserManage))
	r.Get("/", h.listForTenant)
	r.Post("/", h.createInTenant)
	r.Post("/assign", h.assign)
	r.Put("/{user_id}", h.updateRole)
	r.Delete("/{user_id}", h.delete)
	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.Signup(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrInvalidInput):
		binder.WriteError(w, http.StatusBadRequest, "username and password are required")
	case errors.Is(err, ErrUserExists):
		binder.WriteError(w, http.StatusConflict, "user already exists")
	case err != nil:
		h.log.ErrorContext(r.Context(), "signup failed", logger.Error(err), logger.Username(req.Username))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusCreated, user)
	}
}

func (h handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrInvalidInput):
		binder.WriteError(w, http.StatusBadRequest, "username and password are required")
	case errors.Is(err, keycloakadmin.ErrInvalidCredentials):
		binder.WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case err != nil:
		h.log.ErrorContext(r.Context(), "login failed", logger.Error(err), logger.Username(req.Username))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, pair)
	}
}

type listParams struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

func (h handler) listFavourites(w http.ResponseWriter, r *http.Request) {
	var params listParams
	if err := binder.Query(r, &params); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}
	caller := identity.MustFromContext(r.Context())

	out, err := h.svc.ListFavourites(r.Context(), caller.Username, params.Skip, params.Limit)
	if err != nil {
		h.log.ErrorContext(r.Context(), "list favourites failed", logger.Error(err))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	binder.WriteJSON(w, http.StatusOK, out)
}

func (h handler) addFavourite(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	caller := identity.MustFromContext(r.Context())

	err := h.svc.AddFavourite(r.Context(), caller.Username, id)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		binder.WriteError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, ErrAlreadyFavourited):
		binder.WriteError(w, http.StatusConflict, "product already favourited")
	case err != nil:
		h.log.ErrorContext(r.Context(), "add favourite failed", logger.Error(err))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, map[string]string{"detail": "added"})
	}
}

func (h handler) removeFavourite(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	caller := identity.MustFromContext(r.Context())

	err := h.svc.RemoveFavourite(r.Context(), caller.Username, id)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, ErrNotFavourited):
		binder.WriteError(w, http.StatusNotFound, "favourite not found")
	case err != nil:
		h.log.ErrorContext(r.Context(), "remove favourite failed", logger.Error(err))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, map[string]string{"detail": "removed"})
	}
}

func (h handler) listForTenant(w http.ResponseWriter, r *http.Request) {
	var params listParams
	if err := binder.Query(r, &params); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}
	tenantName := chi.URLParam(r, guard.TenantURLParam)

	out, err := h.svc.ListForTenant(r.Context(), tenantName, params.Skip, params.Limit)
	switch {
	case errors.Is(err, tenants.ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case err != nil:
		h.log.ErrorContext(r.Context(), "list tenant users failed", logger.Error(err), logger.TenantName(tenantName))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, out)
	}
}

func (h handler) createInTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenantName := chi.URLParam(r, guard.TenantURLParam)

	user, err := h.svc.CreateInTenant(r.Context(), tenantName, req)
	switch {
	case errors.Is(err, ErrInvalidInput):
		binder.WriteError(w, http.StatusBadRequest, "username and password are required")
	case errors.Is(err, ErrUnknownRole):
		binder.WriteError(w, http.StatusBadRequest, "unknown role")
	case errors.Is(err, tenants.ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, ErrUserExists):
		binder.WriteError(w, http.StatusConflict, "user already exists")
	case err != nil:
		h.log.ErrorContext(r.Context(), "create tenant user failed", logger.Error(err), logger.TenantName(tenantName))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusCreated, user)
	}
}

type assignRequest struct {
	Username string        `json:"username"`
	Role     identity.Role `json:"role"`
}

func (h handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenantName := chi.URLParam(r, guard.TenantURLParam)

	user, err := h.svc.AssignToTenant(r.Context(), tenantName, req.Username, req.Role)
	h.respondUser(w, r, user, err, tenantName)
}

type updateRoleRequest struct {
	Role identity.Role `json:"role"`
}

func (h handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updateRoleRequest
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenantName := chi.URLParam(r, guard.TenantURLParam)

	user, err := h.svc.UpdateRole(r.Context(), tenantName, id, req.Role)
	h.respondUser(w, r, user, err, tenantName)
}

func (h handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	tenantName := chi.URLParam(r, guard.TenantURLParam)

	err := h.svc.Delete(r.Context(), tenantName, id)
	switch {
	case errors.Is(err, tenants.ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, ErrUserNotFound):
		binder.WriteError(w, http.StatusNotFound, "user not found")
	case err != nil:
		h.log.ErrorContext(r.Context(), "delete tenant user failed", logger.Error(err), logger.TenantName(tenantName))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, map[string]string{"detail": "deleted"})
	}
}

func (h handler) respondUser(w http.ResponseWriter, r *http.Request, user User, err error, tenantName string) {
	switch {
	case errors.Is(err, ErrUnknownRole):
		binder.WriteError(w, http.StatusBadRequest, "unknown role")
	case errors.Is(err, tenants.ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, ErrUserNotFound):
		binder.WriteError(w, http.StatusNotFound, "user not found")
	case err != nil:
		h.log.ErrorContext(r.Context(), "update tenant user failed", logger.Error(err), logger.TenantName(tenantName))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, user)
	}
}

func productID(r *http.Request) (int64, bool) {
	return parseID(chi.URLParam(r, "product_id"))
}

func userID(r *http.Request) (int64, bool) {
	return parseID(chi.URLParam(r, "user_id"))
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}
