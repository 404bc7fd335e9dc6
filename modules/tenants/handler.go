package tenants

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopkit/shopkit/pkg/accessctl"
	"github.com/shopkit/shopkit/pkg/binder"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/logger"
)

type handler struct {
	svc *Service
	log *slog.Logger
}

// Router mounts the tenant lifecycle endpoints, all platform-admin only.
// Nested configurators attach tenant-scoped sub-resources (products, orders,
// users) under /{tenant_name} so the whole subtree shares one param.
func Router(g *guard.Guard, svc *Service, log *slog.Logger, nested ...func(chi.Router)) chi.Router {
	h := handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.With(g.RequireCapability(accessctl.CapabilityTenantList)).Get("/", h.list)
	r.With(g.RequireCapability(accessctl.CapabilityTenantCreate)).Post("/", h.create)
	r.Route("/{tenant_name}", func(r chi.Router) {
		r.With(g.RequireCapability(accessctl.CapabilityTenantDelete)).Delete("/", h.delete)
		for _, attach := range nested {
			attach(r)
		}
	})
	return r
}

type listParams struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

func (h handler) list(w http.ResponseWriter, r *http.Request) {
	var params listParams
	if err := binder.Query(r, &params); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	out, err := h.svc.List(r.Context(), params.Skip, params.Limit)
	if err != nil {
		h.log.ErrorContext(r.Context(), "list tenants failed", logger.Error(err))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	binder.WriteJSON(w, http.StatusOK, out)
}

type createRequest struct {
	Name string `json:"name"`
}

func (h handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.svc.Create(r.Context(), req.Name)
	switch {
	case errors.Is(err, ErrInvalidName):
		binder.WriteError(w, http.StatusBadRequest, "tenant name is required")
	case errors.Is(err, ErrTenantExists):
		binder.WriteError(w, http.StatusConflict, "tenant already exists")
	case err != nil:
		h.log.ErrorContext(r.Context(), "create tenant failed", logger.Error(err))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusCreated, tenant)
	}
}

func (h handler) delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tenant_name")

	err := h.svc.Delete(r.Context(), name)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case err != nil:
		h.log.ErrorContext(r.Context(), "delete tenant failed", logger.Error(err), logger.TenantName(name))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusOK, map[string]string{"detail": "deleted"})
	}
}
