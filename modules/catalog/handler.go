package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopkit/shopkit/modules/tenants"
	"github.com/shopkit/shopkit/pkg/accessctl"
	"github.com/shopkit/shopkit/pkg/binder"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/logger"
)

type handler struct {
	svc *Service
	log *slog.Logger
}

// TenantRouter mounts the tenant-scoped catalog under
// /tenants/{tenant_name}/products. Reads are public; writes require a
// tenant admin of that tenant.
func TenantRouter(g *guard.Guard, svc *Service, log *slog.Logger) chi.Router {
	h := handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{product_id}", h.get)
	r.With(g.RequireCapability(accessctl.CapabilityProductCreate)).Post("/", h.create)
	r.With(g.RequireCapability(accessctl.CapabilityProductUpdate)).Put("/{product_id}", h.update)
	r.With(g.RequireCapability(accessctl.CapabilityProductDelete)).Delete("/{product_id}", h.delete)
	return r
}

// GlobalRouter mounts the public cross-tenant catalog under /products.
func GlobalRouter(svc *Service, log *slog.Logger) chi.Router {
	h := handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Get("/", h.listAll)
	r.Get("/{product_id}", h.getGlobal)
	return r
}

type filterParams struct {
	Skip     int    `query:"skip"`
	Limit    int    `query:"limit"`
	Category string `query:"category"`
	Search   string `query:"search"`
}

func (p filterParams) filter() Filter {
	return Filter{Skip: p.Skip, Limit: p.Limit, Category: p.Category, Search: p.Search}
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	return id, err == nil && id > 0
}

func (h handler) create(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if err := binder.JSON(r, &input); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.Create(r.Context(), chi.URLParam(r, "tenant_name"), input)
	h.respond(w, r, p, err, http.StatusCreated)
}

func (h handler) list(w http.ResponseWriter, r *http.Request) {
	var params filterParams
	if err := binder.Query(r, &params); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	products, err := h.svc.List(r.Context(), chi.URLParam(r, "tenant_name"), params.filter())
	h.respond(w, r, products, err, http.StatusOK)
}

func (h handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "tenant_name"), id)
	h.respond(w, r, p, err, http.StatusOK)
}

func (h handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var update ProductUpdate
	if err := binder.JSON(r, &update); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "tenant_name"), id, update)
	h.respond(w, r, p, err, http.StatusOK)
}

func (h handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	err := h.svc.Delete(r.Context(), chi.URLParam(r, "tenant_name"), id)
	h.respond(w, r, map[string]string{"detail": "deleted"}, err, http.StatusOK)
}

func (h handler) listAll(w http.ResponseWriter, r *http.Request) {
	var params filterParams
	if err := binder.Query(r, &params); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	products, err := h.svc.ListAll(r.Context(), params.filter())
	h.respond(w, r, products, err, http.StatusOK)
}

func (h handler) getGlobal(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		binder.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.svc.GetGlobal(r.Context(), id)
	h.respond(w, r, p, err, http.StatusOK)
}

// respond translates service errors into transport responses in one place
// so every endpoint reports the same way.
func (h handler) respond(w http.ResponseWriter, r *http.Request, body any, err error, okStatus int) {
	switch {
	case err == nil:
		binder.WriteJSON(w, okStatus, body)
	case errors.Is(err, ErrInvalidProduct):
		binder.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound):
		binder.WriteError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, tenants.ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, ErrProductExists):
		binder.WriteError(w, http.StatusConflict, "product already exists")
	default:
		h.log.ErrorContext(r.Context(), "catalog request failed", logger.Error(err))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
