package orders

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopkit/shopkit/modules/tenants"
	"github.com/shopkit/shopkit/pkg/accessctl"
	"github.com/shopkit/shopkit/pkg/binder"
	"github.com/shopkit/shopkit/pkg/guard"
	"github.com/shopkit/shopkit/pkg/identity"
	"github.com/shopkit/shopkit/pkg/logger"
)

type handler struct {
	svc *Service
	log *slog.Logger
}

// Router mounts tenant-scoped ordering under /tenants/{tenant_name}/orders.
// Both endpoints require an authenticated member of the target tenant.
func Router(g *guard.Guard, svc *Service, log *slog.Logger) chi.Router {
	h := handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.With(g.RequireCapability(accessctl.CapabilityOrderCreate)).Post("/", h.create)
	r.With(g.RequireCapability(accessctl.CapabilityOrderList)).Get("/", h.list)
	return r
}

type createRequest struct {
	Items []ItemInput `json:"items"`
}

func (h handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := binder.JSON(r, &req); err != nil {
		binder.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := identity.MustFromContext(r.Context())
	order, err := h.svc.Create(r.Context(), chi.URLParam(r, guard.TenantURLParam), id.Username, req.Items)
	switch {
	case errors.Is(err, ErrEmptyOrder), errors.Is(err, ErrInvalidQuantity):
		binder.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		binder.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound):
		binder.WriteError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, tenants.ErrTenantNotFound):
		binder.WriteError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, ErrUserNotFound):
		binder.WriteError(w, http.StatusNotFound, "user not found")
	case err != nil:
		h.log.ErrorContext(r.Context(), "create order failed", logger.Error(err), logger.Username(id.Username))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		binder.WriteJSON(w, http.StatusCreated, order)
	}
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

	id := identity.MustFromContext(r.Context())
	out, err := h.svc.List(r.Context(), id.Username, params.Skip, params.Limit)
	if err != nil {
		h.log.ErrorContext(r.Context(), "list orders failed", logger.Error(err), logger.Username(id.Username))
		binder.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	binder.WriteJSON(w, http.StatusOK, out)
}
