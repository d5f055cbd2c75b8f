package report

import (
	"context"
	"errors"
	"net/http"

	"qbank/internal/app/apiresp"
	"qbank/internal/event"
	"qbank/internal/policy"
)

type dashboardService interface {
	Dashboard(ctx context.Context, scope event.Scope) (*Dashboard, error)
}

type Handler struct {
	svc dashboardService
}

func NewHandler(svc dashboardService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusNotFound, "event not found")
		return
	}
	d, err := h.svc.Dashboard(r.Context(), scope)
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			apiresp.WriteError(w, r, http.StatusNotFound, "event not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, NewDashboardView(d))
}
