package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
	"qbank/internal/event"
	"qbank/internal/policy"
)

type exporter interface {
	ExportQuestions(ctx context.Context, scope event.Scope, ids []int64) ([]byte, error)
}

type Handler struct {
	svc exporter
}

type exportRequest struct {
	IDs []int64 `json:"ids"`
}

func NewHandler(svc exporter) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusNotFound, "event not found")
		return
	}
	var req exportRequest
	if r.ContentLength != 0 {
		if err := validate.DecodeJSON(r, &req); err != nil {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	data, err := h.svc.ExportQuestions(r.Context(), scope, req.IDs)
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			apiresp.WriteError(w, r, http.StatusNotFound, "event not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	name := fmt.Sprintf("questions-%d-%s.xlsx", scope.EventID, time.Now().Format("20060102"))
	apiresp.WriteAttachment(w, apiresp.XLSXContentType, name, data)
}
