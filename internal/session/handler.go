package session

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
	"qbank/internal/event"
	"qbank/internal/policy"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc Assembler
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type createSessionRequest struct {
	Title             string     `json:"title" validate:"required,min=5"`
	NumberOfQuestions int        `json:"number_of_questions" validate:"required,min=1"`
	Type              string     `json:"type" validate:"required,oneof=mcq true_false short_answer long_answer"`
	Difficulty        string     `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Round             int        `json:"round" validate:"required,min=1"`
	StartsAt          *time.Time `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at"`
}

func NewHandler(svc Assembler) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	items, err := h.svc.ListSessions(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewViews(items)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.GetSession(r.Context(), scope, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(sess)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	var req createSessionRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	out, err := h.svc.CreateSession(r.Context(), scope, CreateInput{
		Title:             req.Title,
		Difficulty:        req.Difficulty,
		Type:              req.Type,
		Round:             req.Round,
		NumberOfQuestions: req.NumberOfQuestions,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: map[string]interface{}{
		"session":  NewView(out.Session),
		"assigned": out.Assigned,
	}})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.StartSession(r.Context(), scope, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(sess)})
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.EndSession(r.Context(), scope, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(sess)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSession(r.Context(), scope, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func scopeAndID(w http.ResponseWriter, r *http.Request) (event.Scope, int64, bool) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return scope, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid session id"})
		return scope, 0, false
	}
	return scope, id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoQuestions):
		writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		writeJSON(w, r, http.StatusConflict, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, policy.ErrDenied):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrSessionNotFound.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
