package event

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
	"qbank/internal/auth"
	"qbank/internal/policy"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const scopeContextKey contextKey = "event_scope"

const dateLayout = "2006-01-02"

type Handler struct {
	svc eventService
}

type eventService interface {
	GetEvent(ctx context.Context, eventID int64) (*Event, error)
	CurrentEvent(ctx context.Context, u *auth.User, sessionKey string) (*Event, error)
	SwitchEvent(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (*Event, error)
	ResolveScope(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (Scope, error)
	CreateEvent(ctx context.Context, u *auth.User, sessionKey string, in Input) (*Event, error)
	UpdateEvent(ctx context.Context, scope Scope, in Input) (*Event, error)
	DeleteEvent(ctx context.Context, scope Scope) error
	ListUserEvents(ctx context.Context, u *auth.User) ([]Event, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type eventRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	StartsOn string `json:"starts_on" validate:"omitempty,datetime=2006-01-02"`
	EndsOn   string `json:"ends_on" validate:"omitempty,datetime=2006-01-02"`
}

type switchRequest struct {
	EventID int64 `json:"event_id" validate:"required,min=1"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RequireMember resolves {eventID} for the authenticated user. Non-members
// get the same 404 as a missing event.
func (h *Handler) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.CurrentUser(r.Context())
		if !ok {
			writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
			return
		}
		eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
		if err != nil || eventID <= 0 {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrEventNotFound.Error()})
			return
		}

		scope, err := h.svc.ResolveScope(r.Context(), user, auth.SessionKey(r.Context()), eventID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithScope(r.Context(), scope)))
	})
}

func ScopeFrom(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeContextKey).(Scope)
	return s, ok
}

func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey, scope)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	items, err := h.svc.ListUserEvents(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	ev, err := h.svc.CurrentEvent(r.Context(), user, auth.SessionKey(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: ev})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	in, err := decodeEventRequest(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	ev, err := h.svc.CreateEvent(r.Context(), user, auth.SessionKey(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: ev})
}

func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	var req switchRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	ev, err := h.svc.SwitchEvent(r.Context(), user, auth.SessionKey(r.Context()), req.EventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: ev})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrEventNotFound.Error()})
		return
	}
	ev, err := h.svc.GetEvent(r.Context(), scope.EventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: ev})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrEventNotFound.Error()})
		return
	}
	in, err := decodeEventRequest(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	ev, err := h.svc.UpdateEvent(r.Context(), scope, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: ev})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrEventNotFound.Error()})
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), scope); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func decodeEventRequest(r *http.Request) (Input, error) {
	var req eventRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		return Input{}, err
	}
	in := Input{Name: req.Name}
	if v := strings.TrimSpace(req.StartsOn); v != "" {
		t, _ := time.Parse(dateLayout, v)
		in.StartsOn = &t
	}
	if v := strings.TrimSpace(req.EndsOn); v != "" {
		t, _ := time.Parse(dateLayout, v)
		in.EndsOn = &t
	}
	return in, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrEventNotFound), errors.Is(err, policy.ErrDenied):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrEventNotFound.Error()})
	case errors.Is(err, ErrNoEvent):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
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
