package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
	"qbank/internal/auth"
	"qbank/internal/event"
	"qbank/internal/policy"
	"qbank/internal/resource"

	"github.com/go-chi/chi/v5"
)

type admin interface {
	ListEventMembers(ctx context.Context, scope event.Scope, page int) (*Page, error)
	GetMember(ctx context.Context, scope event.Scope, id int64) (*auth.User, error)
	AddUser(ctx context.Context, scope event.Scope, in AddInput) (*Added, error)
	UpdateUser(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*auth.User, error)
	ChangeRole(ctx context.Context, scope event.Scope, id int64, role string) (*auth.User, error)
	DeleteUser(ctx context.Context, scope event.Scope, id int64) error
	ExportMembers(ctx context.Context, scope event.Scope) ([]byte, error)
}

type Handler struct {
	svc admin
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type createUserRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin contributor viewer super_admin"`
}

type updateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=admin contributor viewer super_admin"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin contributor viewer super_admin"`
}

type addedResponse struct {
	User              View   `json:"user"`
	Notified          bool   `json:"notified"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

func NewHandler(svc admin) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	page, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	result, err := h.svc.ListEventMembers(r.Context(), scope, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: resource.Paginate(NewViews(result.Items), result.Page, result.PerPage, result.Total)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.GetMember(r.Context(), scope, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(u)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	var req createUserRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	added, err := h.svc.AddUser(r.Context(), scope, AddInput{Name: req.Name, Email: req.Email, Role: req.Role})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: addedResponse{
		User:              NewView(added.User),
		Notified:          added.Notified,
		TemporaryPassword: added.TemporaryPassword,
	}})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), scope, id, UpdateInput{Name: req.Name, Email: req.Email, Role: req.Role})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(u)})
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	u, err := h.svc.ChangeRole(r.Context(), scope, id, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(u)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(r.Context(), scope, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	data, err := h.svc.ExportMembers(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteAttachment(w, apiresp.XLSXContentType, fmt.Sprintf("members-%d.xlsx", scope.EventID), data)
}

func scopeAndID(w http.ResponseWriter, r *http.Request) (event.Scope, int64, bool) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return scope, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid user id"})
		return scope, 0, false
	}
	return scope, id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		writeJSON(w, r, http.StatusConflict, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, policy.ErrDenied):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: auth.ErrUserNotFound.Error()})
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
