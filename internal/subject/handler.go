package subject

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
	"qbank/internal/event"
	"qbank/internal/policy"

	"github.com/go-chi/chi/v5"
)

type catalog interface {
	AddSubject(ctx context.Context, scope event.Scope, in Input) (*Subject, error)
	UpdateSubject(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Subject, error)
	DeleteSubject(ctx context.Context, scope event.Scope, id int64) error
	GetSubject(ctx context.Context, scope event.Scope, id int64) (*Subject, error)
	ListSubjects(ctx context.Context, scope event.Scope) ([]Subject, error)
	AddTopic(ctx context.Context, scope event.Scope, subjectID int64, in TopicInput) (*Topic, error)
	UpdateTopic(ctx context.Context, scope event.Scope, id int64, in TopicInput) (*Topic, error)
	DeleteTopic(ctx context.Context, scope event.Scope, id int64) error
	ListTopics(ctx context.Context, scope event.Scope) ([]Topic, error)
}

type Handler struct {
	svc catalog
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type createSubjectRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
}

type topicRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

type updateSubjectRequest struct {
	Name        *string        `json:"name" validate:"omitempty,max=255"`
	Description *string        `json:"description"`
	Topics      []topicRequest `json:"topics"`
}

func NewHandler(svc catalog) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	items, err := h.svc.ListSubjects(r.Context(), scope)
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
	item, err := h.svc.GetSubject(r.Context(), scope, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(item)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	var req createSubjectRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	item, err := h.svc.AddSubject(r.Context(), scope, Input{Name: req.Name, Description: req.Description, Topics: req.Topics})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: NewView(item)})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req updateSubjectRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	in := UpdateInput{Name: req.Name, Description: req.Description}
	for _, t := range req.Topics {
		in.Topics = append(in.Topics, TopicInput{ID: t.ID, Name: t.Name, Description: t.Description})
	}
	item, err := h.svc.UpdateSubject(r.Context(), scope, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(item)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSubject(r.Context(), scope, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	items, err := h.svc.ListTopics(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewTopicViews(items)})
}

func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	scope, subjectID, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req topicRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	item, err := h.svc.AddTopic(r.Context(), scope, subjectID, TopicInput{Name: req.Name, Description: req.Description})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: NewTopicView(item)})
}

func (h *Handler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req topicRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	item, err := h.svc.UpdateTopic(r.Context(), scope, id, TopicInput{Name: req.Name, Description: req.Description})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewTopicView(item)})
}

func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTopic(r.Context(), scope, id); err != nil {
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
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid id"})
		return scope, 0, false
	}
	return scope, id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrTopicNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrTopicNotFound.Error()})
	case errors.Is(err, ErrSubjectNotFound), errors.Is(err, policy.ErrDenied):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrSubjectNotFound.Error()})
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
