package question

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
	"qbank/internal/event"
	"qbank/internal/policy"
	"qbank/internal/resource"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc Lifecycle
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type optionRequest struct {
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type createQuestionRequest struct {
	SubjectID    int64           `json:"subject_id" validate:"required,min=1"`
	TopicID      int64           `json:"topic_id" validate:"required,min=1"`
	Round        int             `json:"round" validate:"omitempty,min=1"`
	Type         string          `json:"type" validate:"required,oneof=mcq true_false short_answer long_answer"`
	Difficulty   string          `json:"difficulty" validate:"required,oneof=easy medium hard"`
	QuestionText string          `json:"question_text" validate:"required"`
	BoolAnswer   *bool           `json:"bool_answer"`
	AnswerText   string          `json:"answer_text"`
	Options      []optionRequest `json:"options"`
}

type updateQuestionRequest struct {
	SubjectID    *int64          `json:"subject_id" validate:"omitempty,min=1"`
	TopicID      *int64          `json:"topic_id" validate:"omitempty,min=1"`
	Round        *int            `json:"round" validate:"omitempty,min=1"`
	Type         *string         `json:"type" validate:"omitempty,oneof=mcq true_false short_answer long_answer"`
	Difficulty   *string         `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	QuestionText *string         `json:"question_text"`
	BoolAnswer   *bool           `json:"bool_answer"`
	AnswerText   *string         `json:"answer_text"`
	Options      []optionRequest `json:"options"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

type hasBeenAskedRequest struct {
	HasBeenAsked *bool `json:"has_been_asked" validate:"required"`
}

func NewHandler(svc Lifecycle) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	result, err := h.svc.ListQuestions(r.Context(), scope, ListFilter{
		Search:     q.Get("search"),
		Subject:    q.Get("subject"),
		Difficulty: q.Get("difficulty"),
		Status:     q.Get("status"),
		Type:       q.Get("type"),
		Page:       page,
	})
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
	item, err := h.svc.GetQuestion(r.Context(), scope, id)
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
	var req createQuestionRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}

	item, err := h.svc.AddQuestion(r.Context(), scope, AddInput{
		SubjectID:  req.SubjectID,
		TopicID:    req.TopicID,
		Round:      req.Round,
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Text:       req.QuestionText,
		BoolAnswer: req.BoolAnswer,
		AnswerText: req.AnswerText,
		Options:    toOptionInputs(req.Options),
	})
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
	var req updateQuestionRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}

	item, err := h.svc.UpdateQuestion(r.Context(), scope, id, UpdateInput{
		SubjectID:  req.SubjectID,
		TopicID:    req.TopicID,
		Round:      req.Round,
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Text:       req.QuestionText,
		BoolAnswer: req.BoolAnswer,
		AnswerText: req.AnswerText,
		Options:    toOptionInputs(req.Options),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: NewView(item)})
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	if err := h.svc.ChangeStatus(r.Context(), scope, id, req.Status); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]interface{}{"id": id, "status": req.Status}})
}

func (h *Handler) SetHasBeenAsked(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	var req hasBeenAskedRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	if err := h.svc.UpdateHasBeenAsked(r.Context(), scope, id, *req.HasBeenAsked); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]interface{}{"id": id, "hasBeenAsked": *req.HasBeenAsked}})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := scopeAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), scope, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func toOptionInputs(in []optionRequest) []OptionInput {
	if in == nil {
		return nil
	}
	out := make([]OptionInput, 0, len(in))
	for _, o := range in {
		out = append(out, OptionInput{Text: o.OptionText, IsCorrect: o.IsCorrect})
	}
	return out
}

func scopeAndID(w http.ResponseWriter, r *http.Request) (event.Scope, int64, bool) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return scope, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid question id"})
		return scope, 0, false
	}
	return scope, id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidOptions):
		writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrSubjectNotFound), errors.Is(err, ErrTopicNotFound):
		writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrQuestionNotFound), errors.Is(err, policy.ErrDenied):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrQuestionNotFound.Error()})
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
