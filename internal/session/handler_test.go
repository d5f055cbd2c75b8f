package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qbank/internal/auth"
	"qbank/internal/event"

	"github.com/go-chi/chi/v5"
)

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withScope(req *http.Request) *http.Request {
	return req.WithContext(event.ContextWithScope(req.Context(), scopeFor(auth.RoleAdmin)))
}

func TestCreateHandlerNoQuestionsIs422(t *testing.T) {
	h := NewHandler(&stubAssembler{err: ErrNoQuestions})

	body := `{"title":"Round one","number_of_questions":2,"type":"mcq","difficulty":"easy","round":1}`
	req := withScope(httptest.NewRequest(http.MethodPost, "/api/v1/events/10/sessions", strings.NewReader(body)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no questions found for this event") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestCreateHandlerValidatesTitle(t *testing.T) {
	h := NewHandler(&stubAssembler{})

	body := `{"title":"Quiz","number_of_questions":2,"type":"mcq","difficulty":"easy","round":1}`
	req := withScope(httptest.NewRequest(http.MethodPost, "/api/v1/events/10/sessions", strings.NewReader(body)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateHandlerReturnsAssigned(t *testing.T) {
	h := NewHandler(&stubAssembler{created: &Created{Session: &Session{ID: 5, Title: "Round one", Status: StatusPending}, Assigned: 2}})

	body := `{"title":"Round one","number_of_questions":2,"type":"mcq","difficulty":"easy","round":1}`
	req := withScope(httptest.NewRequest(http.MethodPost, "/api/v1/events/10/sessions", strings.NewReader(body)))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"assigned":2`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestStartHandlerMapsErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: ErrInvalidTransition, want: http.StatusConflict},
		{err: ErrSessionNotFound, want: http.StatusNotFound},
	}
	for _, tc := range tests {
		h := NewHandler(&stubAssembler{err: tc.err})
		req := withScope(httptest.NewRequest(http.MethodPatch, "/api/v1/events/10/sessions/5/start", nil))
		req = withParam(req, "id", "5")
		w := httptest.NewRecorder()
		h.Start(w, req)

		if w.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}
