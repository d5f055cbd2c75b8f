package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qbank/internal/auth"
	"qbank/internal/event"
	"qbank/internal/policy"

	"github.com/go-chi/chi/v5"
)

type mockLifecycle struct {
	addFn    func(ctx context.Context, scope event.Scope, in AddInput) (*Question, error)
	updateFn func(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Question, error)
	statusFn func(ctx context.Context, scope event.Scope, id int64, status string) error
	deleteFn func(ctx context.Context, scope event.Scope, id int64) error
	getFn    func(ctx context.Context, scope event.Scope, id int64) (*Question, error)
	listFn   func(ctx context.Context, scope event.Scope, f ListFilter) (*Page, error)
}

func (m *mockLifecycle) AddQuestion(ctx context.Context, scope event.Scope, in AddInput) (*Question, error) {
	if m.addFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.addFn(ctx, scope, in)
}

func (m *mockLifecycle) UpdateQuestion(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Question, error) {
	if m.updateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateFn(ctx, scope, id, in)
}

func (m *mockLifecycle) ChangeStatus(ctx context.Context, scope event.Scope, id int64, status string) error {
	if m.statusFn == nil {
		return errors.New("not implemented")
	}
	return m.statusFn(ctx, scope, id, status)
}

func (m *mockLifecycle) UpdateHasBeenAsked(ctx context.Context, scope event.Scope, id int64, asked bool) error {
	return errors.New("not implemented")
}

func (m *mockLifecycle) DeleteQuestion(ctx context.Context, scope event.Scope, id int64) error {
	if m.deleteFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteFn(ctx, scope, id)
}

func (m *mockLifecycle) GetQuestion(ctx context.Context, scope event.Scope, id int64) (*Question, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, scope, id)
}

func (m *mockLifecycle) ListQuestions(ctx context.Context, scope event.Scope, f ListFilter) (*Page, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx, scope, f)
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withScope(req *http.Request, role auth.Role) *http.Request {
	scope := event.Scope{EventID: 10, Actor: &auth.User{ID: 7, Roles: []auth.Role{role}, EventIDs: []int64{10}}}
	return req.WithContext(event.ContextWithScope(req.Context(), scope))
}

func TestCreateQuestionMapsRequest(t *testing.T) {
	var got AddInput
	h := NewHandler(&mockLifecycle{
		addFn: func(ctx context.Context, scope event.Scope, in AddInput) (*Question, error) {
			if scope.EventID != 10 {
				t.Fatalf("unexpected event %d", scope.EventID)
			}
			got = in
			return &Question{ID: 5, Type: TypeMCQ, Status: StatusPending, Text: in.Text, CreatedAt: time.Now(), UpdatedAt: time.Now()}, nil
		},
	})

	body := `{"subject_id":2,"topic_id":3,"type":"mcq","difficulty":"easy","question_text":"2+2?",
		"options":[{"option_text":"4","is_correct":true},{"option_text":"5"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/10/questions", strings.NewReader(body))
	req = withScope(req, auth.RoleContributor)
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(got.Options) != 2 || !got.Options[0].IsCorrect || got.Options[1].Text != "5" {
		t.Fatalf("unexpected options %+v", got.Options)
	}

	var res struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Data["questionText"] != "2+2?" || res.Data["status"] != "pending" {
		t.Fatalf("unexpected payload %v", res.Data)
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	h := NewHandler(&mockLifecycle{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/10/questions", strings.NewReader(`{"type":"essay"}`))
	req = withScope(req, auth.RoleContributor)
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateQuestionInvalidOptionsIs422(t *testing.T) {
	h := NewHandler(&mockLifecycle{
		addFn: func(ctx context.Context, scope event.Scope, in AddInput) (*Question, error) {
			return nil, ErrInvalidOptions
		},
	})

	body := `{"subject_id":2,"topic_id":3,"type":"mcq","difficulty":"easy","question_text":"2+2?","options":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/10/questions", strings.NewReader(body))
	req = withScope(req, auth.RoleContributor)
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestUpdateDeniedIsNotFound(t *testing.T) {
	h := NewHandler(&mockLifecycle{
		updateFn: func(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Question, error) {
			if id != 42 || in.Text == nil || *in.Text != "new" || in.Options != nil {
				t.Fatalf("unexpected update %d %+v", id, in)
			}
			return nil, policy.ErrDenied
		},
	})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/events/10/questions/42", strings.NewReader(`{"question_text":"new"}`))
	req = withParam(withScope(req, auth.RoleContributor), "id", "42")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestChangeStatus(t *testing.T) {
	h := NewHandler(&mockLifecycle{
		statusFn: func(ctx context.Context, scope event.Scope, id int64, status string) error {
			if id != 42 || status != "approved" {
				t.Fatalf("unexpected status change %d %q", id, status)
			}
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/events/10/questions/42/status", strings.NewReader(`{"status":"approved"}`))
	req = withParam(withScope(req, auth.RoleAdmin), "id", "42")
	w := httptest.NewRecorder()
	h.ChangeStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestDeleteInvalidID(t *testing.T) {
	h := NewHandler(&mockLifecycle{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/10/questions/abc", nil)
	req = withParam(withScope(req, auth.RoleAdmin), "id", "abc")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDeleteQuestion(t *testing.T) {
	called := false
	h := NewHandler(&mockLifecycle{
		deleteFn: func(ctx context.Context, scope event.Scope, id int64) error {
			called = id == 42
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/10/questions/42", nil)
	req = withParam(withScope(req, auth.RoleAdmin), "id", "42")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 and delete call, got %d", w.Code)
	}
}

func TestListPassesFiltersAndPaginates(t *testing.T) {
	h := NewHandler(&mockLifecycle{
		listFn: func(ctx context.Context, scope event.Scope, f ListFilter) (*Page, error) {
			if f.Page != 3 || f.Status != "approved" || f.Search != "paris" {
				t.Fatalf("unexpected filter %+v", f)
			}
			return &Page{Items: []Question{{ID: 1}}, Page: 3, PerPage: PageSize, Total: 120}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/10/questions?page=3&status=approved&search=paris", nil)
	req = withScope(req, auth.RoleViewer)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res struct {
		Data struct {
			Data []map[string]interface{} `json:"data"`
			Meta map[string]interface{}   `json:"meta"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Data.Data) != 1 || res.Data.Meta["lastPage"] != float64(3) {
		t.Fatalf("unexpected page %+v", res.Data)
	}
}

func TestListWithoutScopeIsNotFound(t *testing.T) {
	h := NewHandler(&mockLifecycle{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/10/questions", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
