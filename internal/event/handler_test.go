package event

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"qbank/internal/auth"

	"github.com/go-chi/chi/v5"
)

type mockEventService struct {
	resolveFn func(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (Scope, error)
	switchFn  func(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (*Event, error)
}

func (m *mockEventService) GetEvent(ctx context.Context, eventID int64) (*Event, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEventService) CurrentEvent(ctx context.Context, u *auth.User, sessionKey string) (*Event, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEventService) SwitchEvent(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (*Event, error) {
	if m.switchFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.switchFn(ctx, u, sessionKey, eventID)
}

func (m *mockEventService) ResolveScope(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (Scope, error) {
	if m.resolveFn == nil {
		return Scope{}, errors.New("not implemented")
	}
	return m.resolveFn(ctx, u, sessionKey, eventID)
}

func (m *mockEventService) CreateEvent(ctx context.Context, u *auth.User, sessionKey string, in Input) (*Event, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEventService) UpdateEvent(ctx context.Context, scope Scope, in Input) (*Event, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEventService) DeleteEvent(ctx context.Context, scope Scope) error {
	return errors.New("not implemented")
}

func (m *mockEventService) ListUserEvents(ctx context.Context, u *auth.User) ([]Event, error) {
	return nil, errors.New("not implemented")
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRequireMemberInjectsScope(t *testing.T) {
	h := &Handler{svc: &mockEventService{
		resolveFn: func(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (Scope, error) {
			if eventID != 4 || sessionKey != "key" {
				t.Fatalf("unexpected resolve args %d %q", eventID, sessionKey)
			}
			return Scope{EventID: eventID, Actor: u}, nil
		},
	}}

	var got Scope
	next := h.RequireMember(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ScopeFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/4/questions", nil)
	req = withParam(req, "eventID", "4")
	ctx := auth.ContextWithUser(req.Context(), &auth.User{ID: 2, EventIDs: []int64{4}})
	req = req.WithContext(auth.ContextWithSessionKey(ctx, "key"))
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got.EventID != 4 || got.Actor == nil || got.Actor.ID != 2 {
		t.Fatalf("unexpected scope %+v", got)
	}
}

func TestRequireMemberNotFoundForNonMember(t *testing.T) {
	h := &Handler{svc: &mockEventService{
		resolveFn: func(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (Scope, error) {
			return Scope{}, ErrEventNotFound
		},
	}}
	next := h.RequireMember(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/4/questions", nil)
	req = withParam(req, "eventID", "4")
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 2}))
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSwitchUnknownEventIsNotFound(t *testing.T) {
	h := &Handler{svc: &mockEventService{
		switchFn: func(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (*Event, error) {
			return nil, ErrEventNotFound
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/switch", stringsReader(`{"event_id":99}`))
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 2}))
	w := httptest.NewRecorder()
	h.Switch(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
