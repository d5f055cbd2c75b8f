package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockSessionService struct {
	authenticateFn func(ctx context.Context, email, password string) (*User, error)
	createFn       func(ctx context.Context, userID int64, ip, ua string) (string, time.Time, error)
	getFn          func(ctx context.Context, token string) (*User, error)
	revokeFn       func(ctx context.Context, token string) error
}

func (m *mockSessionService) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	if m.authenticateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.authenticateFn(ctx, email, password)
}

func (m *mockSessionService) CreateSession(ctx context.Context, userID int64, ip, ua string) (string, time.Time, error) {
	if m.createFn == nil {
		return "", time.Time{}, errors.New("not implemented")
	}
	return m.createFn(ctx, userID, ip, ua)
}

func (m *mockSessionService) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, token)
}

func (m *mockSessionService) RevokeSession(ctx context.Context, token string) error {
	if m.revokeFn == nil {
		return nil
	}
	return m.revokeFn(ctx, token)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h := &Handler{svc: &mockSessionService{
		authenticateFn: func(ctx context.Context, email, password string) (*User, error) {
			if email != "ada@example.com" || password != "secret" {
				t.Fatalf("unexpected credentials %s/%s", email, password)
			}
			return &User{ID: 3, Email: email}, nil
		},
		createFn: func(ctx context.Context, userID int64, ip, ua string) (string, time.Time, error) {
			return "tok", time.Now().Add(time.Hour), nil
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"ada@example.com","password":"secret"}`)))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value != "tok" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := &Handler{svc: &mockSessionService{
		authenticateFn: func(ctx context.Context, email, password string) (*User, error) {
			return nil, ErrInvalidCredentials
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"ada@example.com","password":"nope"}`)))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	h := &Handler{svc: &mockSessionService{}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"not-an-email","password":"x"}`)))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRequireAuthStoresUserAndSessionKey(t *testing.T) {
	h := &Handler{svc: &mockSessionService{
		getFn: func(ctx context.Context, token string) (*User, error) {
			if token != "abc" {
				return nil, ErrUnauthorized
			}
			return &User{ID: 9}, nil
		},
	}}

	var gotUser *User
	var gotKey string
	next := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = CurrentUser(r.Context())
		gotKey = SessionKey(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if gotUser == nil || gotUser.ID != 9 {
		t.Fatalf("expected user 9 in context, got %+v", gotUser)
	}
	if gotKey != HashToken("abc") {
		t.Fatalf("expected hashed session key, got %q", gotKey)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	h := &Handler{svc: &mockSessionService{
		getFn: func(ctx context.Context, token string) (*User, error) {
			return nil, ErrUnauthorized
		},
	}}
	next := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	w := httptest.NewRecorder()
	next.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
