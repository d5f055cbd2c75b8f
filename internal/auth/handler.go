package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"qbank/internal/app/apiresp"
	"qbank/internal/app/validate"
)

type contextKey string

const (
	userContextKey    contextKey = "auth_user"
	sessionContextKey contextKey = "auth_session_key"
)

const sessionCookieName = "qbank_session"

type Handler struct {
	svc sessionService
}

type sessionService interface {
	AuthenticatePassword(ctx context.Context, email, password string) (*User, error)
	CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error)
	GetSessionUser(ctx context.Context, token string) (*User, error)
	RevokeSession(ctx context.Context, token string) error
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}

	user, err := h.svc.AuthenticatePassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "invalid credentials"})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}

	token, expiresAt, err := h.svc.CreateSession(r.Context(), user.ID, readIP(r), r.UserAgent())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "cannot create session"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_ = h.svc.RevokeSession(r.Context(), readSessionToken(r))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "logged_out"}})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: user})
}

// RequireAuth accepts the session cookie or an "Authorization: Bearer" token.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := readSessionToken(r)
		user, err := h.svc.GetSessionUser(r.Context(), token)
		if err != nil {
			writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
			return
		}
		ctx := ContextWithUser(r.Context(), user)
		ctx = context.WithValue(ctx, sessionContextKey, HashToken(token))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CurrentUser(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok && u != nil
}

// ContextWithUser injects an authenticated user into context.
// Useful for tests and internal handlers.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// SessionKey returns the hashed session token of the current request.
func SessionKey(ctx context.Context) string {
	v, _ := ctx.Value(sessionContextKey).(string)
	return v
}

func ContextWithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionContextKey, key)
}

func readSessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	}
	return ""
}

func readIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
