package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, retry := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "window resets")
	assert.Len(t, l.windows, 1, "expired windows are swept")
}

func TestRateLimitMiddlewareSetsRetryAfter(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := RateLimitMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:" + []string{"4000", "4001"}[i]
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, want, w.Code)
		if want == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), `"code":"rate_limited"`)
		}
	}
}

func TestCSRFMiddlewareEnforced(t *testing.T) {
	next := CSRFMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/1/questions", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc"})
	req.Header.Set(csrfHeaderName, "abc")
	w := httptest.NewRecorder()
	next.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/events/1/questions", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc"})
	req.Header.Set(csrfHeaderName, "xyz")
	w = httptest.NewRecorder()
	next.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFMiddlewareRejectsMissingToken(t *testing.T) {
	next := CSRFMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	next.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/events/1/questions", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFMiddlewareIssuesCookieOnSafeRequest(t *testing.T) {
	next := CSRFMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	next.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}
