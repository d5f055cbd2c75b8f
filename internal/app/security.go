package app

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"qbank/internal/app/apiresp"

	"github.com/google/uuid"
)

const (
	csrfCookieName = "qbank_csrf"
	csrfHeaderName = "X-CSRF-Token"
)

type window struct {
	count int
	ends  time.Time
}

// IPRateLimiter is a fixed-window counter per client key.
type IPRateLimiter struct {
	mu      sync.Mutex
	max     int
	period  time.Duration
	windows map[string]window
	now     func() time.Time
}

func NewIPRateLimiter(max int, period time.Duration) *IPRateLimiter {
	if max <= 0 {
		max = 60
	}
	if period <= 0 {
		period = time.Minute
	}
	return &IPRateLimiter{max: max, period: period, windows: make(map[string]window), now: time.Now}
}

// Allow counts one hit for key. When the limit is reached it reports how long
// until the window resets.
func (l *IPRateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[key]
	if !ok || !now.Before(win.ends) {
		l.sweep(now)
		win = window{ends: now.Add(l.period)}
	}
	if win.count >= l.max {
		return false, win.ends.Sub(now)
	}
	win.count++
	l.windows[key] = win
	return true, 0
}

// sweep drops expired windows so idle clients don't accumulate. Called with
// l.mu held.
func (l *IPRateLimiter) sweep(now time.Time) {
	for k, win := range l.windows {
		if !now.Before(win.ends) {
			delete(l.windows, k)
		}
	}
}

// RateLimitMiddleware limits by client IP. Mount it on the routes it guards.
func RateLimitMiddleware(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.Allow(clientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				apiresp.WriteError(w, r, http.StatusTooManyRequests, "too many attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// CSRFMiddleware implements the double-submit cookie check for unsafe
// methods. Safe requests without a token cookie get one issued.
func CSRFMiddleware(enforced bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforced {
				next.ServeHTTP(w, r)
				return
			}
			c, err := r.Cookie(csrfCookieName)
			hasCookie := err == nil && strings.TrimSpace(c.Value) != ""

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if !hasCookie {
					http.SetCookie(w, &http.Cookie{
						Name:     csrfCookieName,
						Value:    uuid.NewString(),
						Path:     "/",
						SameSite: http.SameSiteLaxMode,
					})
				}
				next.ServeHTTP(w, r)
				return
			}

			if !hasCookie {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token missing")
				return
			}
			if h := strings.TrimSpace(r.Header.Get(csrfHeaderName)); h != c.Value {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
