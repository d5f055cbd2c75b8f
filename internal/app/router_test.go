package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qbank/internal/importer"

	"github.com/DATA-DOG/go-sqlmock"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	logger, _ := logtest.NewNullLogger()
	files, err := importer.NewFileStore(t.TempDir())
	require.NoError(t, err)

	r := NewRouter(Config{AuthRateLimitPerMin: 2}, Deps{
		DB:          conn,
		Log:         logger,
		ImportQueue: importer.NewMemoryQueue(1),
		ImportFiles: files,
	})
	return r, mock
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `qbank_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
	assert.Contains(t, w.Body.String(), "qbank_db_open_connections")
}

func TestEventRoutesRequireSession(t *testing.T) {
	r, mock := newTestRouter(t)
	paths := []string{
		"/api/v1/events",
		"/api/v1/events/1/questions",
		"/api/v1/events/1/sessions/3",
		"/api/v1/events/1/questions/import/progress",
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginIsRateLimited(t *testing.T) {
	r, _ := newTestRouter(t)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "10.0.0.1:5000"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusBadRequest, codes[0])
	assert.Equal(t, http.StatusBadRequest, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}
