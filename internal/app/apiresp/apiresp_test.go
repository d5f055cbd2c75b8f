package apiresp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	var got Envelope
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusUnprocessableEntity, "")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.OK)
	assert.Equal(t, "validation_failed", got.Error.Code)
	assert.Equal(t, "Unprocessable Entity", got.Error.Message)
	assert.NotEmpty(t, got.Meta.RequestID)
}

func TestWriteOKOmitsError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteOK(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ok":true,"data":{"id":7},"meta":{}}`, w.Body.String())
}

func TestWriteAttachment(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAttachment(w, XLSXContentType, "questions-1.xlsx", []byte("abc"))

	assert.Equal(t, XLSXContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="questions-1.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", w.Header().Get("Content-Length"))
	assert.Equal(t, "abc", w.Body.String())
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, "not_found", CodeFor(http.StatusNotFound))
	assert.Equal(t, "internal_error", CodeFor(http.StatusBadGateway))
	assert.Equal(t, "error", CodeFor(http.StatusTeapot))
}
