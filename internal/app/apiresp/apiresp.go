// Package apiresp writes the JSON envelope every API response shares:
//
//	{"ok": true, "data": ..., "meta": {"request_id": "..."}}
//	{"ok": false, "error": {"code": "not_found", "message": "..."}, "meta": {...}}
package apiresp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
)

// XLSXContentType is the media type of the spreadsheet downloads.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type Envelope struct {
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, Envelope{OK: true, Data: data, Meta: metaOf(r)})
}

// WriteError uses the status text when msg is empty.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	write(w, status, Envelope{
		Error: &ErrorPayload{Code: CodeFor(status), Message: msg},
		Meta:  metaOf(r),
	})
}

// WriteAttachment sends data as a file download named filename.
func WriteAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func metaOf(r *http.Request) Meta {
	return Meta{RequestID: middleware.GetReqID(r.Context())}
}

func write(w http.ResponseWriter, status int, res Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// CodeFor is the machine-readable error code clients switch on.
func CodeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= 500 {
		return "internal_error"
	}
	return "error"
}
