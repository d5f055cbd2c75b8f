package importer

import (
	"net/http"
	"path/filepath"
	"strings"

	"qbank/internal/app/apiresp"
	"qbank/internal/event"
	"qbank/internal/policy"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	queue    Queue
	files    *FileStore
	hub      *ProgressHub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// NewHandler builds the upload and progress endpoints. allowedOrigins limits
// websocket upgrades; an empty list accepts same-host requests only.
func NewHandler(queue Queue, files *FileStore, hub *ProgressHub, allowedOrigins []string, log logrus.FieldLogger) *Handler {
	h := &Handler{queue: queue, files: files, hub: hub, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Upload stores the "questions" file and queues it. The import itself runs
// in the worker; clients follow it through the progress socket.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	if !policy.CanQuestion(scope.Actor, policy.ActionCreate, policy.Question{EventID: scope.EventID}) {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("questions")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "questions file is required"})
		return
	}
	defer file.Close()
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" {
		writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: "questions file must be .xlsx"})
		return
	}

	path, err := h.files.Save(file)
	if err != nil {
		h.log.WithError(err).Error("store import file")
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	job := NewJob(scope.EventID, scope.Actor.ID, path)
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		_ = h.files.Remove(path)
		h.log.WithError(err).Error("enqueue import job")
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusAccepted, apiResponse{OK: true, Data: map[string]interface{}{
		"jobId":  job.ID,
		"status": "queued",
	}})
}

// Progress upgrades to a websocket that receives Progress messages for the
// scope's event.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	scope, ok := event.ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "event not found"})
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	h.hub.Serve(conn, scope.EventID)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := map[string]struct{}{}
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			set[strings.TrimRight(o, "/")] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
