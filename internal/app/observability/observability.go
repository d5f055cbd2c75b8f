package observability

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"qbank/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "qbank"

// NewLogger returns a JSON logger tagged with the service name. level is one
// of debug, info, warn or error; anything else means info.
func NewLogger(service, level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(os.Stdout)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	log.AddHook(serviceHook{service: service})
	return log
}

type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = h.service
	return nil
}

// Collector records one log entry and the HTTP metrics for every request.
type Collector struct {
	log      logrus.FieldLogger
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewCollector registers its metrics on a private registry. When db is not
// nil the connection pool is exported too.
func NewCollector(db *sql.DB, log logrus.FieldLogger) *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	c := &Collector{
		log:      log,
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, normalized path and status.",
		}, []string{"method", "path", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
	if db != nil {
		pool := func(name, help string, read func(sql.DBStats) float64) {
			f.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "db", Name: name, Help: help},
				func() float64 { return read(db.Stats()) })
		}
		pool("open_connections", "Open connections.", func(s sql.DBStats) float64 { return float64(s.OpenConnections) })
		pool("in_use_connections", "Connections in use.", func(s sql.DBStats) float64 { return float64(s.InUse) })
		pool("idle_connections", "Idle connections.", func(s sql.DBStats) float64 { return float64(s.Idle) })
		pool("wait_count", "Connections waited for.", func(s sql.DBStats) float64 { return float64(s.WaitCount) })
		pool("wait_duration_seconds", "Time spent waiting for connections.", func(s sql.DBStats) float64 { return s.WaitDuration.Seconds() })
	}
	return c
}

type fieldsKey struct{}

type requestFields struct {
	mu     sync.Mutex
	fields logrus.Fields
}

// Annotate adds a field to the current request's log entry. It is a no-op
// outside Collector.Middleware.
func Annotate(ctx context.Context, key string, value any) {
	rf, ok := ctx.Value(fieldsKey{}).(*requestFields)
	if !ok {
		return
	}
	rf.mu.Lock()
	rf.fields[key] = value
	rf.mu.Unlock()
}

// TagUser records the authenticated user on the request's log entry. It must
// run after auth.RequireAuth.
func TagUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := auth.CurrentUser(r.Context()); ok {
			Annotate(r.Context(), "user_id", u.ID)
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		c.inFlight.Inc()
		defer c.inFlight.Dec()

		rf := &requestFields{fields: logrus.Fields{}}
		r = r.WithContext(context.WithValue(r.Context(), fieldsKey{}, rf))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		path := normalizedPath(r.URL.Path)
		c.requests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		c.duration.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())

		rf.mu.Lock()
		fields := logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"event_id":   extractEventID(r.URL.Path),
			"method":     r.Method,
			"path":       path,
			"status":     status,
			"latency_ms": float64(elapsed.Microseconds()) / 1000.0,
			"remote_ip":  strings.TrimSpace(r.RemoteAddr),
		}
		for k, v := range rf.fields {
			fields[k] = v
		}
		rf.mu.Unlock()

		entry := c.log.WithFields(fields)
		if status >= http.StatusInternalServerError {
			entry.Error("request")
			return
		}
		entry.Info("request")
	})
}

// MetricsHandler serves the collector's registry together with the default
// one, where package-level metrics such as the import counters live.
func (c *Collector) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{c.registry, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}

func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func extractEventID(path string) int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "events" {
			if id, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}
