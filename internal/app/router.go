package app

import (
	"database/sql"
	"net/http"
	"time"

	"qbank/internal/app/observability"
	"qbank/internal/auth"
	"qbank/internal/event"
	"qbank/internal/export"
	"qbank/internal/importer"
	"qbank/internal/question"
	"qbank/internal/report"
	"qbank/internal/session"
	"qbank/internal/subject"
	"qbank/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Deps carries the process-wide resources the router is built on.
type Deps struct {
	DB            *sql.DB
	Log           logrus.FieldLogger
	CurrentEvents event.CurrentEventStore
	ImportQueue   importer.Queue
	ImportFiles   *importer.FileStore
	Progress      *importer.ProgressHub
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.CurrentEvents == nil {
		deps.CurrentEvents = event.NewMemoryStore()
	}
	if deps.Progress == nil {
		deps.Progress = importer.NewProgressHub(deps.Log)
	}

	collector := observability.NewCollector(deps.DB, deps.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(collector.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	mailer := auth.NewSMTPMailer(auth.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		LoginURL: cfg.AppLoginURL,
	})

	authHandler := auth.NewHandler(auth.NewService(deps.DB, auth.ServiceConfig{
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}))
	eventHandler := event.NewHandler(event.NewService(deps.DB, deps.CurrentEvents))
	questionHandler := question.NewHandler(question.NewLoggingService(question.NewService(deps.DB), deps.Log))
	sessionHandler := session.NewHandler(session.NewLoggingService(session.NewService(deps.DB), deps.Log))
	subjectHandler := subject.NewHandler(subject.NewService(deps.DB))
	userHandler := user.NewHandler(user.NewService(deps.DB, cfg.BcryptCost, mailer))
	exportHandler := export.NewHandler(export.NewService(deps.DB))
	reportHandler := report.NewHandler(report.NewService(deps.DB))

	var importHandler *importer.Handler
	if deps.ImportQueue != nil && deps.ImportFiles != nil {
		importHandler = importer.NewHandler(deps.ImportQueue, deps.ImportFiles, deps.Progress, cfg.AllowedOrigins, deps.Log)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", collector.MetricsHandler())

	loginLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Route("/api/v1", func(api chi.Router) {
		api.With(RateLimitMiddleware(loginLimiter)).Post("/auth/login", authHandler.Login)

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Use(observability.TagUser)

			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Get("/events", eventHandler.List)
			secure.Post("/events", eventHandler.Create)
			secure.Get("/events/current", eventHandler.Current)

			secure.Route("/events/{eventID}", func(ev chi.Router) {
				ev.Use(eventHandler.RequireMember)

				ev.Get("/", eventHandler.Get)
				ev.Patch("/", eventHandler.Update)
				ev.Delete("/", eventHandler.Delete)
				ev.Post("/switch", eventHandler.Switch)
				ev.Get("/dashboard", reportHandler.Dashboard)

				ev.Get("/questions", questionHandler.List)
				ev.Post("/questions", questionHandler.Create)
				if importHandler != nil {
					ev.Post("/questions/import", importHandler.Upload)
					ev.Get("/questions/import/progress", importHandler.Progress)
				}
				ev.Get("/questions/{id}", questionHandler.Get)
				ev.Patch("/questions/{id}", questionHandler.Update)
				ev.Delete("/questions/{id}", questionHandler.Delete)
				ev.Patch("/questions/{id}/status", questionHandler.ChangeStatus)
				ev.Patch("/questions/{id}/has-been-asked", questionHandler.SetHasBeenAsked)

				ev.Get("/sessions", sessionHandler.List)
				ev.Post("/sessions", sessionHandler.Create)
				ev.Get("/sessions/{id}", sessionHandler.Get)
				ev.Delete("/sessions/{id}", sessionHandler.Delete)
				ev.Patch("/sessions/{id}/start", sessionHandler.Start)
				ev.Patch("/sessions/{id}/end", sessionHandler.End)

				ev.Get("/subjects", subjectHandler.List)
				ev.Post("/subjects", subjectHandler.Create)
				ev.Get("/subjects/{id}", subjectHandler.Get)
				ev.Patch("/subjects/{id}", subjectHandler.Update)
				ev.Delete("/subjects/{id}", subjectHandler.Delete)
				ev.Post("/subjects/{id}/topics", subjectHandler.CreateTopic)
				ev.Get("/topics", subjectHandler.ListTopics)
				ev.Patch("/topics/{id}", subjectHandler.UpdateTopic)
				ev.Delete("/topics/{id}", subjectHandler.DeleteTopic)

				ev.Post("/exports", exportHandler.Questions)

				ev.Get("/users", userHandler.List)
				ev.Post("/users", userHandler.Create)
				ev.Get("/users/export", userHandler.Export)
				ev.Get("/users/{id}", userHandler.Get)
				ev.Patch("/users/{id}", userHandler.Update)
				ev.Delete("/users/{id}", userHandler.Delete)
				ev.Patch("/users/{id}/role", userHandler.ChangeRole)
			})
		})
	})

	return r
}
