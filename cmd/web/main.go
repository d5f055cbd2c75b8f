package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qbank/internal/app"
	"qbank/internal/app/observability"
	"qbank/internal/auth"
	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/importer"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	cfg := app.LoadConfig()
	log := observability.NewLogger("qbank", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.OpenPostgresWithConfig(ctx, cfg.DBDSN, db.PostgresConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.WithError(err).Fatal("database error")
	}
	defer dbConn.Close()

	deps, closeDeps, err := buildDeps(ctx, cfg, dbConn, log)
	if err != nil {
		log.WithError(err).Fatal("startup error")
	}
	defer closeDeps()

	worker := importer.NewWorker(deps.ImportQueue, deps.ImportFiles, importer.New(dbConn),
		func(ctx context.Context, userID int64) (*auth.User, error) {
			return auth.GetUserTx(ctx, dbConn, userID)
		}, deps.Progress, log.WithField("component", "import_worker"))
	go func() {
		if err := worker.Run(ctx); err != nil {
			log.WithError(err).Error("import worker stopped")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("qbank web listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}

// buildDeps uses Redis for the current-event store and the import queue when
// REDIS_ADDR is set, and process memory otherwise.
func buildDeps(ctx context.Context, cfg app.Config, conn *sql.DB, log *logrus.Logger) (app.Deps, func(), error) {
	files, err := importer.NewFileStore(cfg.ImportDir)
	if err != nil {
		return app.Deps{}, nil, err
	}
	deps := app.Deps{
		DB:          conn,
		Log:         log,
		ImportFiles: files,
		Progress:    importer.NewProgressHub(log.WithField("component", "import_progress")),
	}

	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, using in-memory event store and import queue")
		deps.CurrentEvents = event.NewMemoryStore()
		deps.ImportQueue = importer.NewMemoryQueue(0)
		return deps, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return app.Deps{}, nil, err
	}
	deps.CurrentEvents = event.NewRedisStore(client, cfg.SessionTTL)
	deps.ImportQueue = importer.NewRedisQueue(client, cfg.ImportQueue)
	return deps, func() { _ = client.Close() }, nil
}
