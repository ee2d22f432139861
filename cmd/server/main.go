package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/config"
	"github.com/echovisit/echovisit-web/internal/domain"
	v1 "github.com/echovisit/echovisit-web/internal/handler/v1"
	"github.com/echovisit/echovisit-web/internal/repository"
	"github.com/echovisit/echovisit-web/internal/service"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/auth"
	"github.com/echovisit/echovisit-web/pkg/database"
	"github.com/echovisit/echovisit-web/pkg/logger"
	"github.com/echovisit/echovisit-web/pkg/metrics"
	"github.com/echovisit/echovisit-web/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer zapLog.Sync()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				zapLog.Warn("tracer shutdown", zap.Error(err))
			}
		}()
	}

	m := metrics.NewCollector(cfg.App.Name)

	var (
		sessions  session.Store
		auditRepo service.AuditRepository
	)
	switch cfg.Session.Backend {
	case "memory":
		zapLog.Info("using in-memory session store; sessions will not survive a restart")
		sessions = session.NewMemoryStore()
		auditRepo = nopAuditRepository{}
	default:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		if err := database.Migrate(db, zapLog); err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
			m.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
		}

		store := repository.NewSessionStore(db)
		sessions = store
		auditRepo = repository.NewAuditRepository(db)
		go sweepSessions(store, zapLog)
	}

	client := upstream.NewClient(cfg.Upstream, zapLog.Named("upstream"))
	tokens := auth.NewTokenManager(cfg.JWT)

	audit := service.NewAuditService(auditRepo, m, zapLog.Named("audit"))
	defer audit.Shutdown()

	checker := service.NewInteractionChecker(client, m, zapLog.Named("interactions"))
	svcs := v1.Services{
		Auth:      service.NewAuthService(client, sessions, tokens, audit, m, cfg.Session.TTL, zapLog.Named("auth")),
		Intake:    service.NewIntakeService(sessions, checker, audit, zapLog.Named("intake")),
		Recording: service.NewRecordingService(client, sessions, audit, m, zapLog.Named("recording")),
		Review:    service.NewReviewService(sessions, audit, m, zapLog.Named("review")),
		Visits:    service.NewVisitsService(client, sessions, zapLog.Named("visits")),
		Viewer:    service.NewViewerService(client, sessions, audit, m, zapLog.Named("viewer")),
	}

	router := v1.NewRouter(cfg, svcs, tokens, m, zapLog.Named("http"))

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zapLog.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// sweepSessions periodically removes expired session rows.
func sweepSessions(store *repository.SessionStore, zapLog *zap.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := store.SweepExpired(ctx)
		cancel()
		if err != nil {
			zapLog.Warn("session sweep failed", zap.Error(err))
			continue
		}
		if n > 0 {
			zapLog.Info("swept expired sessions", zap.Int64("count", n))
		}
	}
}

// nopAuditRepository backs the audit trail when running without Postgres.
type nopAuditRepository struct{}

func (nopAuditRepository) Create(context.Context, *domain.AuditLog) error { return nil }
