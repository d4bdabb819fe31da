package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/userdesk/internal/app"
	"github.com/noah-isme/userdesk/internal/audit"
	"github.com/noah-isme/userdesk/internal/auth"
	"github.com/noah-isme/userdesk/internal/directory"
	"github.com/noah-isme/userdesk/internal/observability"
	"github.com/noah-isme/userdesk/internal/platform/cache"
	"github.com/noah-isme/userdesk/internal/platform/db"
	"github.com/noah-isme/userdesk/internal/reqres"
	"github.com/noah-isme/userdesk/internal/shared"
	"github.com/noah-isme/userdesk/internal/view"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("userdesk stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var auditRepo audit.Repository
	if cfg.AuditEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo := audit.NewRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		auditRepo = repo
	} else {
		logger.Info("PG_DSN not set, audit entries are logged only")
	}
	auditService := audit.NewService(auditRepo, logger)

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "userdesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	client := reqres.NewClient(cfg.DirectoryBaseURL,
		reqres.WithAPIKey(cfg.DirectoryAPIKey),
		reqres.WithHTTPClient(&http.Client{Timeout: cfg.DirectoryTimeout}),
		reqres.WithMetrics(metrics),
	)

	registry := directory.NewRegistry(client, sessionManager.TTL())
	directoryHandler := directory.NewHandler(logger, registry, directory.NewEngine(cfg.CollationLocale), templates, csrfManager, auditService)
	authHandler := auth.NewHandler(logger, auth.NewService(client), templates, sessionManager, csrfManager, auditService, registry)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DirectoryHandler: directoryHandler,
		Metrics:          metrics,
		Health:           cache.Ping(redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("directory", cfg.DirectoryBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
