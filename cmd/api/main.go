package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appprompts "github.com/bryanwahyu/prompt-integrity/internal/application/prompts"
	"github.com/bryanwahyu/prompt-integrity/internal/bootstrap"
	"github.com/bryanwahyu/prompt-integrity/internal/config"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/httpserver"
	"github.com/bryanwahyu/prompt-integrity/internal/logging"
	"github.com/bryanwahyu/prompt-integrity/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()
	bootstrap.LogSummary(logger, cfg)

	ctx := context.Background()

	// init provider
	client, err := bootstrap.Client(cfg)
	if err != nil {
		logger.Fatal("provider init error", zap.Error(err))
	}

	svc := appprompts.NewService(client, logger)
	deps := map[string]middleware.Dependency{}

	// optional archive
	repo, db, err := bootstrap.Archive(ctx, cfg)
	if err != nil {
		logger.Fatal("archive init error", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		svc.Archive = repo
		deps["archive"] = middleware.ArchiveDependency{DB: db}
	}

	// optional minio
	store, err := bootstrap.Artifacts(ctx, cfg)
	if err != nil {
		logger.Fatal("minio init error", zap.Error(err))
	}
	if store != nil {
		svc.Artifacts = store
		deps["artifacts"] = store
	}

	ready := &middleware.Readiness{}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
	defer limiter.Close()

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		DefaultThreshold: cfg.Threshold(),
		TenantKeys:       cfg.TenantKeys(),
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		Limiter:          limiter,
		Dependencies:     deps,
		Readiness:        ready,
		Logger:           logger,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // covers a slow completion call
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")
	ready.Drain()

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
