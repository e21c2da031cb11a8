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

	"github.com/hibiken/asynq"

	"bugtracker/internal/cireport"
	"bugtracker/internal/config"
	"bugtracker/internal/db"
	httpSrv "bugtracker/internal/http"
	"bugtracker/internal/logging"
	"bugtracker/internal/migrations"
	"bugtracker/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run embedded migrations (idempotent)
	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		return err
	}
	dbx, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbx.Close()
	store := db.NewStore(dbx)

	reporters := cireport.NewReporterResolver(cfg.DefaultReporterID, store, cfg.ReporterCacheTTL)
	deps := httpSrv.Deps{
		Store: store,
		Ingest: cireport.NewService(store, reporters, cfg.VerifyProjectKeys,
			cireport.WithRecorder(store), cireport.WithLogger(log)),
		AdminToken: cfg.AdminToken,
		Logger:     log,
	}
	if ar, ok := reporters.(*cireport.AdminReporter); ok {
		deps.Reporters = ar
	}
	if cfg.MinIO.Endpoint != "" {
		s3c, err := storage.New(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer asq.Close()
		deps.Logs, deps.Queue = s3c, asq
	} else {
		log.Warn("MINIO_ENDPOINT not set, asynchronous ingestion disabled")
	}
	if !cfg.VerifyProjectKeys {
		log.Warn("CI project key verification is off")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpSrv.NewServer(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
