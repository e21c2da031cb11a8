package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"bugtracker/internal/cireport"
	"bugtracker/internal/config"
	"bugtracker/internal/db"
	"bugtracker/internal/logging"
	"bugtracker/internal/storage"
	"bugtracker/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.Setup(cfg.LogLevel)
	if cfg.MinIO.Endpoint == "" {
		return errors.New("MINIO_ENDPOINT is required by the worker")
	}

	ctx := context.Background()
	dbx, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbx.Close()
	store := db.NewStore(dbx)

	s3c, err := storage.New(ctx, cfg.MinIO)
	if err != nil {
		return err
	}
	reporters := cireport.NewReporterResolver(cfg.DefaultReporterID, store, cfg.ReporterCacheTTL)
	svc := cireport.NewService(store, reporters, cfg.VerifyProjectKeys, cireport.WithLogger(log))

	log.Info("worker starting", "redis", cfg.RedisAddr, "concurrency", cfg.WorkerConcurrency)
	return worker.Run(cfg.RedisAddr, cfg.WorkerConcurrency, worker.NewHandler(store, s3c, svc, log))
}
