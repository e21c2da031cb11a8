// Package config reads service settings from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type MinIO struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Config struct {
	Addr        string
	DatabaseURL string
	RedisAddr   string
	MinIO       MinIO

	// AdminToken guards the CRUD API (Authorization: Bearer <token>).
	AdminToken string

	// DefaultReporterID, when set, is used as the reporter of CI bugs
	// instead of looking up the earliest admin account.
	DefaultReporterID string
	ReporterCacheTTL  time.Duration

	// VerifyProjectKeys compares the CI bearer token with the project's
	// stored API key hash.
	VerifyProjectKeys bool

	WorkerConcurrency int
	LogLevel          string
}

// Load reads the configuration. DATABASE_URL is required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        envOr("ADDR", ":8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   envOr("REDIS_ADDR", "localhost:6379"),
		MinIO: MinIO{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			Bucket:    envOr("MINIO_BUCKET", "ci-logs"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		},
		AdminToken:        os.Getenv("API_TOKEN"),
		DefaultReporterID: os.Getenv("DEFAULT_REPORTER_ID"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var err error
	if cfg.VerifyProjectKeys, err = envBool("CI_VERIFY_API_KEY", true); err != nil {
		return nil, err
	}
	if cfg.ReporterCacheTTL, err = envDuration("REPORTER_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = envInt("WORKER_CONCURRENCY", 5); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", k, n)
	}
	return n, nil
}
