package cireport

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"bugtracker/internal/db"
)

// ErrNoReporter means no account can be credited with CI bugs.
var ErrNoReporter = errors.New("no default reporter")

// ReporterResolver picks the user credited with automatically filed bugs.
type ReporterResolver interface {
	DefaultReporterID(ctx context.Context) (string, error)
}

// StaticReporter always answers with a configured user id.
type StaticReporter string

func (s StaticReporter) DefaultReporterID(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoReporter
	}
	return string(s), nil
}

type AdminFinder interface {
	FirstAdmin(ctx context.Context) (*db.User, error)
}

// AdminReporter resolves to the earliest-created ADMIN account. The answer
// is cached for the configured TTL; misses are not cached.
type AdminReporter struct {
	users AdminFinder
	cache *gocache.Cache
}

const adminCacheKey = "first-admin"

func NewAdminReporter(users AdminFinder, ttl time.Duration) *AdminReporter {
	return &AdminReporter{users: users, cache: gocache.New(ttl, 2*ttl)}
}

func (r *AdminReporter) DefaultReporterID(ctx context.Context) (string, error) {
	if id, ok := r.cache.Get(adminCacheKey); ok {
		return id.(string), nil
	}
	u, err := r.users.FirstAdmin(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrNoReporter
	}
	if err != nil {
		return "", err
	}
	r.cache.SetDefault(adminCacheKey, u.ID)
	return u.ID, nil
}

// Forget drops the cached answer.
func (r *AdminReporter) Forget() {
	r.cache.Delete(adminCacheKey)
}

// NewReporterResolver picks the policy: a fixed user when staticID is set,
// otherwise the earliest admin.
func NewReporterResolver(staticID string, users AdminFinder, ttl time.Duration) ReporterResolver {
	if staticID != "" {
		return StaticReporter(staticID)
	}
	return NewAdminReporter(users, ttl)
}
