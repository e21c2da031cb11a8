package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"bugtracker/internal/apperr"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = apperr.ErrNotFound

// Open connects to Postgres through the pgx stdlib driver.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	dbx, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return dbx, nil
}

func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Store implements every query the service runs.
type Store struct {
	DB *sqlx.DB
}

func NewStore(dbx *sqlx.DB) *Store {
	return &Store{DB: dbx}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
