package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clickwar/internal/db"

	"github.com/rs/zerolog"
)

// Store owns the connection pool. All multi-statement balance changes go
// through InTx; the DSN opens write transactions with BEGIN IMMEDIATE so
// concurrent writers queue on the database lock instead of interleaving.
type Store struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewStore(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *Store {
	return &Store{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Ledger returns a view bound to the pool; each call is its own statement.
func (s *Store) Ledger() *Ledger {
	return &Ledger{q: s.queries}
}

func (s *Store) InTx(ctx context.Context, fn func(l *Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Ledger{q: s.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ledger is the domain-typed face of the Ledger Store.
type Ledger struct {
	q *db.Queries
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
