package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/repository"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var (
	_ repository.AuctionDB  = (*Store)(nil)
	_ repository.OrderDB    = (*Store)(nil)
	_ repository.FeedbackDB = (*Store)(nil)
	_ repository.Ledger     = (*Store)(nil)
)

// Store is the PostgreSQL implementation of AuctionDB, OrderDB and FeedbackDB.
// Read-validate-write sequences hold the row lock (SELECT ... FOR UPDATE) of the
// auction or order they change.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and checks the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// Migrate creates the tables and indexes if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// pqCode returns the SQLSTATE of a driver error, or "".
func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// mapConstraint turns constraint violations into domain errors and leaves the rest alone.
func mapConstraint(op string, err error) error {
	switch pqCode(err) {
	case uniqueViolation:
		return fmt.Errorf("%s: %w - %v", op, auctionerrors.ErrConflict, err)
	case foreignKeyViolation:
		return fmt.Errorf("%s: %w - %v", op, auctionerrors.ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
