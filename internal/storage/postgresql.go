// Package storage is the persistence gateway: a thin wrapper over
// *sql.DB (pgx stdlib driver) plus the repository methods for every table
// the control plane owns. Every blocking call takes a context and every
// write that must be atomic with a read goes through WithTx.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Registers the pgx driver under the "pgx" name for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hostplane/controlplane/internal/lib/sl"
)

// serializationFailure is the Postgres error code raised when a
// serializable transaction cannot be committed because of a conflicting
// concurrent transaction. WithTx retries exactly once on this code.
const serializationFailure = "40001"

// uniqueViolation is the Postgres error code for a violated unique or
// exclusion constraint.
const uniqueViolation = "23505"

// Storage wraps the database connection pool and a logger used to flag
// slow queries.
type Storage struct {
	DB                 *sql.DB
	log                *slog.Logger
	slowQueryThreshold time.Duration
}

// New opens a connection pool against storageConnectionString, bounds it to
// maxOpenConns, and verifies connectivity before returning.
func New(storageConnectionString string, maxOpenConns int, slowQueryThreshold time.Duration, log *slog.Logger) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Storage{DB: db, log: log, slowQueryThreshold: slowQueryThreshold}, nil
}

// CheckReady reports whether the required tables exist, for use in a
// readiness probe handler.
func CheckReady(ctx context.Context, s *Storage) error {
	const op = "storage.CheckReady"
	for _, table := range []string{"users", "workspaces", "subscriptions", "payment_events"} {
		var exists bool
		err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT FROM information_schema.tables WHERE table_name = $1
		)`, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: required table %q missing", op, table)
		}
	}
	return nil
}

// Tx wraps *sql.Tx with the lock-acquiring helpers the service layer needs
// for the subscription state machine (C6) and the workspace lifecycle
// manager's per-owner create cap (C5).
type Tx struct {
	*sql.Tx
}

// WithTx runs fn inside a transaction, committing on a nil return and
// rolling back otherwise (including on panic, which it re-panics after
// rollback). A transaction that fails on a serialization conflict is
// retried exactly once.
func (s *Storage) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	const op = "storage.WithTx"

	run := func() error {
		sqlTx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%s: begin: %w", op, err)
		}
		tx := &Tx{sqlTx}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
		}()

		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Error("rollback failed", sl.Err(rbErr))
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: commit: %w", op, err)
		}
		return nil
	}

	err := run()
	if err != nil && isSerializationFailure(err) {
		err = run()
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, the signal repository methods use to turn a duplicate insert
// into apperr.Conflict instead of apperr.Internal.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// logSlowQuery logs when a query against op took longer than the
// configured threshold.
func (s *Storage) logSlowQuery(op string, started time.Time) {
	if s.slowQueryThreshold <= 0 {
		return
	}
	if elapsed := time.Since(started); elapsed > s.slowQueryThreshold {
		s.log.Warn("slow query", slog.String("op", op), slog.Duration("elapsed", elapsed))
	}
}
