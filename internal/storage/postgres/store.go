// Package postgres provides the pgx-backed Store.
//
// Every unit of work is one database transaction. Row locks are taken with
// SELECT ... FOR UPDATE where the storage contract promises an exclusive
// lock, and FOR SHARE where a posting only needs the period and year to stay
// put. The schema lives in migrations/ and is applied by Migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// SQLSTATE codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	// raised by the append-only trigger on journals and journal_lines
	codeAppendOnly = "LDG01"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Repository) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, false, fn)
}

func (s *Store) WithReadTx(ctx context.Context, fn func(tx storage.Repository) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, true, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, readOnly bool, fn func(tx storage.Repository) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(&repo{tx: tx, readOnly: readOnly}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr("transaction", nil, err)
	}
	return nil
}

// repo implements storage.Repository on top of one pgx transaction.
type repo struct {
	tx       pgx.Tx
	readOnly bool
}

var _ storage.Repository = (*repo)(nil)

// lock returns the locking clause for a read, or nothing inside a read-only
// transaction where Postgres refuses row locks.
func (r *repo) lock(clause string) string {
	if r.readOnly {
		return ""
	}
	return " " + clause
}

// mapErr translates driver errors into the shared taxonomy.
func mapErr(entity string, id any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return errs.Conflict(entity, id, "already exists (%s)", pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return errs.Invalid(entity, id, "references a missing row (%s)", pgErr.ConstraintName)
		case codeCheckViolation:
			return errs.Invalid(entity, id, "violates %s", pgErr.ConstraintName)
		case codeAppendOnly:
			return errs.Immutable(entity, id, "%s", pgErr.Message)
		}
	}
	return fmt.Errorf("postgres: %s: %w", entity, err)
}
