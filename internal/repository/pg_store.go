package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExec is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same query methods run either directly on the pool or inside InTripTx.
type pgExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the PostgreSQL plan store.
type PGStore struct {
	pool *pgxpool.Pool
	db   pgExec
}

// NewPGStore creates a store backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, db: pool}
}

// InTripTx runs fn inside a transaction serialized per trip.
//
// Concurrency strategy: PESSIMISTIC LOCKING. The trip row is the sentinel —
// `SELECT ... FOR UPDATE` on trips(id) blocks any concurrent transaction
// mutating the same trip until this one commits or rolls back. Observers see
// either the full pre-state or the full post-state, never a mix.
func (s *PGStore) InTripTx(ctx context.Context, tripID uuid.UUID, fn func(tx TxStore) error) error {
	if s.pool == nil {
		return fmt.Errorf("plan store: nested transaction for trip %s", tripID)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("plan store: begin tx: %w", mapPGErr(err))
	}
	// Defer rollback — no-op if tx was already committed.
	defer tx.Rollback(ctx)

	// Lock the trip sentinel row.
	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, tripID).Scan(&locked)
	if err != nil {
		return fmt.Errorf("plan store: lock trip %s: %w", tripID, mapPGErr(err))
	}

	if err := fn(&PGStore{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("plan store: commit trip %s: %w", tripID, mapPGErr(err))
	}
	return nil
}

// HealthCheck pings the pool and returns nil if healthy.
func (s *PGStore) HealthCheck(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// ─── Helpers ────────────────────────────────────────────────

// mapPGErr translates driver errors to store sentinel errors.
func mapPGErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// toJSON marshals v for a JSONB column; nil pointers become SQL NULL.
func toJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("plan store: marshal: %w", err)
	}
	return b, nil
}

// fromJSON unmarshals a JSONB column into out; NULL leaves out untouched.
func fromJSON(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("plan store: unmarshal: %w", err)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
