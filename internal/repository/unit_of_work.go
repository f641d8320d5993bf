package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWork scopes a group of writes to a single case so that they commit
// atomically and appends for the same case are serialized. Two concurrent
// units for the same case must never both read the same chain tip; different
// cases proceed in parallel with no coordination.
type UnitOfWork interface {
	InCase(ctx context.Context, caseID string, fn func(ctx context.Context) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPgxUnitOfWork builds a postgres-backed unit of work. Serialization uses
// a transaction-scoped advisory lock keyed on the case id, held across the
// read-chain-tip/compute-hash/append sequence.
func NewPgxUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) InCase(ctx context.Context, caseID string, fn func(ctx context.Context) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, caseID); err != nil {
		return fmt.Errorf("acquire case lock: %w", err)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
