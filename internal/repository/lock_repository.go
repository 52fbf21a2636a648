package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/orgstage/internal/domain"
)

// uniqueViolation is the SQLSTATE raised when the lock row already exists.
const uniqueViolation = "23505"

// lockRepository implements LockRepository with an atomic insert-or-fail
// against the resource_locks table. A primary-key conflict means another
// holder is mid-run, and the caller gets a conflict without blocking.
type lockRepository struct {
	pool *pgxpool.Pool
}

// NewLockRepository creates a new lock repository.
func NewLockRepository(pool *pgxpool.Pool) LockRepository {
	return &lockRepository{pool: pool}
}

func (r *lockRepository) Acquire(ctx context.Context, resource, holder string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resource_locks (resource, holder, acquired_at)
		VALUES ($1, $2, NOW())`, resource, holder)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.NewConflictError(
				fmt.Sprintf("resource %q is locked by another operation, retry shortly", resource))
		}
		return fmt.Errorf("failed to acquire lock on %q: %w", resource, err)
	}
	return nil
}

func (r *lockRepository) Release(ctx context.Context, resource string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM resource_locks WHERE resource = $1`, resource)
	if err != nil {
		return fmt.Errorf("failed to release lock on %q: %w", resource, err)
	}
	return nil
}
