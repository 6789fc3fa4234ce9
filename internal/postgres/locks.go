package postgres

import (
	"context"
	"errors"
	"fmt"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/types"
	"github.com/lib/pq"
)

// LockKey acquires a transaction-scoped advisory lock, waiting at most the
// request's TTL. Released on commit/rollback.
// Must be called inside a transaction.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return ierr.NewError("LockKey must be called inside transaction").Mark(ierr.ErrInternal)
	}

	timeout := req.GetTTL()

	// Handle zero or negative timeout (fail-fast)
	if timeout <= 0 {
		ok, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return ierr.NewError("lock already held").
				WithReportableDetails(map[string]interface{}{"key": req.Key}).
				Mark(ierr.ErrAlreadyRunning)
		}
		return nil
	}

	// lock_timeout is reset automatically on commit/rollback
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set lock timeout").
			Mark(ierr.ErrDatabase)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.Key); err != nil {
		if isLockTimeoutError(err) {
			return ierr.WithError(err).
				WithHintf("Failed to acquire lock within %v", timeout).
				WithReportableDetails(map[string]interface{}{"key": req.Key}).
				Mark(ierr.ErrAlreadyRunning)
		}
		return ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// isLockTimeoutError checks for PostgreSQL error code 55P03 (lock_not_available)
func isLockTimeoutError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "55P03"
	}
	return false
}

// TryLockKey tries acquiring advisory lock immediately.
// Returns ok=false if lock is already held.
// Must be called inside a transaction.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, ierr.NewError("TryLockKey must be called inside transaction").Mark(ierr.ErrInternal)
	}

	var ok bool
	if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}
	return ok, nil
}
