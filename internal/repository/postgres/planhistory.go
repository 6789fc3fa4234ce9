package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/plansync/internal/domain/planhistory"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/postgres"
	"github.com/flexprice/plansync/internal/types"
)

const (
	selectHistoryQuery = `
		SELECT version, plan_id, interval, interval_count, amount, description, environment, sku, created_at
		FROM plan_history_records
		WHERE item_id = $1
		ORDER BY version_num`

	insertRecordQuery = `
		INSERT INTO plan_history_records
			(item_id, version_num, version, plan_id, interval, interval_count, amount, description, environment, sku, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	upsertLatestQuery = `
		INSERT INTO plan_latest (item_id, plan_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id) DO UPDATE SET plan_id = EXCLUDED.plan_id, updated_at = EXCLUDED.updated_at`

	selectLatestQuery = `SELECT plan_id FROM plan_latest WHERE item_id = $1`

	deleteHistoryQuery = `DELETE FROM plan_history_records WHERE item_id = $1`
	deleteLatestQuery  = `DELETE FROM plan_latest WHERE item_id = $1`
)

// itemLockWait bounds how long a writer waits for another writer of the same item
const itemLockWait = 10 * time.Second

type planHistoryRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewPlanHistoryRepository stores one row per plan version plus a latest
// pointer row per item
func NewPlanHistoryRepository(client *postgres.Client, log *logger.Logger) planhistory.Repository {
	return &planHistoryRepository{
		client: client,
		log:    log,
	}
}

func (r *planHistoryRepository) Get(ctx context.Context, itemID string) (planhistory.History, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, selectHistoryQuery, itemID)
	if err != nil {
		return nil, dbError(err, "Failed to read plan history", itemID)
	}
	defer rows.Close()

	h := planhistory.History{}
	for rows.Next() {
		rec := planhistory.Record{ItemID: itemID}
		var env string
		if err := rows.Scan(
			&rec.Version,
			&rec.PlanID,
			&rec.Interval,
			&rec.IntervalCount,
			&rec.Amount,
			&rec.Description,
			&env,
			&rec.SKU,
			&rec.CreatedAt,
		); err != nil {
			return nil, dbError(err, "Failed to scan plan history", itemID)
		}
		rec.Environment = types.Environment(env)
		h = append(h, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "Failed to read plan history", itemID)
	}
	return h, nil
}

func (r *planHistoryRepository) Put(ctx context.Context, itemID string, h planhistory.History) error {
	return r.client.WithTx(ctx, func(ctx context.Context) error {
		wait := itemLockWait
		lockKey := types.GenerateLockKey(types.LockScopePlanHistory, map[string]interface{}{"item_id": itemID})
		if err := r.client.LockKey(ctx, types.LockRequest{Key: lockKey, TTL: &wait}); err != nil {
			return err
		}

		stored, err := r.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if err := planhistory.CheckAppend(itemID, stored, h); err != nil {
			return err
		}

		q := r.client.Querier(ctx)
		for i := len(stored); i < len(h); i++ {
			rec := h[i]
			if _, err := q.ExecContext(ctx, insertRecordQuery,
				itemID,
				i+1,
				rec.Version,
				rec.PlanID,
				rec.Interval,
				rec.IntervalCount,
				rec.Amount,
				rec.Description,
				string(rec.Environment),
				rec.SKU,
				rec.CreatedAt,
			); err != nil {
				return dbError(err, "Failed to append plan history", itemID)
			}
		}

		latest := h.Latest()
		if latest == nil {
			return nil
		}
		if _, err := q.ExecContext(ctx, upsertLatestQuery, itemID, latest.PlanID, latest.CreatedAt); err != nil {
			return dbError(err, "Failed to update latest plan id", itemID)
		}

		r.log.Debugw("plan history written", "item_id", itemID, "versions", len(h), "appended", len(h)-len(stored))
		return nil
	})
}

func (r *planHistoryRepository) GetLatestPlanID(ctx context.Context, itemID string) (string, error) {
	var planID string
	err := r.client.Querier(ctx).QueryRowContext(ctx, selectLatestQuery, itemID).Scan(&planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", dbError(err, "Failed to read latest plan id", itemID)
	}
	return planID, nil
}

func (r *planHistoryRepository) Clear(ctx context.Context, itemID string) (bool, error) {
	var removed int64
	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)
		for _, query := range []string{deleteHistoryQuery, deleteLatestQuery} {
			res, err := q.ExecContext(ctx, query, itemID)
			if err != nil {
				return dbError(err, "Failed to clear plan history", itemID)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return dbError(err, "Failed to clear plan history", itemID)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func dbError(err error, hint, itemID string) error {
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]interface{}{
			"item_id": itemID,
		}).
		Mark(ierr.ErrDatabase)
}
