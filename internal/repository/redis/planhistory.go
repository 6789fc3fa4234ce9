package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	redisClient "github.com/flexprice/plansync/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	historyKeySpace = "history"
	latestKeySpace  = "latest"

	// maxWatchRetries bounds optimistic retries when another writer touches
	// the same item between WATCH and EXEC
	maxWatchRetries = 3

	watchRetryInterval = 10 * time.Millisecond
)

type planHistoryRepository struct {
	client *redisClient.Client
	log    *logger.Logger
}

// NewPlanHistoryRepository stores each item's history as a JSON document at
// <prefix>:history:<item> and its latest plan id at <prefix>:latest:<item>
func NewPlanHistoryRepository(client *redisClient.Client, log *logger.Logger) planhistory.Repository {
	return &planHistoryRepository{
		client: client,
		log:    log,
	}
}

func (r *planHistoryRepository) historyKey(itemID string) string {
	return r.client.Key(historyKeySpace, itemID)
}

func (r *planHistoryRepository) latestKey(itemID string) string {
	return r.client.Key(latestKeySpace, itemID)
}

func (r *planHistoryRepository) Get(ctx context.Context, itemID string) (planhistory.History, error) {
	return r.get(ctx, r.client.GetClient(), itemID)
}

func (r *planHistoryRepository) get(ctx context.Context, cmd goredis.Cmdable, itemID string) (planhistory.History, error) {
	raw, err := cmd.Get(ctx, r.historyKey(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return planhistory.History{}, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read plan history").
			WithReportableDetails(map[string]interface{}{
				"item_id": itemID,
			}).
			Mark(ierr.ErrDatabase)
	}

	var h planhistory.History
	if err := json.Unmarshal(raw, &h); err != nil {
		// A value that is not a history sequence reads as no history
		r.log.Warnw("ignoring unreadable plan history", "item_id", itemID, "error", err)
		return planhistory.History{}, nil
	}
	return h, nil
}

func (r *planHistoryRepository) Put(ctx context.Context, itemID string, h planhistory.History) error {
	data, err := json.Marshal(h)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode plan history").
			Mark(ierr.ErrInternal)
	}

	hk, lk := r.historyKey(itemID), r.latestKey(itemID)
	txf := func(tx *goredis.Tx) error {
		stored, err := r.get(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := planhistory.CheckAppend(itemID, stored, h); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, hk, data, 0)
			if latest := h.Latest(); latest != nil {
				pipe.Set(ctx, lk, latest.PlanID, 0)
			}
			return nil
		})
		return err
	}

	attempt := 0
	watch := func() error {
		attempt++
		err := r.client.GetClient().Watch(ctx, txf, hk, lk)
		if errors.Is(err, goredis.TxFailedErr) {
			r.log.Debugw("plan history changed during write, retrying", "item_id", itemID, "attempt", attempt)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(watchRetryInterval), maxWatchRetries-1)
	err = backoff.Retry(watch, backoff.WithContext(policy, ctx))

	if err == nil {
		return nil
	}
	if ierr.IsValidation(err) || ierr.IsInvalidOperation(err) || ierr.IsDatabase(err) {
		return err
	}
	return ierr.WithError(err).
		WithHint("Failed to write plan history").
		WithReportableDetails(map[string]interface{}{
			"item_id": itemID,
		}).
		Mark(ierr.ErrDatabase)
}

func (r *planHistoryRepository) GetLatestPlanID(ctx context.Context, itemID string) (string, error) {
	planID, err := r.client.GetClient().Get(ctx, r.latestKey(itemID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", ierr.WithError(err).
			WithHint("Failed to read latest plan id").
			WithReportableDetails(map[string]interface{}{
				"item_id": itemID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return planID, nil
}

func (r *planHistoryRepository) Clear(ctx context.Context, itemID string) (bool, error) {
	n, err := r.client.GetClient().Del(ctx, r.historyKey(itemID), r.latestKey(itemID)).Result()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to clear plan history").
			WithReportableDetails(map[string]interface{}{
				"item_id": itemID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return n > 0, nil
}
