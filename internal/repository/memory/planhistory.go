package memory

import (
	"context"
	"sync"

	"github.com/flexprice/plansync/internal/domain/planhistory"
	ierr "github.com/flexprice/plansync/internal/errors"
)

// PlanHistoryRepository keeps plan histories in process memory. It backs
// store.type=memory and the service tests.
type PlanHistoryRepository struct {
	// mu makes Put and Clear atomic across the two underlying stores
	mu        sync.Mutex
	histories *Store[planhistory.History]
	latest    *Store[string]
}

var _ planhistory.Repository = (*PlanHistoryRepository)(nil)

func NewPlanHistoryRepository() *PlanHistoryRepository {
	return &PlanHistoryRepository{
		histories: NewStore[planhistory.History](),
		latest:    NewStore[string](),
	}
}

func copyHistory(h planhistory.History) planhistory.History {
	if len(h) == 0 {
		return planhistory.History{}
	}
	out := make(planhistory.History, len(h))
	copy(out, h)
	return out
}

func (r *PlanHistoryRepository) Get(ctx context.Context, itemID string) (planhistory.History, error) {
	h, err := r.histories.Get(ctx, itemID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return planhistory.History{}, nil
		}
		return nil, err
	}
	return copyHistory(h), nil
}

func (r *PlanHistoryRepository) Put(ctx context.Context, itemID string, h planhistory.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if err := planhistory.CheckAppend(itemID, stored, h); err != nil {
		return err
	}

	r.histories.Upsert(ctx, itemID, copyHistory(h))
	if latest := h.Latest(); latest != nil {
		r.latest.Upsert(ctx, itemID, latest.PlanID)
	}
	return nil
}

func (r *PlanHistoryRepository) GetLatestPlanID(ctx context.Context, itemID string) (string, error) {
	planID, err := r.latest.Get(ctx, itemID)
	if err != nil && !ierr.IsNotFound(err) {
		return "", err
	}
	return planID, nil
}

func (r *PlanHistoryRepository) Clear(ctx context.Context, itemID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hadHistory := r.histories.Delete(ctx, itemID)
	hadLatest := r.latest.Delete(ctx, itemID)
	return hadHistory || hadLatest, nil
}

// SetLatestPlanID stores a latest pointer without history, as legacy data can
func (r *PlanHistoryRepository) SetLatestPlanID(ctx context.Context, itemID, planID string) {
	r.latest.Upsert(ctx, itemID, planID)
}

// ItemIDs returns the ids of items holding history
func (r *PlanHistoryRepository) ItemIDs() []string {
	return r.histories.Keys()
}
