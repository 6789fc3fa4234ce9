package planhistory

import "context"

// Repository persists plan histories keyed by item id
type Repository interface {
	// Get returns the history of an item, empty when it has none
	Get(ctx context.Context, itemID string) (History, error)

	// Put replaces the stored history with h and points the latest plan id
	// at its last record, in one atomic write. h must be an append of the
	// stored history; anything else is rejected with ErrInvalidOperation.
	Put(ctx context.Context, itemID string, h History) error

	// GetLatestPlanID returns the latest plan id, empty when there is none
	GetLatestPlanID(ctx context.Context, itemID string) (string, error)

	// Clear removes the history and latest plan id of an item and reports
	// whether either existed
	Clear(ctx context.Context, itemID string) (bool, error)
}
