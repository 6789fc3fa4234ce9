package lock

import (
	"context"
	"sync"

	ierr "github.com/flexprice/plansync/internal/errors"
)

// ReleaseFunc gives a held lock back. Calling it more than once is a no-op.
type ReleaseFunc func()

// Guard prevents two runs with the same key from overlapping
type Guard interface {
	// TryAcquire takes the lock without waiting. It fails with
	// ErrAlreadyRunning when another holder has it.
	TryAcquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// InProcessGuard serializes runs inside one process
type InProcessGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewInProcessGuard() *InProcessGuard {
	return &InProcessGuard{locks: make(map[string]*sync.Mutex)}
}

func (g *InProcessGuard) TryAcquire(_ context.Context, key string) (ReleaseFunc, error) {
	g.mu.Lock()
	m, ok := g.locks[key]
	if !ok {
		m = &sync.Mutex{}
		g.locks[key] = m
	}
	g.mu.Unlock()

	if !m.TryLock() {
		return nil, alreadyRunning(key)
	}

	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}

func alreadyRunning(key string) error {
	return ierr.NewError("a run is already in progress").
		WithHint("Wait for the current run to finish and try again").
		WithReportableDetails(map[string]interface{}{
			"key": key,
		}).
		Mark(ierr.ErrAlreadyRunning)
}
