package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/plansync/internal/domain/planhistory"
	"github.com/flexprice/plansync/internal/repository/memory"
)

// InMemoryPlanHistoryStore is the memory repository with a write counter
type InMemoryPlanHistoryStore struct {
	*memory.PlanHistoryRepository
	mu   sync.Mutex
	puts int
}

func NewInMemoryPlanHistoryStore() *InMemoryPlanHistoryStore {
	return &InMemoryPlanHistoryStore{
		PlanHistoryRepository: memory.NewPlanHistoryRepository(),
	}
}

func (s *InMemoryPlanHistoryStore) Put(ctx context.Context, itemID string, h planhistory.History) error {
	if err := s.PlanHistoryRepository.Put(ctx, itemID, h); err != nil {
		return err
	}
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return nil
}

// PutCount returns the number of successful Put calls
func (s *InMemoryPlanHistoryStore) PutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
