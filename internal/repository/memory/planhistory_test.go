package memory

import (
	"context"
	"testing"

	"github.com/flexprice/plansync/internal/domain/planhistory"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanHistoryRepository(t *testing.T) {
	ctx := context.Background()
	store := NewPlanHistoryRepository()

	t.Run("empty item", func(t *testing.T) {
		h, err := store.Get(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, h)

		planID, err := store.GetLatestPlanID(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, planID)
	})

	t.Run("put writes history and latest pointer", func(t *testing.T) {
		h := planhistory.History{}.Append(planhistory.Record{PlanID: "pl_1", ItemID: "1"})
		require.NoError(t, store.Put(ctx, "1", h))

		h = h.Append(planhistory.Record{PlanID: "pl_2", ItemID: "1"})
		require.NoError(t, store.Put(ctx, "1", h))

		got, err := store.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, h, got)

		planID, err := store.GetLatestPlanID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "pl_2", planID)
	})

	t.Run("rejects rewrites", func(t *testing.T) {
		h := planhistory.History{}.Append(planhistory.Record{PlanID: "other", ItemID: "1"})
		err := store.Put(ctx, "1", h)
		require.Error(t, err)
		assert.True(t, ierr.IsInvalidOperation(err))

		planID, _ := store.GetLatestPlanID(ctx, "1")
		assert.Equal(t, "pl_2", planID)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		had, err := store.Clear(ctx, "1")
		require.NoError(t, err)
		assert.True(t, had)

		had, err = store.Clear(ctx, "1")
		require.NoError(t, err)
		assert.False(t, had)
	})

	t.Run("clear counts a bare latest pointer", func(t *testing.T) {
		store.SetLatestPlanID(ctx, "9", "legacy")
		had, err := store.Clear(ctx, "9")
		require.NoError(t, err)
		assert.True(t, had)
	})
}

func TestPlanHistoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewPlanHistoryRepository()

	h := planhistory.History{}.Append(planhistory.Record{PlanID: "pl_1", ItemID: "1"})
	require.NoError(t, repo.Put(ctx, "1", h))

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	got[0].PlanID = "mutated"

	again, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "pl_1", again[0].PlanID)
	assert.Equal(t, []string{"1"}, repo.ItemIDs())
}
