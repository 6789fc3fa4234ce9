package service

import (
	"context"

	"github.com/flexprice/plansync/internal/api/dto"
	"github.com/flexprice/plansync/internal/domain/catalog"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/flexprice/plansync/internal/types"
	"github.com/samber/lo"
)

// planIndexCachePrefix namespaces cache entries derived from latest plan ids
const planIndexCachePrefix = "plans:"

// PlanSyncService keeps a Payvalida plan in line with every subscription
// item of the catalog
type PlanSyncService interface {
	// RunReconciliation creates a plan for every item whose terms changed
	// since its latest plan. Per-item failures become error outcomes; an
	// error is returned only when the run cannot start.
	RunReconciliation(ctx context.Context) (*dto.SyncResult, error)

	// ResetAll clears the plan history and latest plan id of every catalog
	// item and returns how many items held either
	ResetAll(ctx context.Context) (int, error)

	// ListHistories groups local plan histories by product, with orphan
	// variants reported apart
	ListHistories(ctx context.Context) (*planhistory.Report, error)
}

type planSyncService struct {
	ServiceParams
}

func NewPlanSyncService(params ServiceParams) PlanSyncService {
	return &planSyncService{
		ServiceParams: params,
	}
}

func (s *planSyncService) runLockKey() string {
	return types.GenerateLockKey(types.LockScopePlanSync, map[string]interface{}{
		"merchant": s.Config.Payvalida.Merchant,
	})
}

func (s *planSyncService) RunReconciliation(ctx context.Context) (*dto.SyncResult, error) {
	ctx = types.SetRunID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RUN))
	log := s.Logger.WithContext(ctx)

	release, err := s.Guard.TryAcquire(ctx, s.runLockKey())
	if err != nil {
		log.Warnw("plan sync not started", "error", err)
		return nil, err
	}
	defer release()

	result := &dto.SyncResult{
		RunID:       types.GetRunID(ctx),
		Environment: s.Client.Environment().String(),
		StartedAt:   s.now().UTC(),
	}

	products, variants, err := s.listCatalog(ctx)
	if err != nil {
		log.Errorw("failed to load catalog", "error", err)
		return nil, err
	}

	log.Infow("starting plan sync",
		"environment", result.Environment,
		"products", len(products),
		"variants", len(variants))

	created := false
	for _, batch := range []struct {
		items     []*catalog.Item
		isVariant bool
	}{
		{products, false},
		{variants, true},
	} {
		for _, item := range batch.items {
			outcome := s.reconcileItem(ctx, item, batch.isVariant)
			s.recordOutcome(ctx, outcome)
			result.Outcomes = append(result.Outcomes, outcome)
			created = created || outcome.Status == planhistory.StatusCreated
		}
	}

	summary := planhistory.NewSummaryOutcome()
	result.Outcomes = append(result.Outcomes, summary)
	result.FinishedAt = s.now().UTC()

	if created {
		s.invalidatePlanIndex(ctx)
	}
	s.Metrics.RecordRunFinished(result.FinishedAt)

	counts := result.Counts()
	log.Infow(summary.Message,
		"created", counts[planhistory.StatusCreated],
		"unchanged", counts[planhistory.StatusSkippedUnchanged],
		"errors", counts[planhistory.StatusError])

	return result, nil
}

// reconcileItem decides create-vs-skip for one item. It never returns an
// error: failures are folded into the outcome.
func (s *planSyncService) reconcileItem(ctx context.Context, item *catalog.Item, isVariant bool) planhistory.Outcome {
	if !isVariant && item.IsVariableParent() {
		return planhistory.NewVariableParentOutcome(item.ID, item.Title)
	}

	terms, ok := item.Terms()
	if !ok {
		return planhistory.NewNotSubscriptionOutcome(item.ID, item.Title)
	}

	description := item.Description(isVariant)
	sku := item.ResolvedSKU()

	history, err := s.PlanHistoryRepo.Get(ctx, item.ID)
	if err != nil {
		return s.itemError(ctx, item, description, err)
	}

	if latest := history.Latest(); latest != nil &&
		latest.Matches(terms.Interval, terms.IntervalCount, terms.Amount, sku) {
		return planhistory.NewUnchangedOutcome(item.ID, description)
	}

	planID, err := s.Client.CreatePlan(ctx, &payvalida.CreatePlanRequest{
		Interval:      terms.Interval,
		IntervalCount: terms.IntervalCount,
		Amount:        terms.Amount,
		Description:   description,
	})
	if err != nil {
		return s.itemError(ctx, item, description, err)
	}

	next := history.Append(planhistory.Record{
		PlanID:        planID,
		Interval:      terms.Interval,
		IntervalCount: terms.IntervalCount,
		Amount:        terms.Amount,
		Description:   description,
		Environment:   s.Client.Environment(),
		CreatedAt:     s.now().UTC(),
		SKU:           sku,
		ItemID:        item.ID,
	})
	if err := s.PlanHistoryRepo.Put(ctx, item.ID, next); err != nil {
		// The remote plan exists but is not recorded; the next run creates another
		s.Logger.WithContext(ctx).Errorw("plan created but history not saved",
			"item_id", item.ID,
			"plan_id", planID,
			"error", err)
		return s.itemError(ctx, item, description, err)
	}

	return planhistory.NewCreatedOutcome(item.ID, description, planID)
}

func (s *planSyncService) itemError(ctx context.Context, item *catalog.Item, description string, cause error) planhistory.Outcome {
	err := ierr.WithError(cause).
		WithHint("Plan reconciliation failed for this item").
		WithReportableDetails(map[string]interface{}{
			"item_id": item.ID,
			"sku":     item.ResolvedSKU(),
		}).
		Mark(ierr.ErrItem)

	s.Sentry.CaptureItemError(ctx, item.ID, err)
	return planhistory.NewErrorOutcome(item.ID, description, cause.Error())
}

func (s *planSyncService) recordOutcome(ctx context.Context, outcome planhistory.Outcome) {
	s.Metrics.RecordOutcome(string(outcome.Status))

	log := s.Logger.WithContext(ctx)
	if outcome.Status == planhistory.StatusError {
		log.Errorw(outcome.Message, "item_id", outcome.ItemID, "status", outcome.Status)
		return
	}
	log.Infow(outcome.Message, "item_id", outcome.ItemID, "status", outcome.Status, "plan_id", outcome.PlanID)
}

func (s *planSyncService) ResetAll(ctx context.Context) (int, error) {
	ctx = types.SetRunID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RUN))
	log := s.Logger.WithContext(ctx)

	release, err := s.Guard.TryAcquire(ctx, s.runLockKey())
	if err != nil {
		return 0, err
	}
	defer release()

	products, variants, err := s.listCatalog(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range append(products, variants...) {
		had, err := s.PlanHistoryRepo.Clear(ctx, item.ID)
		if err != nil {
			log.Errorw("failed to clear plan data", "item_id", item.ID, "cleared", count, "error", err)
			return count, err
		}
		if had {
			count++
		}
	}

	if count > 0 {
		s.invalidatePlanIndex(ctx)
	}
	log.Infow(planhistory.ResetMessage(count), "count", count)
	return count, nil
}

func (s *planSyncService) ListHistories(ctx context.Context) (*planhistory.Report, error) {
	products, variants, err := s.listCatalog(ctx)
	if err != nil {
		return nil, err
	}

	productEntries, err := s.entriesWithHistory(ctx, products)
	if err != nil {
		return nil, err
	}
	variantEntries, err := s.entriesWithHistory(ctx, variants)
	if err != nil {
		return nil, err
	}

	parentOf := lo.SliceToMap(variants, func(v *catalog.Item) (string, string) {
		return v.ID, v.ParentID
	})
	parents := lo.KeyBy(products, func(p *catalog.Item) string {
		return p.ID
	})

	return planhistory.BuildReport(productEntries, variantEntries, parentOf, parents), nil
}

func (s *planSyncService) entriesWithHistory(ctx context.Context, items []*catalog.Item) ([]planhistory.Entry, error) {
	entries := make([]planhistory.Entry, 0, len(items))
	for _, item := range items {
		h, err := s.PlanHistoryRepo.Get(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if len(h) == 0 {
			continue
		}
		entries = append(entries, planhistory.NewEntry(item, h))
	}
	return entries, nil
}

func (s *planSyncService) listCatalog(ctx context.Context) (products, variants []*catalog.Item, err error) {
	products, err = s.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}
	variants, err = s.Catalog.ListVariants(ctx)
	if err != nil {
		return nil, nil, err
	}
	return products, catalog.AsVariants(variants), nil
}

func (s *planSyncService) invalidatePlanIndex(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, planIndexCachePrefix)
	}
}
