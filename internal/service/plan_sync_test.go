package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flexprice/plansync/internal/domain/catalog"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/flexprice/plansync/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type PlanSyncServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PlanSyncService
	params  ServiceParams
	now     time.Time
}

func TestPlanSyncService(t *testing.T) {
	suite.Run(t, new(PlanSyncServiceSuite))
}

func (s *PlanSyncServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.params = ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		Client:          s.GetClient(),
		Catalog:         s.GetStores().Catalog,
		PlanHistoryRepo: s.GetStores().PlanHistory,
		Guard:           s.GetGuard(),
		Cache:           s.GetCache(),
		Now:             func() time.Time { return s.now },
	}
	s.service = NewPlanSyncService(s.params)
}

func gold() *catalog.Item {
	return &catalog.Item{
		ID:            "1",
		Title:         "Gold",
		SKU:           "GOLD",
		Type:          catalog.ItemTypeSimple,
		Interval:      "month",
		IntervalCount: "1",
		Amount:        "10.00",
	}
}

func coffeeClub() (*catalog.Item, *catalog.Item) {
	parent := &catalog.Item{
		ID:            "10",
		Title:         "Coffee Club",
		Type:          catalog.ItemTypeVariable,
		Interval:      "month",
		IntervalCount: "1",
		Amount:        "30.00",
	}
	variant := &catalog.Item{
		ID:       "11",
		Title:    "Coffee Club",
		ParentID: "10",
		Type:     catalog.ItemTypeVariation,
		Attributes: catalog.Attributes{
			{Name: "attribute_size", Value: "Large"},
			{Name: "attribute_roast", Value: "Dark"},
		},
		Interval:      "week",
		IntervalCount: "2",
		Amount:        "15.00",
	}
	return parent, variant
}

func (s *PlanSyncServiceSuite) outcomeFor(outcomes []planhistory.Outcome, itemID string) planhistory.Outcome {
	o, ok := lo.Find(outcomes, func(o planhistory.Outcome) bool { return o.ItemID == itemID })
	s.Require().True(ok, "no outcome for item %s", itemID)
	return o
}

func (s *PlanSyncServiceSuite) TestNotSubscriptionSkipsWithoutNetwork() {
	tests := []struct {
		name string
		edit func(i *catalog.Item)
	}{
		{"missing interval", func(i *catalog.Item) { i.Interval = "" }},
		{"missing interval count", func(i *catalog.Item) { i.IntervalCount = "" }},
		{"missing amount", func(i *catalog.Item) { i.Amount = "" }},
		{"zero interval count", func(i *catalog.Item) { i.IntervalCount = "0" }},
		{"zero amount", func(i *catalog.Item) { i.Amount = "0" }},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			item := gold()
			tt.edit(item)
			s.GetStores().Catalog.AddProduct(item)

			result, err := s.service.RunReconciliation(s.GetContext())
			s.Require().NoError(err)

			o := s.outcomeFor(result.Outcomes, "1")
			s.Equal(planhistory.StatusSkippedNotSubscription, o.Status)
			s.Equal("Gold (ID 1) is not a subscription product, skipping.", o.Message)
			s.Zero(s.GetClient().CallCount())
			s.Zero(s.GetStores().PlanHistory.PutCount())
		})
	}
}

// sharedCatalog hands out the same item pointers on every call
type sharedCatalog struct {
	products []*catalog.Item
	variants []*catalog.Item
}

func (c *sharedCatalog) ListProducts(context.Context) ([]*catalog.Item, error) {
	return c.products, nil
}

func (c *sharedCatalog) ListVariants(context.Context) ([]*catalog.Item, error) {
	return c.variants, nil
}

func (c *sharedCatalog) Get(_ context.Context, id string) (*catalog.Item, error) {
	item, ok := lo.Find(append(append([]*catalog.Item{}, c.products...), c.variants...), func(i *catalog.Item) bool { return i.ID == id })
	if !ok {
		return nil, ierr.NewError("catalog item not found").Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *PlanSyncServiceSuite) TestRunLeavesGatewayItemsUntouched() {
	parent, variant := coffeeClub()
	gw := &sharedCatalog{products: []*catalog.Item{parent}, variants: []*catalog.Item{variant}}

	params := s.params
	params.Catalog = gw
	result, err := NewPlanSyncService(params).RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	o := s.outcomeFor(result.Outcomes, "11")
	s.Equal(planhistory.StatusCreated, o.Status)
	s.Equal(variant.Description(true), o.Description)
	s.False(variant.IsVariant)
}

func (s *PlanSyncServiceSuite) TestVariableParentSkipped() {
	parent, _ := coffeeClub()
	s.GetStores().Catalog.AddProduct(parent)

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	o := s.outcomeFor(result.Outcomes, "10")
	s.Equal(planhistory.StatusSkippedVariableParent, o.Status)
	s.Equal(`Skipping plan creation for variable parent product "Coffee Club" (ID 10).`, o.Message)
	s.Zero(s.GetClient().CallCount())
}

func (s *PlanSyncServiceSuite) TestFirstCreate() {
	s.GetStores().Catalog.AddProduct(gold())

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	o := s.outcomeFor(result.Outcomes, "1")
	s.Equal(planhistory.StatusCreated, o.Status)
	s.Equal("pl_1", o.PlanID)
	s.Equal("Created new plan for Gold (ID 1). Plan ID: pl_1", o.Message)

	h, err := s.GetStores().PlanHistory.Get(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Require().Len(h, 1)
	s.Equal("v1", h[0].Version)
	s.Equal("GOLD", h[0].SKU)
	s.Equal("sandbox", h[0].Environment.String())
	s.Equal(s.now, h[0].CreatedAt)

	latest, err := s.GetStores().PlanHistory.GetLatestPlanID(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Equal("pl_1", latest)

	req := s.GetClient().PlanRequests()[0]
	s.Equal(payvalida.CreatePlanRequest{
		Interval:      "month",
		IntervalCount: "1",
		Amount:        "10.00",
		Description:   "Gold",
	}, req)
}

func (s *PlanSyncServiceSuite) TestUnchangedPerformsNoWrite() {
	s.GetStores().Catalog.AddProduct(gold())

	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)
	puts := s.GetStores().PlanHistory.PutCount()

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	o := s.outcomeFor(result.Outcomes, "1")
	s.Equal(planhistory.StatusSkippedUnchanged, o.Status)
	s.Equal("No changes for Gold (ID 1), skipping.", o.Message)
	s.Equal(1, s.GetClient().CallCount())
	s.Equal(puts, s.GetStores().PlanHistory.PutCount())
}

func (s *PlanSyncServiceSuite) TestComparisonIsVerbatim() {
	s.GetStores().Catalog.AddProduct(gold())
	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	changed := gold()
	changed.Amount = "10"
	s.GetStores().Catalog.Update(changed)

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)
	s.Equal(planhistory.StatusCreated, s.outcomeFor(result.Outcomes, "1").Status)
}

func (s *PlanSyncServiceSuite) TestSKUChangeCreatesPlan() {
	s.GetStores().Catalog.AddProduct(gold())
	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	changed := gold()
	changed.SKU = ""
	s.GetStores().Catalog.Update(changed)

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)
	s.Equal(planhistory.StatusCreated, s.outcomeFor(result.Outcomes, "1").Status)

	h, err := s.GetStores().PlanHistory.Get(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Equal("post_id_1", h.Latest().SKU)
}

func (s *PlanSyncServiceSuite) TestVersionsAreDense() {
	s.GetStores().Catalog.AddProduct(gold())

	const runs = 5
	for n := 1; n <= runs; n++ {
		changed := gold()
		changed.Amount = lo.Ternary(n%2 == 0, "20.00", "10.00")
		changed.IntervalCount = string(rune('0' + n))
		s.GetStores().Catalog.Update(changed)

		_, err := s.service.RunReconciliation(s.GetContext())
		s.Require().NoError(err)
	}

	h, err := s.GetStores().PlanHistory.Get(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Require().Len(h, runs)
	for i, r := range h {
		s.Equal(planhistory.VersionLabel(i+1), r.Version)
	}
	s.NoError(h.Validate("1"))

	latest, err := s.GetStores().PlanHistory.GetLatestPlanID(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Equal(h.Latest().PlanID, latest)
}

func (s *PlanSyncServiceSuite) TestVariantDescriptionAndOrder() {
	parent, variant := coffeeClub()
	s.GetStores().Catalog.AddProduct(gold()).AddProduct(parent).AddVariant(variant)

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	s.Require().Len(result.Outcomes, 4)
	s.Equal([]string{"1", "10", "11", ""}, lo.Map(result.Outcomes, func(o planhistory.Outcome, _ int) string {
		return o.ItemID
	}))
	s.Equal(planhistory.StatusSummary, result.Outcomes[3].Status)
	s.Equal(planhistory.SummaryMessage, result.Outcomes[3].Message)

	o := s.outcomeFor(result.Outcomes, "11")
	s.Equal(planhistory.StatusCreated, o.Status)
	s.Equal("Coffee Club (size: Large, roast: Dark)", o.Description)

	h, err := s.GetStores().PlanHistory.Get(s.GetContext(), "11")
	s.Require().NoError(err)
	s.Equal("post_id_11", h.Latest().SKU)
}

func (s *PlanSyncServiceSuite) TestItemErrorDoesNotAbortBatch() {
	failing := gold()
	failing.ID = "2"
	failing.Title = "Silver"
	s.GetStores().Catalog.AddProduct(failing).AddProduct(gold())
	s.GetClient().FailPlansFor("Silver", "bad merchant")

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	failed := s.outcomeFor(result.Outcomes, "2")
	s.Equal(planhistory.StatusError, failed.Status)
	s.Contains(failed.Error, "bad merchant")
	s.Equal("Error creating plan for Silver (ID 2): bad merchant", failed.Message)

	h, err := s.GetStores().PlanHistory.Get(s.GetContext(), "2")
	s.Require().NoError(err)
	s.Empty(h)

	s.Equal(planhistory.StatusCreated, s.outcomeFor(result.Outcomes, "1").Status)
	s.Equal(1, result.Count(planhistory.StatusError))
	s.Equal(1, result.Count(planhistory.StatusCreated))
}

func (s *PlanSyncServiceSuite) TestCatalogFailureAbortsRun() {
	s.GetStores().Catalog.FailWith(ierr.NewError("catalog unavailable").Mark(ierr.ErrDatabase))

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Error(err)
	s.Nil(result)
	s.True(ierr.IsDatabase(err))
}

func (s *PlanSyncServiceSuite) TestConcurrentRunRejected() {
	s.GetStores().Catalog.AddProduct(gold())

	var nested error
	s.GetClient().BeforeCreate = func(_ *payvalida.CreatePlanRequest) {
		_, nested = s.service.RunReconciliation(s.GetContext())
	}

	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)
	s.Require().Error(nested)
	s.True(ierr.IsAlreadyRunning(nested))

	// the guard is released once the run finishes
	s.GetClient().BeforeCreate = nil
	_, err = s.service.RunReconciliation(s.GetContext())
	s.NoError(err)
}

func (s *PlanSyncServiceSuite) TestResetDuringRunRejected() {
	s.GetStores().Catalog.AddProduct(gold())

	var resetErr error
	s.GetClient().BeforeCreate = func(_ *payvalida.CreatePlanRequest) {
		_, resetErr = s.service.ResetAll(s.GetContext())
	}

	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)
	s.True(ierr.IsAlreadyRunning(resetErr))
}

func (s *PlanSyncServiceSuite) TestResetIsIdempotent() {
	parent, variant := coffeeClub()
	s.GetStores().Catalog.AddProduct(gold()).AddProduct(parent).AddVariant(variant)

	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	// latest id without history still counts once
	s.GetStores().PlanHistory.SetLatestPlanID(s.GetContext(), "10", "pl_stale")

	count, err := s.service.ResetAll(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, count)

	count, err = s.service.ResetAll(s.GetContext())
	s.Require().NoError(err)
	s.Zero(count)

	s.Empty(s.GetStores().PlanHistory.ItemIDs())
	latest, err := s.GetStores().PlanHistory.GetLatestPlanID(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Empty(latest)
}

func (s *PlanSyncServiceSuite) TestResetThenRunStartsAtV1() {
	s.GetStores().Catalog.AddProduct(gold())
	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	_, err = s.service.ResetAll(s.GetContext())
	s.Require().NoError(err)

	result, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)
	s.Equal(planhistory.StatusCreated, s.outcomeFor(result.Outcomes, "1").Status)

	h, err := s.GetStores().PlanHistory.Get(s.GetContext(), "1")
	s.Require().NoError(err)
	s.Require().Len(h, 1)
	s.Equal("v1", h[0].Version)
}

func (s *PlanSyncServiceSuite) TestListHistoriesReportsOrphans() {
	parent, variant := coffeeClub()
	s.GetStores().Catalog.AddProduct(gold()).AddProduct(parent).AddVariant(variant)

	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	report, err := s.service.ListHistories(s.GetContext())
	s.Require().NoError(err)

	// the variable parent never gets history, so its variant is an orphan
	s.Require().Len(report.Products, 1)
	s.Equal("1", report.Products[0].ItemID)
	s.Empty(report.Products[0].Variants)

	s.Require().Len(report.Orphans, 1)
	s.Equal("10", report.Orphans[0].ParentID)
	s.Equal("Coffee Club", report.Orphans[0].ParentTitle)
	s.Require().Len(report.Orphans[0].Variants, 1)
	s.Equal("11", report.Orphans[0].Variants[0].ItemID)
}

func (s *PlanSyncServiceSuite) TestListHistoriesEmpty() {
	s.GetStores().Catalog.AddProduct(gold())

	report, err := s.service.ListHistories(s.GetContext())
	s.Require().NoError(err)
	s.True(report.IsEmpty())
}

func (s *PlanSyncServiceSuite) TestCreatedRunInvalidatesPlanIndex() {
	s.GetCache().Set(s.GetContext(), planIndexCacheKey, &planIndex{"pl_old": "Old"}, time.Minute)
	s.GetStores().Catalog.AddProduct(gold())

	_, err := s.service.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	_, ok := s.GetCache().Get(s.GetContext(), planIndexCacheKey)
	s.False(ok)
}

func (s *PlanSyncServiceSuite) TestHistoryWriteFailureIsItemError() {
	s.GetStores().Catalog.AddProduct(gold())
	s.params.PlanHistoryRepo = &failingPutRepo{
		Repository: s.GetStores().PlanHistory,
		err:        errors.New("disk full"),
	}
	svc := NewPlanSyncService(s.params)

	result, err := svc.RunReconciliation(s.GetContext())
	s.Require().NoError(err)

	o := s.outcomeFor(result.Outcomes, "1")
	s.Equal(planhistory.StatusError, o.Status)
	s.Contains(o.Error, "disk full")
}

type failingPutRepo struct {
	planhistory.Repository
	err error
}

func (r *failingPutRepo) Put(_ context.Context, _ string, _ planhistory.History) error {
	return r.err
}
