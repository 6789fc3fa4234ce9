package service

import (
	"context"

	"github.com/flexprice/plansync/internal/api/dto"
	"github.com/flexprice/plansync/internal/cache"
	"github.com/flexprice/plansync/internal/domain/catalog"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/sourcegraph/conc/pool"
)

const (
	planIndexCacheKey = planIndexCachePrefix + "index"

	// planIndexConcurrency bounds parallel latest plan id lookups
	planIndexConcurrency = 8
)

// planIndex maps a latest plan id to the description of the item holding it
type planIndex map[string]string

type SubscriptionService interface {
	ListSubscriptions(ctx context.Context, req *payvalida.ListSubscriptionsRequest) (*dto.ListSubscriptionsResponse, error)
	GetSubscription(ctx context.Context, subscriptionID, requestID string) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	RegisterSubscription(ctx context.Context, req *payvalida.RegisterSubscriptionRequest) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
	}
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, req *payvalida.ListSubscriptionsRequest) (*dto.ListSubscriptionsResponse, error) {
	if req == nil {
		req = &payvalida.ListSubscriptionsRequest{}
	}

	list, err := s.Client.ListSubscriptions(ctx, req)
	if err != nil {
		return nil, err
	}

	index, err := s.planIndex(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListSubscriptionsResponse{
		Items:      make([]*dto.SubscriptionResponse, 0, len(list.Subscriptions)),
		Pagination: list.Pagination,
	}
	for _, sub := range list.Subscriptions {
		resp.Items = append(resp.Items, index.toResponse(sub))
	}
	return resp, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, subscriptionID, requestID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.Client.GetSubscription(ctx, subscriptionID, requestID)
	if err != nil {
		return nil, err
	}

	index, err := s.planIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index.toResponse(*sub), nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if _, err := s.Client.CancelSubscription(ctx, subscriptionID); err != nil {
		s.Logger.WithContext(ctx).Errorw("failed to cancel subscription",
			"subscription_id", subscriptionID,
			"error", err)
		return err
	}

	s.Logger.WithContext(ctx).Infow("cancelled subscription", "subscription_id", subscriptionID)
	return nil
}

func (s *subscriptionService) RegisterSubscription(ctx context.Context, req *payvalida.RegisterSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	sub, err := s.Client.RegisterSubscription(ctx, req)
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("registered subscription",
		"subscription_id", sub.ID,
		"plan_id", req.PlanID)

	index, err := s.planIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index.toResponse(*sub), nil
}

// planIndex is rebuilt from the catalog when the cached copy expired or a
// reconciliation run created plans
func (s *subscriptionService) planIndex(ctx context.Context) (planIndex, error) {
	if cached, ok := cache.Lookup[planIndex](ctx, s.Cache, planIndexCacheKey); ok {
		return *cached, nil
	}

	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	variants, err := s.Catalog.ListVariants(ctx)
	if err != nil {
		return nil, err
	}

	type latestPlan struct {
		planID string
		title  string
	}

	p := pool.NewWithResults[latestPlan]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(planIndexConcurrency)
	for _, item := range append(products, catalog.AsVariants(variants)...) {
		p.Go(func(ctx context.Context) (latestPlan, error) {
			planID, err := s.PlanHistoryRepo.GetLatestPlanID(ctx, item.ID)
			return latestPlan{planID: planID, title: item.Description(item.IsVariant)}, err
		})
	}
	plans, err := p.Wait()
	if err != nil {
		return nil, err
	}

	index := make(planIndex, len(plans))
	for _, lp := range plans {
		if lp.planID != "" {
			index[lp.planID] = lp.title
		}
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, planIndexCacheKey, &index, cache.ExpiryPlanIndex)
	}
	return index, nil
}

func (idx planIndex) toResponse(sub payvalida.Subscription) *dto.SubscriptionResponse {
	title, ok := idx[sub.PlanID.String()]
	if !ok {
		title = dto.UnknownItemTitle
	}
	return &dto.SubscriptionResponse{
		Subscription: sub,
		ItemTitle:    title,
	}
}
