package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/flexprice/plansync/internal/types"
)

// FakePayvalidaClient implements payvalida.Client without a network. Plan
// ids are pl_1, pl_2, ... in call order.
type FakePayvalidaClient struct {
	mu            sync.Mutex
	environment   types.Environment
	planRequests  []payvalida.CreatePlanRequest
	failures      map[string]error
	subscriptions []payvalida.Subscription
	cancelled     []string
	// BeforeCreate runs inside CreatePlan before the plan id is issued
	BeforeCreate func(req *payvalida.CreatePlanRequest)
}

var _ payvalida.Client = (*FakePayvalidaClient)(nil)

func NewFakePayvalidaClient() *FakePayvalidaClient {
	return &FakePayvalidaClient{
		environment: types.EnvironmentSandbox,
		failures:    make(map[string]error),
	}
}

// FailPlansFor makes CreatePlan fail with a provider error for this description
func (f *FakePayvalidaClient) FailPlansFor(description, desc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[description] = ierr.NewError(desc).Mark(ierr.ErrProvider)
}

// AddSubscription seeds a remote subscription
func (f *FakePayvalidaClient) AddSubscription(sub payvalida.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions = append(f.subscriptions, sub)
}

// PlanRequests returns every CreatePlan request received
func (f *FakePayvalidaClient) PlanRequests() []payvalida.CreatePlanRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payvalida.CreatePlanRequest(nil), f.planRequests...)
}

// CallCount returns the number of CreatePlan calls
func (f *FakePayvalidaClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.planRequests)
}

// Cancelled returns the ids passed to CancelSubscription
func (f *FakePayvalidaClient) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func (f *FakePayvalidaClient) Environment() types.Environment {
	return f.environment
}

func (f *FakePayvalidaClient) CreatePlan(_ context.Context, req *payvalida.CreatePlanRequest) (string, error) {
	f.mu.Lock()
	f.planRequests = append(f.planRequests, *req)
	n := len(f.planRequests)
	err := f.failures[req.Description]
	hook := f.BeforeCreate
	f.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pl_%d", n), nil
}

func (f *FakePayvalidaClient) RegisterSubscription(_ context.Context, req *payvalida.RegisterSubscriptionRequest) (*payvalida.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := payvalida.Subscription{
		ID:     payvalida.FlexString(fmt.Sprintf("sub_%d", len(f.subscriptions)+1)),
		PlanID: payvalida.FlexString(req.PlanID),
		Status: "active",
	}
	f.subscriptions = append(f.subscriptions, sub)
	return &sub, nil
}

func (f *FakePayvalidaClient) CancelSubscription(_ context.Context, subscriptionID string) (*payvalida.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, subscriptionID)
	return &payvalida.Response{Code: payvalida.SuccessCode}, nil
}

func (f *FakePayvalidaClient) ListSubscriptions(_ context.Context, req *payvalida.ListSubscriptionsRequest) (*payvalida.SubscriptionList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &payvalida.SubscriptionList{
		Subscriptions: append([]payvalida.Subscription(nil), f.subscriptions...),
		Pagination: payvalida.Pagination{
			PageNum:    "1",
			TotalPages: "1",
		},
	}, nil
}

func (f *FakePayvalidaClient) GetSubscription(_ context.Context, subscriptionID, _ string) (*payvalida.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subscriptions {
		if f.subscriptions[i].ID.String() == subscriptionID {
			sub := f.subscriptions[i]
			return &sub, nil
		}
	}
	return nil, ierr.NewError(payvalida.UnknownErrorDescription).Mark(ierr.ErrProvider)
}
