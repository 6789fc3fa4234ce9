package payvalida

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flexprice/plansync/internal/config"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/metrics"
	"github.com/flexprice/plansync/internal/types"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Client defines the interface for Payvalida API operations
type Client interface {
	// Environment returns the environment every request targets
	Environment() types.Environment

	// CreatePlan creates a plan and returns its remote id
	CreatePlan(ctx context.Context, req *CreatePlanRequest) (string, error)

	RegisterSubscription(ctx context.Context, req *RegisterSubscriptionRequest) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Response, error)
	ListSubscriptions(ctx context.Context, req *ListSubscriptionsRequest) (*SubscriptionList, error)
	GetSubscription(ctx context.Context, subscriptionID, requestID string) (*Subscription, error)
}

// client handles Payvalida API requests
type client struct {
	signer      *Signer
	environment types.Environment
	baseURL     string
	httpClient  *retryablehttp.Client
	logger      *logger.Logger
	metrics     *metrics.Metrics
	// limiter is nil when requests are not rate limited
	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient creates a new Payvalida client. m may be nil.
func NewClient(cfg *config.Configuration, log *logger.Logger, m *metrics.Metrics) Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.Payvalida.MaxRetries
	httpClient.HTTPClient.Timeout = cfg.Payvalida.Timeout
	httpClient.Logger = log.GetRetryableHTTPLogger()
	// Hand back the provider's response even for 5xx so its envelope can be read
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	var limiter *rate.Limiter
	if cfg.Payvalida.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Payvalida.RateLimit), 1)
	}

	return &client{
		signer:      NewSigner(cfg.Payvalida.Merchant, cfg.Payvalida.FixedHash),
		environment: cfg.Payvalida.Environment,
		baseURL:     cfg.Payvalida.BaseURL(),
		httpClient:  httpClient,
		logger:      log,
		metrics:     m,
		limiter:     limiter,
		now:         time.Now,
	}
}

func (c *client) Environment() types.Environment {
	return c.environment
}

// CreatePlan creates a plan in Payvalida
func (c *client) CreatePlan(ctx context.Context, req *CreatePlanRequest) (string, error) {
	if req == nil {
		return "", ierr.NewError("create plan request is required").Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		c.metrics.RecordProviderRequest(OperationCreatePlan, "validation_error", 0)
		return "", err
	}

	payload := createPlanPayload{
		Merchant:      c.signer.Merchant(),
		Interval:      req.Interval,
		Timestamp:     c.now().Unix(),
		IntervalCount: req.IntervalCount,
		Amount:        req.Amount,
		Description:   SanitizeDescription(req.Description),
		Checksum:      c.signer.CreatePlanChecksum(req.Amount, req.Interval, req.IntervalCount),
	}

	resp, err := c.do(ctx, OperationCreatePlan, http.MethodPost, PathCreatePlan, payload)
	if err != nil {
		return "", err
	}

	var data planData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			c.logger.Warnw("failed to decode Payvalida plan data", "error", err)
		}
	}
	if data.ID == "" {
		desc := resp.Desc
		if desc == "" {
			desc = UnknownErrorDescription
		}
		return "", ierr.NewError(desc).
			WithHint("Payvalida response did not include a plan id").
			WithReportableDetails(map[string]interface{}{
				"code": resp.Code,
			}).
			Mark(ierr.ErrProvider)
	}

	c.logger.Infow("successfully created plan in Payvalida",
		"plan_id", data.ID,
		"interval", req.Interval,
		"interval_count", req.IntervalCount,
		"amount", req.Amount,
		"environment", c.environment)

	return data.ID.String(), nil
}

// RegisterSubscription subscribes a customer to a plan
func (c *client) RegisterSubscription(ctx context.Context, req *RegisterSubscriptionRequest) (*Subscription, error) {
	if req == nil {
		return nil, ierr.NewError("register subscription request is required").Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		c.metrics.RecordProviderRequest(OperationRegisterSubscription, "validation_error", 0)
		return nil, err
	}

	payload := registerSubscriptionPayload{
		Merchant: c.signer.Merchant(),
		PlanID:   req.PlanID,
		Checksum: c.signer.RegisterSubscriptionChecksum(req.PlanID),
	}
	if req.CustomerID != "" {
		payload.CustomerID = req.CustomerID
	} else {
		payload.Customer = req.Customer
		payload.CreditCard = req.CreditCard
	}

	resp, err := c.do(ctx, OperationRegisterSubscription, http.MethodPost, PathSubscriptions, payload)
	if err != nil {
		return nil, err
	}

	var sub Subscription
	if err := decodeData(resp, &sub); err != nil {
		return nil, err
	}

	c.logger.Infow("successfully registered subscription in Payvalida",
		"subscription_id", sub.ID,
		"plan_id", req.PlanID)

	return &sub, nil
}

// CancelSubscription cancels a subscription in Payvalida
func (c *client) CancelSubscription(ctx context.Context, subscriptionID string) (*Response, error) {
	if subscriptionID == "" {
		return nil, ierr.NewError("missing required field: id").
			WithHint("Subscription id is required").
			Mark(ierr.ErrValidation)
	}

	payload := cancelSubscriptionPayload{
		Merchant:  c.signer.Merchant(),
		ID:        subscriptionID,
		Checksum:  c.signer.CancelSubscriptionChecksum(subscriptionID),
		Timestamp: c.now().Unix(),
	}

	resp, err := c.do(ctx, OperationCancelSubscription, http.MethodDelete, PathSubscriptions, payload)
	if err != nil {
		return nil, err
	}

	c.logger.Infow("successfully cancelled subscription in Payvalida", "subscription_id", subscriptionID)

	return resp, nil
}

// ListSubscriptions lists the merchant's subscriptions page by page
func (c *client) ListSubscriptions(ctx context.Context, req *ListSubscriptionsRequest) (*SubscriptionList, error) {
	if req == nil {
		req = &ListSubscriptionsRequest{}
	}
	req.applyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := listSubscriptionsPayload{
		Merchant:  c.signer.Merchant(),
		RequestID: req.RequestID,
		Page:      req.Page,
		Sort:      req.Sort,
		Checksum:  c.signer.ListSubscriptionsChecksum(req.RequestID),
	}

	resp, err := c.do(ctx, OperationListSubscriptions, http.MethodPost, PathListSubscriptions, payload)
	if err != nil {
		return nil, err
	}

	var list SubscriptionList
	if err := decodeData(resp, &list); err != nil {
		return nil, err
	}

	c.logger.Debugw("fetched subscriptions from Payvalida",
		"page", req.Page,
		"count", len(list.Subscriptions))

	return &list, nil
}

// GetSubscription fetches one subscription. An empty requestID uses the default.
func (c *client) GetSubscription(ctx context.Context, subscriptionID, requestID string) (*Subscription, error) {
	if subscriptionID == "" {
		return nil, ierr.NewError("missing required field: subscription_id").
			WithHint("Subscription id is required").
			Mark(ierr.ErrValidation)
	}
	if requestID == "" {
		requestID = DefaultRequestID
	}

	payload := getSubscriptionPayload{
		Merchant:       c.signer.Merchant(),
		SubscriptionID: subscriptionID,
		RequestID:      requestID,
		Checksum:       c.signer.GetSubscriptionChecksum(subscriptionID, requestID),
	}

	resp, err := c.do(ctx, OperationGetSubscription, http.MethodPost, PathGetSubscription, payload)
	if err != nil {
		return nil, err
	}

	var sub Subscription
	if err := decodeData(resp, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// do sends a JSON request and returns the decoded envelope. Any outcome other
// than CODE "0000" comes back as a transport or provider error.
func (c *client) do(ctx context.Context, operation, method, path string, payload interface{}) (*Response, error) {
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.RecordProviderRequest(operation, "transport_error", time.Since(start))
			return nil, ierr.WithError(err).
				WithHint("Request cancelled while waiting for the Payvalida rate limit").
				WithReportableDetails(map[string]interface{}{
					"operation": operation,
				}).
				Mark(ierr.ErrTransport)
		}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid Payvalida request data").
			Mark(ierr.ErrInternal)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create HTTP request").
			Mark(ierr.ErrInternal)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	// The retry policy reports 5xx statuses as errors; the response is still
	// returned alongside and carries the provider's envelope.
	resp, err := c.httpClient.Do(httpReq)
	if resp == nil {
		if err == nil {
			err = errors.New("empty response")
		}
		c.metrics.RecordProviderRequest(operation, "transport_error", time.Since(start))
		c.logger.Errorw("failed to reach Payvalida",
			"operation", operation,
			"environment", c.environment,
			"error", err)
		return nil, ierr.WithError(err).
			WithHint("Unable to connect to Payvalida API").
			WithReportableDetails(map[string]interface{}{
				"operation": operation,
			}).
			Mark(ierr.ErrTransport)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordProviderRequest(operation, "transport_error", time.Since(start))
		return nil, ierr.WithError(err).
			WithHint("Failed to read Payvalida response").
			Mark(ierr.ErrTransport)
	}

	var envelope Response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		c.metrics.RecordProviderRequest(operation, "provider_error", time.Since(start))
		c.logger.Errorw("unreadable Payvalida response",
			"operation", operation,
			"status", resp.StatusCode,
			"error", err)
		return nil, ierr.NewError(UnknownErrorDescription).
			WithHint(fmt.Sprintf("HTTP status %d", resp.StatusCode)).
			WithReportableDetails(map[string]interface{}{
				"operation": operation,
				"status":    resp.StatusCode,
			}).
			Mark(ierr.ErrProvider)
	}

	if !envelope.IsSuccess() {
		c.metrics.RecordProviderRequest(operation, "provider_error", time.Since(start))
		desc := envelope.Desc
		if desc == "" {
			desc = UnknownErrorDescription
		}
		c.logger.Errorw("Payvalida API error",
			"operation", operation,
			"status", resp.StatusCode,
			"code", envelope.Code,
			"message", desc)
		return nil, ierr.NewError(desc).
			WithHint("Payvalida rejected the request").
			WithReportableDetails(map[string]interface{}{
				"operation": operation,
				"code":      envelope.Code,
				"status":    resp.StatusCode,
			}).
			Mark(ierr.ErrProvider)
	}

	c.metrics.RecordProviderRequest(operation, "success", time.Since(start))
	return &envelope, nil
}

func decodeData(resp *Response, out interface{}) error {
	if len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to parse Payvalida response data").
			Mark(ierr.ErrProvider)
	}
	return nil
}
