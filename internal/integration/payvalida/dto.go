package payvalida

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/validator"
	"github.com/shopspring/decimal"
)

// Constants for Payvalida integration
const (
	// SuccessCode is the CODE value of every successful Payvalida response
	SuccessCode = "0000"

	// UnknownErrorDescription is used when a failed response carries no DESC
	UnknownErrorDescription = "Unknown error"

	PathCreatePlan        = "/v4/subscriptions/plans"
	PathSubscriptions     = "/v4/subscriptions"
	PathListSubscriptions = "/subscriptions/merchants/api/list/subscriptions"
	PathGetSubscription   = "/subscriptions/merchants/api/get/subscription"

	DefaultRequestID         = "10"
	DefaultSort              = "DESC"
	DefaultPage              = 1
	DefaultCreditCardRetries = 1
)

// Operation names used for logging and metrics
const (
	OperationCreatePlan           = "create_plan"
	OperationRegisterSubscription = "register_subscription"
	OperationCancelSubscription   = "cancel_subscription"
	OperationListSubscriptions    = "list_subscriptions"
	OperationGetSubscription      = "get_subscription"
)

// Response is the envelope shared by every Payvalida endpoint
type Response struct {
	Code string          `json:"CODE"`
	Desc string          `json:"DESC,omitempty"`
	Data json.RawMessage `json:"DATA,omitempty"`
}

// IsSuccess reports whether the provider accepted the request
func (r *Response) IsSuccess() bool {
	return r != nil && r.Code == SuccessCode
}

// FlexString decodes a JSON string or number into a string.
// Payvalida is not consistent about quoting identifiers and counters.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Int parses the value as an integer, returning fallback when it is not one
func (f FlexString) Int(fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return fallback
	}
	return n
}

// ============================================================================
// Plans
// ============================================================================

// CreatePlanRequest holds the billing terms of a plan. Values are sent verbatim.
type CreatePlanRequest struct {
	Interval      string `json:"interval" validate:"required"`
	IntervalCount string `json:"interval_count" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Description   string `json:"description"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return ierr.NewError("invalid amount format").
			WithHint("Amount must be a valid decimal number").
			WithReportableDetails(map[string]interface{}{
				"amount": r.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("amount must be positive").
			WithHint("Plan amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{
				"amount": r.Amount,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

type createPlanPayload struct {
	Merchant      string `json:"merchant"`
	Interval      string `json:"interval"`
	Timestamp     int64  `json:"timestamp"`
	IntervalCount string `json:"interval_count"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	Checksum      string `json:"checksum"`
}

type planData struct {
	ID FlexString `json:"id"`
}

// ============================================================================
// Subscriptions
// ============================================================================

// Customer is the subscriber's identity, required when no customer_id is given
type Customer struct {
	Email     string `json:"email" validate:"required"`
	UserDI    string `json:"user_di" validate:"required"`
	TypeDI    string `json:"type_di" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Cellphone string `json:"cellphone" validate:"required"`
}

// CreditCardData is the card to charge, required when no customer_id is given
type CreditCardData struct {
	CardNumber      string `json:"card_number" validate:"required"`
	CVV             string `json:"cvv" validate:"required"`
	ExpirationDate  string `json:"expiration_date" validate:"required"`
	Retries         int    `json:"retries"`
	Franchise       string `json:"franchise" validate:"required"`
	IDType          string `json:"id_type" validate:"required"`
	ID              string `json:"id" validate:"required"`
	HolderName      string `json:"holder_name" validate:"required"`
	HolderLastName  string `json:"holder_last_name" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	IP              string `json:"ip" validate:"required"`
	HeaderUserAgent string `json:"header_user_agent" validate:"required"`
	Line1           string `json:"line1" validate:"required"`
	Line2           string `json:"line2" validate:"required"`
	Line3           string `json:"line3" validate:"required"`
	Country         string `json:"country" validate:"required"`
	City            string `json:"city" validate:"required"`
	State           string `json:"state" validate:"required"`
	PostCode        string `json:"post_code" validate:"required"`
}

// RegisterSubscriptionRequest binds a customer to a plan. Either CustomerID is
// set, or both Customer and CreditCard are fully populated.
type RegisterSubscriptionRequest struct {
	PlanID     string          `json:"plan_id" validate:"required"`
	CustomerID string          `json:"customer_id,omitempty"`
	Customer   *Customer       `json:"customer,omitempty" validate:"-"`
	CreditCard *CreditCardData `json:"credit_card_data,omitempty" validate:"-"`
}

func (r *RegisterSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.CustomerID != "" {
		return nil
	}

	if r.Customer == nil {
		return missingField("customer")
	}
	if err := validator.ValidateRequest(r.Customer); err != nil {
		return err
	}

	if r.CreditCard == nil {
		return missingField("credit_card_data")
	}
	if r.CreditCard.Retries == 0 {
		r.CreditCard.Retries = DefaultCreditCardRetries
	}
	return validator.ValidateRequest(r.CreditCard)
}

func missingField(field string) error {
	return ierr.NewError("missing required field: " + field).
		WithHint("Provide customer_id or a complete customer and credit_card_data").
		WithReportableDetails(map[string]interface{}{
			"field": field,
		}).
		Mark(ierr.ErrValidation)
}

type registerSubscriptionPayload struct {
	Merchant   string          `json:"merchant"`
	PlanID     string          `json:"plan_id"`
	Checksum   string          `json:"checksum"`
	CustomerID string          `json:"customer_id,omitempty"`
	Customer   *Customer       `json:"customer,omitempty"`
	CreditCard *CreditCardData `json:"credit_card_data,omitempty"`
}

type cancelSubscriptionPayload struct {
	Merchant  string `json:"merchant"`
	ID        string `json:"id"`
	Checksum  string `json:"checksum"`
	Timestamp int64  `json:"timestamp"`
}

// ListSubscriptionsRequest pages through the merchant's subscriptions.
// Zero values fall back to page 1, DESC and request id "10".
type ListSubscriptionsRequest struct {
	Page      int    `json:"page" validate:"min=0"`
	Sort      string `json:"sort" validate:"omitempty,oneof=ASC DESC"`
	RequestID string `json:"request_id"`
}

func (r *ListSubscriptionsRequest) applyDefaults() {
	if r.Page <= 0 {
		r.Page = DefaultPage
	}
	if r.Sort == "" {
		r.Sort = DefaultSort
	}
	if r.RequestID == "" {
		r.RequestID = DefaultRequestID
	}
}

func (r *ListSubscriptionsRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type listSubscriptionsPayload struct {
	Merchant  string `json:"merchant"`
	RequestID string `json:"request_id"`
	Page      int    `json:"page"`
	Sort      string `json:"sort"`
	Checksum  string `json:"checksum"`
}

type getSubscriptionPayload struct {
	Merchant       string `json:"merchant"`
	SubscriptionID string `json:"subscription_id"`
	RequestID      string `json:"request_id"`
	Checksum       string `json:"checksum"`
}

// SubscriptionCustomer is the customer block returned inside a subscription
type SubscriptionCustomer struct {
	ID        FlexString `json:"id,omitempty"`
	Email     string     `json:"email,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
}

// FullName joins first and last name
func (c *SubscriptionCustomer) FullName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Subscription is a remote subscription as returned by Payvalida
type Subscription struct {
	ID        FlexString            `json:"id"`
	PlanID    FlexString            `json:"plan_id"`
	Status    string                `json:"status"`
	StartDate string                `json:"start_date"`
	Customer  *SubscriptionCustomer `json:"customer,omitempty"`
}

// Pagination describes a page of ListSubscriptions
type Pagination struct {
	PageNum    FlexString `json:"page_num"`
	TotalPages FlexString `json:"total_pages"`
	Total      FlexString `json:"total,omitempty"`
}

// SubscriptionList is the DATA of a ListSubscriptions response
type SubscriptionList struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Pagination    Pagination     `json:"pagination"`
}

// ============================================================================
// Helpers
// ============================================================================

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	octetPattern   = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
)

// SanitizeDescription strips markup, control characters and percent-encoded
// octets, then collapses whitespace
func SanitizeDescription(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = controlPattern.ReplaceAllString(s, " ")
	s = octetPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
