package dto

import (
	"github.com/flexprice/plansync/internal/integration/payvalida"
)

// UnknownItemTitle is shown for subscriptions whose plan no local item holds
const UnknownItemTitle = "Unknown"

// SubscriptionResponse is a remote subscription with the title of the local
// item whose latest plan it uses
type SubscriptionResponse struct {
	payvalida.Subscription
	ItemTitle string `json:"item_title"`
}

// ListSubscriptionsResponse is one page of subscriptions
type ListSubscriptionsResponse struct {
	Items      []*SubscriptionResponse `json:"items"`
	Pagination payvalida.Pagination    `json:"pagination"`
}
