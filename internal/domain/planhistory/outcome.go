package planhistory

import "fmt"

// Status is the result of reconciling one item
type Status string

const (
	StatusSkippedNotSubscription Status = "skipped_not_subscription"
	StatusSkippedVariableParent  Status = "skipped_variable_parent"
	StatusSkippedUnchanged       Status = "skipped_unchanged"
	StatusCreated                Status = "created"
	StatusError                  Status = "error"
	StatusSummary                Status = "summary"
)

// SummaryMessage closes every reconciliation run
const SummaryMessage = "Update/Sync process completed."

// Outcome is the per-item result of a reconciliation run
type Outcome struct {
	Status      Status `json:"status"`
	ItemID      string `json:"item_id,omitempty"`
	Description string `json:"description,omitempty"`
	PlanID      string `json:"plan_id,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message"`
}

func NewNotSubscriptionOutcome(itemID, title string) Outcome {
	return Outcome{
		Status:      StatusSkippedNotSubscription,
		ItemID:      itemID,
		Description: title,
		Message:     fmt.Sprintf("%s (ID %s) is not a subscription product, skipping.", title, itemID),
	}
}

func NewVariableParentOutcome(itemID, title string) Outcome {
	return Outcome{
		Status:      StatusSkippedVariableParent,
		ItemID:      itemID,
		Description: title,
		Message:     fmt.Sprintf("Skipping plan creation for variable parent product \"%s\" (ID %s).", title, itemID),
	}
}

func NewUnchangedOutcome(itemID, description string) Outcome {
	return Outcome{
		Status:      StatusSkippedUnchanged,
		ItemID:      itemID,
		Description: description,
		Message:     fmt.Sprintf("No changes for %s (ID %s), skipping.", description, itemID),
	}
}

func NewCreatedOutcome(itemID, description, planID string) Outcome {
	return Outcome{
		Status:      StatusCreated,
		ItemID:      itemID,
		Description: description,
		PlanID:      planID,
		Message:     fmt.Sprintf("Created new plan for %s (ID %s). Plan ID: %s", description, itemID, planID),
	}
}

func NewErrorOutcome(itemID, description, msg string) Outcome {
	return Outcome{
		Status:      StatusError,
		ItemID:      itemID,
		Description: description,
		Error:       msg,
		Message:     fmt.Sprintf("Error creating plan for %s (ID %s): %s", description, itemID, msg),
	}
}

func NewSummaryOutcome() Outcome {
	return Outcome{
		Status:  StatusSummary,
		Message: SummaryMessage,
	}
}

// ResetMessage is reported after clearing local plan data
func ResetMessage(count int) string {
	return fmt.Sprintf("Reset local data complete. Removed plan meta from %d entries.", count)
}
