package dto

import (
	"time"

	"github.com/flexprice/plansync/internal/domain/planhistory"
	"github.com/samber/lo"
)

// SyncResult is the outcome list of one reconciliation run, ending with the
// summary entry
type SyncResult struct {
	RunID       string                `json:"run_id"`
	Environment string                `json:"environment"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	Outcomes    []planhistory.Outcome `json:"outcomes"`
}

// Count returns how many outcomes have the given status
func (r *SyncResult) Count(status planhistory.Status) int {
	return lo.CountBy(r.Outcomes, func(o planhistory.Outcome) bool {
		return o.Status == status
	})
}

// Counts returns the number of outcomes per status, summary excluded
func (r *SyncResult) Counts() map[planhistory.Status]int {
	counts := lo.CountValuesBy(r.Outcomes, func(o planhistory.Outcome) planhistory.Status {
		return o.Status
	})
	delete(counts, planhistory.StatusSummary)
	return counts
}

// Messages returns the human-readable line of every outcome, in order
func (r *SyncResult) Messages() []string {
	return lo.Map(r.Outcomes, func(o planhistory.Outcome, _ int) string {
		return o.Message
	})
}

// ItemOutcomes returns the outcomes without the trailing summary
func (r *SyncResult) ItemOutcomes() []planhistory.Outcome {
	return lo.Filter(r.Outcomes, func(o planhistory.Outcome, _ int) bool {
		return o.Status != planhistory.StatusSummary
	})
}
