package planhistory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/types"
)

const versionPrefix = "v"

// Record is one immutable plan version created for an item
type Record struct {
	Version       string            `json:"version"`
	PlanID        string            `json:"plan_id"`
	Interval      string            `json:"interval"`
	IntervalCount string            `json:"interval_count"`
	Amount        string            `json:"amount"`
	Description   string            `json:"description"`
	Environment   types.Environment `json:"environment"`
	CreatedAt     time.Time         `json:"created_at"`
	SKU           string            `json:"sku"`
	ItemID        string            `json:"item_id"`
}

// VersionNumber returns the numeric part of the version label, 0 if malformed
func (r *Record) VersionNumber() int {
	n, err := strconv.Atoi(strings.TrimPrefix(r.Version, versionPrefix))
	if err != nil || !strings.HasPrefix(r.Version, versionPrefix) {
		return 0
	}
	return n
}

// Matches reports whether the record was created from exactly these terms and sku
func (r *Record) Matches(interval, intervalCount, amount, sku string) bool {
	return r.Interval == interval &&
		r.IntervalCount == intervalCount &&
		r.Amount == amount &&
		r.SKU == sku
}

// VersionLabel returns the label of the n-th version, e.g. v3
func VersionLabel(n int) string {
	return fmt.Sprintf("%s%d", versionPrefix, n)
}

// History is the ordered plan versions of one item, oldest first
type History []Record

// Latest returns the newest record, nil when the item never had a plan
func (h History) Latest() *Record {
	if len(h) == 0 {
		return nil
	}
	return &h[len(h)-1]
}

// NextVersion returns the label the next appended record gets
func (h History) NextVersion() string {
	return VersionLabel(len(h) + 1)
}

// Append returns a new history with r added as the next version.
// The receiver is left untouched.
func (h History) Append(r Record) History {
	r.Version = h.NextVersion()
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, r)
}

// Validate checks that versions are v1..vN in order and every record
// belongs to itemID
func (h History) Validate(itemID string) error {
	for i := range h {
		if want := VersionLabel(i + 1); h[i].Version != want {
			return ierr.NewErrorf("plan history version %q at position %d, expected %q", h[i].Version, i+1, want).
				WithHint("Plan history versions must be sequential starting at v1").
				WithReportableDetails(map[string]interface{}{
					"item_id":  itemID,
					"position": i + 1,
					"version":  h[i].Version,
				}).
				Mark(ierr.ErrValidation)
		}
		if h[i].ItemID != itemID {
			return ierr.NewErrorf("plan history record %s belongs to item %q", h[i].Version, h[i].ItemID).
				WithHint("Every record must belong to the item it is stored under").
				WithReportableDetails(map[string]interface{}{
					"item_id":        itemID,
					"record_item_id": h[i].ItemID,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// IsAppendOf reports whether h keeps every record of stored, in place,
// possibly followed by new ones
func (h History) IsAppendOf(stored History) bool {
	if len(h) < len(stored) {
		return false
	}
	for i := range stored {
		if h[i].Version != stored[i].Version || h[i].PlanID != stored[i].PlanID {
			return false
		}
	}
	return true
}

// CheckAppend validates next against the stored history of itemID. Stores
// call it inside the same transaction that writes next.
func CheckAppend(itemID string, stored, next History) error {
	if err := next.Validate(itemID); err != nil {
		return err
	}
	if !next.IsAppendOf(stored) {
		return ierr.NewError("plan history is append-only").
			WithHint("The written history must extend the stored history without changing it").
			WithReportableDetails(map[string]interface{}{
				"item_id":        itemID,
				"stored_version": len(stored),
				"new_version":    len(next),
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}
