package planhistory

import (
	"testing"

	"github.com/flexprice/plansync/internal/domain/catalog"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(itemID, planID string) Record {
	return Record{
		PlanID:        planID,
		Interval:      "month",
		IntervalCount: "1",
		Amount:        "10.00",
		SKU:           "SKU-" + itemID,
		ItemID:        itemID,
	}
}

func TestHistoryAppendIsDense(t *testing.T) {
	var h History
	assert.Nil(t, h.Latest())
	assert.Equal(t, "v1", h.NextVersion())

	for i := 0; i < 5; i++ {
		h = h.Append(record("7", "pl"))
	}

	require.Len(t, h, 5)
	for i, r := range h {
		assert.Equal(t, VersionLabel(i+1), r.Version)
		assert.Equal(t, i+1, r.VersionNumber())
	}
	assert.Equal(t, "v5", h.Latest().Version)
	assert.NoError(t, h.Validate("7"))
}

func TestHistoryAppendDoesNotMutateReceiver(t *testing.T) {
	base := History{}.Append(record("1", "a"))

	grown := base.Append(record("1", "b"))
	other := base.Append(record("1", "c"))

	assert.Equal(t, "b", grown[1].PlanID)
	assert.Equal(t, "c", other[1].PlanID)
	assert.Len(t, base, 1)
}

func TestHistoryValidate(t *testing.T) {
	h := History{}.Append(record("1", "a")).Append(record("1", "b"))

	gap := History{h[0], h[1]}
	gap[1].Version = "v3"
	err := gap.Validate("1")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	assert.Error(t, h.Validate("2"))
}

func TestCheckAppend(t *testing.T) {
	stored := History{}.Append(record("1", "a"))
	next := stored.Append(record("1", "b"))

	assert.NoError(t, CheckAppend("1", stored, next))
	assert.NoError(t, CheckAppend("1", nil, stored))
	assert.NoError(t, CheckAppend("1", stored, stored))

	err := CheckAppend("1", next, stored)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))

	rewritten := History{}.Append(record("1", "z")).Append(record("1", "b"))
	assert.True(t, ierr.IsInvalidOperation(CheckAppend("1", next, rewritten)))
}

func TestRecordMatches(t *testing.T) {
	r := record("1", "a")
	assert.True(t, r.Matches("month", "1", "10.00", "SKU-1"))
	assert.False(t, r.Matches("month", "1", "10", "SKU-1"))
	assert.False(t, r.Matches("month", "1", "10.00", "SKU-2"))
}

func TestVersionNumberMalformed(t *testing.T) {
	assert.Equal(t, 0, (&Record{Version: "3"}).VersionNumber())
	assert.Equal(t, 0, (&Record{Version: "vx"}).VersionNumber())
}

func TestOutcomeMessages(t *testing.T) {
	assert.Equal(t, `Skipping plan creation for variable parent product "Box" (ID 3).`,
		NewVariableParentOutcome("3", "Box").Message)
	assert.Equal(t, "No changes for Box (ID 3), skipping.", NewUnchangedOutcome("3", "Box").Message)
	assert.Equal(t, "Error creating plan for Box (ID 3): bad merchant",
		NewErrorOutcome("3", "Box", "bad merchant").Message)
	assert.Equal(t, "Created new plan for Box (ID 3). Plan ID: pl_1",
		NewCreatedOutcome("3", "Box", "pl_1").Message)
	assert.Equal(t, "Box (ID 3) is not a subscription product, skipping.",
		NewNotSubscriptionOutcome("3", "Box").Message)
	assert.Equal(t, SummaryMessage, NewSummaryOutcome().Message)
	assert.Equal(t, "Reset local data complete. Removed plan meta from 4 entries.", ResetMessage(4))
}

func TestBuildReportOrphans(t *testing.T) {
	parent := &catalog.Item{ID: "10", Title: "Coffee Club", Type: catalog.ItemTypeVariable}
	lonelyParent := &catalog.Item{ID: "20", Title: "Tea Club", Type: catalog.ItemTypeVariable}

	h := History{}.Append(record("x", "p"))
	products := []Entry{{ItemID: "10", Title: "Coffee Club", History: h}}
	variants := []Entry{
		{ItemID: "11", History: h},
		{ItemID: "21", History: h},
		{ItemID: "22", History: h},
		{ItemID: "31", History: h},
	}
	parentOf := map[string]string{"11": "10", "21": "20", "22": "20", "31": "30"}
	parents := map[string]*catalog.Item{"10": parent, "20": lonelyParent}

	report := BuildReport(products, variants, parentOf, parents)

	require.Len(t, report.Products, 1)
	require.Len(t, report.Products[0].Variants, 1)
	assert.Equal(t, "11", report.Products[0].Variants[0].ItemID)

	require.Len(t, report.Orphans, 2)
	assert.Equal(t, "20", report.Orphans[0].ParentID)
	assert.Equal(t, "Tea Club", report.Orphans[0].ParentTitle)
	assert.Len(t, report.Orphans[0].Variants, 2)
	assert.Equal(t, "30", report.Orphans[1].ParentID)
	assert.Equal(t, UnknownParentTitle, report.Orphans[1].ParentTitle)

	for _, group := range report.Orphans {
		for _, v := range group.Variants {
			assert.NotEqual(t, "11", v.ItemID)
		}
	}
	assert.False(t, report.IsEmpty())
}
