package catalog

import (
	"testing"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemTerms(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"complete", Item{Interval: "month", IntervalCount: "1", Amount: "10"}, true},
		{"missing interval", Item{IntervalCount: "1", Amount: "10"}, false},
		{"missing count", Item{Interval: "month", Amount: "10"}, false},
		{"empty amount", Item{Interval: "month", IntervalCount: "1", Amount: ""}, false},
		{"zero count", Item{Interval: "month", IntervalCount: "0", Amount: "10"}, false},
		{"zero amount", Item{Interval: "month", IntervalCount: "1", Amount: "0"}, false},
		{"zero interval", Item{Interval: "0", IntervalCount: "1", Amount: "10"}, false},
		{"decimal zero amount is still terms", Item{Interval: "month", IntervalCount: "1", Amount: "0.00"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.IsSubscription())
		})
	}
}

func TestAsVariantsCopies(t *testing.T) {
	item := &Item{ID: "11", Title: "Coffee Club"}

	variants := AsVariants([]*Item{item})

	require.Len(t, variants, 1)
	assert.True(t, variants[0].IsVariant)
	assert.Equal(t, "11", variants[0].ID)
	assert.False(t, item.IsVariant)
}

func TestItemResolvedSKU(t *testing.T) {
	assert.Equal(t, "GOLD-1", (&Item{ID: "7", SKU: "GOLD-1"}).ResolvedSKU())
	assert.Equal(t, "post_id_7", (&Item{ID: "7"}).ResolvedSKU())
}

func TestItemDescription(t *testing.T) {
	item := &Item{
		ID:    "12",
		Title: "Coffee Club",
		Attributes: Attributes{
			{Name: "attribute_pa_size", Value: "large"},
			{Name: "roast", Value: "dark"},
		},
	}

	assert.Equal(t, "Coffee Club", item.Description(false))
	assert.Equal(t, "Coffee Club (pa_size: large, roast: dark)", item.Description(true))
	assert.Equal(t, "Plain", (&Item{Title: "Plain"}).Description(true))
}

func TestAttributesCSV(t *testing.T) {
	var attrs Attributes
	require.NoError(t, attrs.UnmarshalCSV("attribute_size=large; color = red"))
	assert.Equal(t, Attributes{{Name: "attribute_size", Value: "large"}, {Name: "color", Value: "red"}}, attrs)

	out, err := attrs.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "attribute_size=large;color=red", out)

	err = attrs.UnmarshalCSV("broken")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestItemValidate(t *testing.T) {
	assert.NoError(t, (&Item{ID: "1", Type: ItemTypeSimple}).Validate())
	assert.True(t, ierr.IsValidation((&Item{Type: ItemTypeSimple}).Validate()))
	assert.True(t, ierr.IsValidation((&Item{ID: "1", Type: "grouped"}).Validate()))
}
