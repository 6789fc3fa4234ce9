package catalog

import (
	"fmt"
	"strings"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/samber/lo"
)

// ItemType is the catalog product type of an item
type ItemType string

const (
	ItemTypeSimple    ItemType = "simple"
	ItemTypeVariable  ItemType = "variable"
	ItemTypeVariation ItemType = "variation"
)

// attributePrefix is carried by variant attribute names in catalog exports
const attributePrefix = "attribute_"

// syntheticSKUPrefix builds the SKU of items that have none
const syntheticSKUPrefix = "post_id_"

// Attribute is one variant option, e.g. size: large
type Attribute struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Attributes is an ordered list of variant options
type Attributes []Attribute

// MarshalCSV encodes attributes as "name=value;name=value"
func (a Attributes) MarshalCSV() (string, error) {
	parts := lo.Map(a, func(attr Attribute, _ int) string {
		return attr.Name + "=" + attr.Value
	})
	return strings.Join(parts, ";"), nil
}

// UnmarshalCSV decodes the format written by MarshalCSV
func (a *Attributes) UnmarshalCSV(value string) error {
	*a = nil
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, part := range strings.Split(value, ";") {
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return ierr.NewErrorf("invalid attribute %q", part).
				WithHint("Attributes must be written as name=value pairs separated by ';'").
				Mark(ierr.ErrValidation)
		}
		*a = append(*a, Attribute{Name: strings.TrimSpace(name), Value: strings.TrimSpace(val)})
	}
	return nil
}

// Item is a billable catalog entry: a standalone product, a variable parent
// or one of its variants. Subscription terms are compared verbatim, so they
// are kept as the strings the catalog holds.
type Item struct {
	ID            string     `json:"id" yaml:"id" csv:"id"`
	Title         string     `json:"title" yaml:"title" csv:"title"`
	ParentID      string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty" csv:"parent_id"`
	SKU           string     `json:"sku,omitempty" yaml:"sku,omitempty" csv:"sku"`
	Type          ItemType   `json:"type" yaml:"type" csv:"type"`
	IsVariant     bool       `json:"is_variant" yaml:"is_variant" csv:"is_variant"`
	Attributes    Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty" csv:"attributes"`
	Interval      string     `json:"interval,omitempty" yaml:"interval,omitempty" csv:"interval"`
	IntervalCount string     `json:"interval_count,omitempty" yaml:"interval_count,omitempty" csv:"interval_count"`
	Amount        string     `json:"amount,omitempty" yaml:"amount,omitempty" csv:"amount"`
}

// Terms are the billing terms a plan is created from
type Terms struct {
	Interval      string
	IntervalCount string
	Amount        string
}

// IsVariableParent reports whether the item is a multi-variant parent
func (i *Item) IsVariableParent() bool {
	return i.Type == ItemTypeVariable
}

// Terms returns the item's billing terms and whether all three are present
func (i *Item) Terms() (Terms, bool) {
	t := Terms{
		Interval:      i.Interval,
		IntervalCount: i.IntervalCount,
		Amount:        i.Amount,
	}
	ok := !blank(t.Interval) && !blank(t.IntervalCount) && !blank(t.Amount)
	return t, ok
}

// blank treats "0" like a missing value, as catalog exports write it for unset meta
func blank(v string) bool {
	return v == "" || v == "0"
}

// AsVariants returns copies of items flagged as variants, leaving the
// gateway's items untouched
func AsVariants(items []*Item) []*Item {
	return lo.Map(items, func(item *Item, _ int) *Item {
		v := *item
		v.IsVariant = true
		return &v
	})
}

// IsSubscription reports whether the item carries complete billing terms
func (i *Item) IsSubscription() bool {
	_, ok := i.Terms()
	return ok
}

// ResolvedSKU returns the SKU, or post_id_<id> when the item has none
func (i *Item) ResolvedSKU() string {
	if i.SKU != "" {
		return i.SKU
	}
	return syntheticSKUPrefix + i.ID
}

// Description is the title, followed for variants by "(name: value, ...)"
func (i *Item) Description(isVariant bool) string {
	if !isVariant || len(i.Attributes) == 0 {
		return i.Title
	}
	pairs := lo.Map(i.Attributes, func(attr Attribute, _ int) string {
		return fmt.Sprintf("%s: %s", strings.TrimPrefix(attr.Name, attributePrefix), attr.Value)
	})
	return fmt.Sprintf("%s (%s)", i.Title, strings.Join(pairs, ", "))
}

// Validate checks the fields every catalog item must carry
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ierr.NewError("catalog item id is required").
			WithHint("Every catalog item needs an id").
			WithReportableDetails(map[string]interface{}{
				"title": i.Title,
			}).
			Mark(ierr.ErrValidation)
	}
	switch i.Type {
	case "", ItemTypeSimple, ItemTypeVariable, ItemTypeVariation:
	default:
		return ierr.NewErrorf("invalid item type: %s", i.Type).
			WithHint("Item type must be one of: simple, variable, variation").
			WithReportableDetails(map[string]interface{}{
				"item_id": i.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
