package planhistory

import (
	"github.com/flexprice/plansync/internal/domain/catalog"
	"github.com/samber/lo"
)

// UnknownParentTitle names orphan groups whose parent is missing from the catalog
const UnknownParentTitle = "Unknown Product"

// Entry is one catalog item together with its plan history
type Entry struct {
	ItemID      string  `json:"item_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	History     History `json:"history"`
}

// Latest returns the newest record of the entry
func (e *Entry) Latest() *Record {
	return e.History.Latest()
}

// ProductHistory is a product with history and its variants that have history
type ProductHistory struct {
	Entry
	Variants []Entry `json:"variants,omitempty"`
}

// OrphanGroup holds variants with history whose parent has none
type OrphanGroup struct {
	ParentID    string  `json:"parent_id"`
	ParentTitle string  `json:"parent_title"`
	Variants    []Entry `json:"variants"`
}

// Report is the grouped view of all local plan histories
type Report struct {
	Products []ProductHistory `json:"products"`
	Orphans  []OrphanGroup    `json:"orphans"`
}

// IsEmpty reports whether no item has any history
func (r *Report) IsEmpty() bool {
	return len(r.Products) == 0 && len(r.Orphans) == 0
}

// NewEntry builds the report entry of an item
func NewEntry(item *catalog.Item, h History) Entry {
	return Entry{
		ItemID:      item.ID,
		Title:       item.Title,
		Description: item.Description(item.IsVariant),
		SKU:         item.ResolvedSKU(),
		History:     h,
	}
}

// BuildReport groups variant entries under their parent product when the
// parent has history of its own. Variants of parents without history are
// collected into orphan groups keyed by parent id, in first-seen order.
// parents resolves titles of orphan parents; it may be nil.
func BuildReport(products []Entry, variants []Entry, parentOf map[string]string, parents map[string]*catalog.Item) *Report {
	report := &Report{
		Products: make([]ProductHistory, 0, len(products)),
		Orphans:  []OrphanGroup{},
	}

	byParent := lo.GroupBy(variants, func(e Entry) string {
		return parentOf[e.ItemID]
	})

	withHistory := make(map[string]struct{}, len(products))
	for _, p := range products {
		withHistory[p.ItemID] = struct{}{}
		report.Products = append(report.Products, ProductHistory{
			Entry:    p,
			Variants: byParent[p.ItemID],
		})
	}

	seen := make(map[string]struct{})
	for _, v := range variants {
		parentID := parentOf[v.ItemID]
		if _, ok := withHistory[parentID]; ok {
			continue
		}
		if _, ok := seen[parentID]; ok {
			continue
		}
		seen[parentID] = struct{}{}

		title := UnknownParentTitle
		if parent, ok := parents[parentID]; ok && parent != nil {
			title = parent.Title
		}
		report.Orphans = append(report.Orphans, OrphanGroup{
			ParentID:    parentID,
			ParentTitle: title,
			Variants:    byParent[parentID],
		})
	}

	return report
}
