package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/plansync/internal/domain/catalog"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCatalog implements catalog.Gateway
type InMemoryCatalog struct {
	mu       sync.RWMutex
	products []*catalog.Item
	variants []*catalog.Item
	err      error
}

func NewInMemoryCatalog() *InMemoryCatalog {
	return &InMemoryCatalog{}
}

func copyItem(item *catalog.Item) *catalog.Item {
	c := *item
	c.Attributes = append(catalog.Attributes(nil), item.Attributes...)
	return &c
}

// AddProduct appends a standalone or parent item
func (c *InMemoryCatalog) AddProduct(item *catalog.Item) *InMemoryCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = append(c.products, copyItem(item))
	return c
}

// AddVariant appends a variant item
func (c *InMemoryCatalog) AddVariant(item *catalog.Item) *InMemoryCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := copyItem(item)
	v.IsVariant = true
	c.variants = append(c.variants, v)
	return c
}

// Update replaces the item with the same id
func (c *InMemoryCatalog) Update(item *catalog.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, list := range [][]*catalog.Item{c.products, c.variants} {
		for i := range list {
			if list[i].ID == item.ID {
				isVariant := list[i].IsVariant
				list[i] = copyItem(item)
				list[i].IsVariant = isVariant
			}
		}
	}
}

// FailWith makes every list call return err
func (c *InMemoryCatalog) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *InMemoryCatalog) ListProducts(_ context.Context) ([]*catalog.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	return lo.Map(c.products, func(item *catalog.Item, _ int) *catalog.Item { return copyItem(item) }), nil
}

func (c *InMemoryCatalog) ListVariants(_ context.Context) ([]*catalog.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	return lo.Map(c.variants, func(item *catalog.Item, _ int) *catalog.Item { return copyItem(item) }), nil
}

func (c *InMemoryCatalog) Get(_ context.Context, id string) (*catalog.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := append(append([]*catalog.Item{}, c.products...), c.variants...)
	item, ok := lo.Find(all, func(item *catalog.Item) bool { return item.ID == id })
	if !ok {
		return nil, ierr.NewError("catalog item not found").
			WithHint("Catalog item not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyItem(item), nil
}
