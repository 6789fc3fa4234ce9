package catalog

import "context"

// Gateway supplies the billable items of the store catalog
type Gateway interface {
	// ListProducts returns standalone and parent items in catalog order
	ListProducts(ctx context.Context) ([]*Item, error)

	// ListVariants returns variant items in catalog order
	ListVariants(ctx context.Context) ([]*Item, error)

	// Get returns one item by id from either list
	Get(ctx context.Context, id string) (*Item, error)
}
