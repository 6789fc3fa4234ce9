package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flexprice/plansync/internal/domain/catalog"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonCatalog = `[
  {"id": "1", "title": "Gold", "type": "simple", "sku": "GOLD", "interval": "month", "interval_count": "1", "amount": "10.00"},
  {"id": "2", "title": "Coffee Club", "type": "variable"},
  {"id": "3", "title": "Coffee Club", "type": "variation", "parent_id": "2",
   "attributes": [{"name": "attribute_size", "value": "large"}],
   "interval": "month", "interval_count": "1", "amount": "25"}
]`

const yamlCatalog = `
- id: "1"
  title: Gold
  type: simple
  interval: month
  interval_count: "1"
  amount: "10.00"
- id: "3"
  title: Coffee Club
  type: variation
  parent_id: "2"
  attributes:
    - name: attribute_size
      value: large
`

const csvCatalog = `id,title,parent_id,sku,type,is_variant,attributes,interval,interval_count,amount
1,Gold,,GOLD,simple,false,,month,1,10.00
3,Coffee Club,2,,variation,true,attribute_size=large;attribute_roast=dark,month,1,25
`

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCatalogGateway_Formats(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		products int
		variants int
	}{
		{"json", "catalog.json", jsonCatalog, 2, 1},
		{"yaml", "catalog.yaml", yamlCatalog, 1, 1},
		{"csv", "catalog.csv", csvCatalog, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gw, err := NewCatalogGateway(writeCatalog(t, tt.file, tt.content), logger.NewNopLogger())
			require.NoError(t, err)

			products, err := gw.ListProducts(ctx)
			require.NoError(t, err)
			assert.Len(t, products, tt.products)
			assert.Equal(t, "1", products[0].ID)

			variants, err := gw.ListVariants(ctx)
			require.NoError(t, err)
			require.Len(t, variants, tt.variants)

			v := variants[0]
			assert.True(t, v.IsVariant)
			assert.Equal(t, "2", v.ParentID)
			assert.Equal(t, "attribute_size", v.Attributes[0].Name)
			assert.Contains(t, v.Description(true), "(size: large")

			item, err := gw.Get(ctx, "3")
			require.NoError(t, err)
			assert.Equal(t, catalog.ItemTypeVariation, item.Type)
		})
	}
}

func TestCatalogGateway_CSVTermsAreVerbatim(t *testing.T) {
	gw, err := NewCatalogGateway(writeCatalog(t, "c.csv", csvCatalog), logger.NewNopLogger())
	require.NoError(t, err)

	products, err := gw.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.00", products[0].Amount)
	assert.Equal(t, "GOLD", products[0].SKU)
}

func TestCatalogGateway_GetMissing(t *testing.T) {
	gw, err := NewCatalogGateway(writeCatalog(t, "c.json", jsonCatalog), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = gw.Get(context.Background(), "99")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestCatalogGateway_Errors(t *testing.T) {
	_, err := NewCatalogGateway("catalog.xml", logger.NewNopLogger())
	assert.True(t, ierr.IsValidation(err))

	gw, err := NewCatalogGateway(filepath.Join(t.TempDir(), "missing.json"), logger.NewNopLogger())
	require.NoError(t, err)
	_, err = gw.ListProducts(context.Background())
	assert.True(t, ierr.IsNotFound(err))

	gw, err = NewCatalogGateway(writeCatalog(t, "bad.json", `{"id": 1`), logger.NewNopLogger())
	require.NoError(t, err)
	_, err = gw.ListProducts(context.Background())
	assert.True(t, ierr.IsValidation(err))

	dup := `[{"id": "1", "title": "a"}, {"id": "1", "title": "b"}]`
	gw, err = NewCatalogGateway(writeCatalog(t, "dup.json", dup), logger.NewNopLogger())
	require.NoError(t, err)
	_, err = gw.ListVariants(context.Background())
	assert.True(t, ierr.IsValidation(err))
}
