package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/flexprice/plansync/internal/domain/catalog"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a catalog export
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", ierr.NewErrorf("unsupported catalog file: %s", path).
			WithHint("Catalog files must end in .json, .yaml, .yml or .csv").
			Mark(ierr.ErrValidation)
	}
}

// source returns the raw bytes of a catalog export
type source interface {
	Read(ctx context.Context) ([]byte, error)
	String() string
}

type localSource struct {
	path string
}

func (s localSource) Read(_ context.Context) ([]byte, error) {
	return os.ReadFile(s.path)
}

func (s localSource) String() string { return s.path }

type catalogGateway struct {
	src    source
	format Format
	log    *logger.Logger
}

// NewCatalogGateway reads items from a local catalog export. The file is
// re-read on every call so each run sees the current catalog.
func NewCatalogGateway(path string, log *logger.Logger) (catalog.Gateway, error) {
	return newCatalogGateway(localSource{path: path}, path, log)
}

func newCatalogGateway(src source, name string, log *logger.Logger) (catalog.Gateway, error) {
	format, err := FormatFromPath(name)
	if err != nil {
		return nil, err
	}
	return &catalogGateway{
		src:    src,
		format: format,
		log:    log,
	}, nil
}

func (g *catalogGateway) ListProducts(ctx context.Context) ([]*catalog.Item, error) {
	items, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(items, func(item *catalog.Item, _ int) bool { return !item.IsVariant }), nil
}

func (g *catalogGateway) ListVariants(ctx context.Context) ([]*catalog.Item, error) {
	items, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(items, func(item *catalog.Item, _ int) bool { return item.IsVariant }), nil
}

func (g *catalogGateway) Get(ctx context.Context, id string) (*catalog.Item, error) {
	items, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	item, ok := lo.Find(items, func(item *catalog.Item) bool { return item.ID == id })
	if !ok {
		return nil, ierr.NewError("catalog item not found").
			WithHint("Catalog item not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (g *catalogGateway) load(ctx context.Context) ([]*catalog.Item, error) {
	data, err := g.src.Read(ctx)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read catalog file").
			WithReportableDetails(map[string]interface{}{
				"path": g.src.String(),
			}).
			Mark(ierr.ErrNotFound)
	}

	items, err := Decode(g.format, data)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse catalog file").
			WithReportableDetails(map[string]interface{}{
				"path":   g.src.String(),
				"format": g.format,
			}).
			Mark(ierr.ErrValidation)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[item.ID]; dup {
			return nil, ierr.NewErrorf("duplicate catalog item id %s", item.ID).
				WithHint("Catalog item ids must be unique").
				WithReportableDetails(map[string]interface{}{
					"path": g.src.String(),
					"id":   item.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		seen[item.ID] = struct{}{}
		if item.Type == catalog.ItemTypeVariation {
			item.IsVariant = true
		}
	}

	g.log.Debugw("loaded catalog", "path", g.src.String(), "items", len(items))
	return items, nil
}

// Decode parses a catalog export. JSON and YAML hold a list of items; CSV
// has one item per row with attributes written as name=value;name=value.
func Decode(format Format, data []byte) ([]*catalog.Item, error) {
	var items []*catalog.Item
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, err
		}
	case FormatCSV:
		if err := gocsv.UnmarshalBytes(data, &items); err != nil {
			return nil, err
		}
	default:
		return nil, ierr.NewErrorf("unsupported catalog format: %s", format).Mark(ierr.ErrValidation)
	}
	return lo.Compact(items), nil
}
