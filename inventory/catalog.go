package inventory

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// NewItem is the input of AddCatalogItem.
type NewItem struct {
	SystemName   string
	DisplayName  string
	Category     string
	Serial       string
	InitialStock int
}

// AddCatalogItem appends a unit row with CurrentStock equal to InitialStock.
// A blank system name is derived from the display name so that rows of one
// tool type aggregate together.
func (e *Engine) AddCatalogItem(ctx context.Context, in NewItem) (CatalogItem, error) {
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		return CatalogItem{}, validationf("display name is required")
	}
	if in.InitialStock < 0 {
		return CatalogItem{}, validationf("initial stock must be >= 0, got %d", in.InitialStock)
	}
	category, ok := ParseCategory(in.Category)
	if !ok {
		return CatalogItem{}, validationf("unknown category %q", in.Category)
	}
	system := strings.TrimSpace(in.SystemName)
	if system == "" {
		system = Slug(display)
	}

	item := CatalogItem{
		SystemName:   system,
		DisplayName:  display,
		Category:     category,
		Serial:       strings.TrimSpace(in.Serial),
		InitialStock: in.InitialStock,
		CurrentStock: in.InitialStock,
	}
	err := e.mutate(ctx, "add_catalog_item", []Dataset{DatasetCatalog}, func(ctx context.Context) error {
		item.ID = e.newID(prefixItem)
		item.CreatedAt = e.stamp()
		return storageErr("add item", e.store.AddItem(ctx, item))
	})
	if err != nil {
		return CatalogItem{}, err
	}
	return item, nil
}

// Slug turns a display name into a system name: lower case, runs of
// non-alphanumerics collapsed to "-".
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Catalog lists every unit row sorted by display name. Rows sharing a display
// name keep their storage order.
func (e *Engine) Catalog(ctx context.Context) ([]CatalogItem, error) {
	return cached(e, DatasetCatalog, func() ([]CatalogItem, error) {
		items, err := e.store.ListItems(ctx)
		if err != nil {
			return nil, storageErr("list items", err)
		}
		if items == nil {
			items = []CatalogItem{}
		}
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].DisplayName) < strings.ToLower(items[j].DisplayName)
		})
		return items, nil
	})
}

// CatalogGroup aggregates the units that share a display name.
type CatalogGroup struct {
	DisplayName  string        `json:"display_name"`
	SystemName   string        `json:"system_name"`
	Category     Category      `json:"category"`
	InitialStock int           `json:"initial_stock"`
	Available    int           `json:"available"`
	Units        []CatalogItem `json:"units"`
}

// CatalogGrouped folds the catalog by display name.
func (e *Engine) CatalogGrouped(ctx context.Context) ([]CatalogGroup, error) {
	items, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	groups := []CatalogGroup{}
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.DisplayName]
		if !ok {
			i = len(groups)
			index[it.DisplayName] = i
			groups = append(groups, CatalogGroup{
				DisplayName: it.DisplayName,
				SystemName:  it.SystemName,
				Category:    it.Category,
			})
		}
		g := &groups[i]
		g.InitialStock += it.InitialStock
		g.Available += it.CurrentStock
		g.Units = append(g.Units, it)
	}
	return groups, nil
}

// AvailableUnits lists the in-stock rows of one tool type in storage order.
// It reads the store directly so that the order matches resolution.
func (e *Engine) AvailableUnits(ctx context.Context, displayName string) ([]CatalogItem, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	return AvailableUnits(items, displayName), nil
}
