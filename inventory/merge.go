package inventory

import (
	"context"
	"strings"
)

// MergeDuplicates collapses catalog rows that describe the same unit: same
// system name and same extracted serial, compared case-insensitively. The
// first row in storage order survives with the stocks of the others added to
// it. It returns the number of rows removed.
func (e *Engine) MergeDuplicates(ctx context.Context) (int, error) {
	merged := 0
	err := e.mutate(ctx, "merge_duplicates", []Dataset{DatasetCatalog}, func(ctx context.Context) error {
		items, err := e.store.ListItems(ctx)
		if err != nil {
			return storageErr("list items", err)
		}

		survivors := make(map[string]int)
		changed := make(map[int]bool)
		var dupes []string
		for i, it := range items {
			key := mergeKey(it)
			first, ok := survivors[key]
			if !ok {
				survivors[key] = i
				continue
			}
			s := &items[first]
			s.InitialStock += it.InitialStock
			s.CurrentStock += it.CurrentStock
			changed[first] = true
			dupes = append(dupes, it.ID)
		}

		for i := range items {
			if !changed[i] {
				continue
			}
			if err := e.store.UpdateItem(ctx, items[i]); err != nil {
				return storageErr("update item", err)
			}
		}
		for _, id := range dupes {
			if err := e.store.DeleteItem(ctx, id); err != nil {
				return storageErr("delete item", err)
			}
			merged++
		}
		if merged > 0 {
			e.log.Info("catalog duplicates merged", "rows_removed", merged)
		}
		return nil
	})
	return merged, err
}

func mergeKey(it CatalogItem) string {
	system := strings.ToLower(strings.TrimSpace(it.SystemName))
	if system == "" {
		system = strings.ToLower(strings.TrimSpace(it.DisplayName))
	}
	return system + "|" + strings.ToLower(it.EffectiveSerial())
}
