package inventory

import (
	"context"
	"strings"
	"time"
)

// LegacyRow is one loan from the old ten-column loan sheet.
type LegacyRow struct {
	OperationID string
	SystemName  string
	DisplayName string
	Description string // free text, may carry the serial
	HolderID    string
	HolderName  string
	Phone       string
	IssuedAt    time.Time
	ReturnedAt  *time.Time
	Quantity    int
}

// ImportLegacy replays legacy loans into the ledger. Rows whose operation id
// already exists, or which have neither an id nor a system name, are
// skipped. Stock is left untouched: the legacy catalog counts already account
// for these loans.
//
// Status is returned when a return date is present, consumed for catalog
// consumables, issued otherwise.
func (e *Engine) ImportLegacy(ctx context.Context, rows []LegacyRow) (imported, skipped int, err error) {
	err = e.mutate(ctx, "import_legacy", nil, func(ctx context.Context) error {
		items, err := e.store.ListItems(ctx)
		if err != nil {
			return storageErr("list items", err)
		}
		categories := make(map[string]Category, len(items))
		for _, it := range items {
			if _, ok := categories[it.SystemName]; !ok {
				categories[it.SystemName] = it.Category
			}
		}

		for _, row := range rows {
			id := strings.TrimSpace(row.OperationID)
			system := strings.TrimSpace(row.SystemName)
			if id == "" || system == "" {
				skipped++
				continue
			}
			existing, err := e.store.GetEntry(ctx, id)
			if err != nil {
				return storageErr("get entry", err)
			}
			if existing != nil {
				skipped++
				continue
			}

			entry := legacyEntry(row, categories[system])
			entry.OperationID = id
			entry.SystemName = system
			if entry.IssuedAt.IsZero() {
				entry.IssuedAt = e.stamp()
			}
			if err := e.store.AppendEntry(ctx, entry); err != nil {
				return storageErr("append entry", err)
			}
			imported++
		}
		e.log.Info("legacy ledger imported", "imported", imported, "skipped", skipped)
		return nil
	})
	return imported, skipped, err
}

func legacyEntry(row LegacyRow, category Category) LedgerEntry {
	if category == "" {
		category = CategoryReusable
	}
	qty := row.Quantity
	if qty < 1 {
		qty = 1
	}
	entry := LedgerEntry{
		IssuedAt:    row.IssuedAt.UTC(),
		HolderID:    strings.TrimSpace(row.HolderID),
		HolderName:  strings.TrimSpace(row.HolderName),
		DisplayName: strings.TrimSpace(row.DisplayName),
		Serial:      ExtractSerial(row.Description),
		Quantity:    qty,
		Category:    category,
		Status:      StatusIssued,
	}
	switch {
	case row.ReturnedAt != nil:
		t := row.ReturnedAt.UTC()
		entry.ReturnedAt = &t
		entry.Status = StatusReturned
	case category == CategoryConsumable:
		entry.Status = StatusConsumed
	}
	return entry
}
