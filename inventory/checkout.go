/*
checkout.go - Issuing and consuming stock

FLOW (CheckoutBatch):
  1. Acquire the global lock (bounded wait).
  2. Resolve the holder once. Unknown holder fails the whole batch.
  3. Read the catalog once into a working snapshot.
  4. For each line, independently:
       - resolve a unit that can cover the full quantity
       - none? record a Warning and move on
       - decrement the unit's stock (snapshot and store)
       - consumable -> consumed, anything else -> issued
       - store the issue photo, if any, under the new operation id
       - append one ledger entry
  5. Invalidate the catalog cache and release the lock.

PARTIAL FAILURE:
  A line without stock is expected, not an error. Only systemic failures
  (lock timeout, storage) fail the call, and lines applied before a storage
  failure stay applied.
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
)

// CheckoutBatch issues or consumes each line for holderID.
func (e *Engine) CheckoutBatch(ctx context.Context, holderID string, lines []LineItem) (CheckoutResult, error) {
	result := CheckoutResult{Entries: []LedgerEntry{}, Warnings: []Warning{}}

	err := e.mutate(ctx, "checkout", []Dataset{DatasetCatalog}, func(ctx context.Context) error {
		holder, err := e.store.GetPerson(ctx, holderID)
		if err != nil {
			return storageErr("get person", err)
		}
		if holder == nil {
			return &NotFoundError{Kind: "person", ID: holderID}
		}

		items, err := e.store.ListItems(ctx)
		if err != nil {
			return storageErr("list items", err)
		}

		for _, line := range lines {
			entry, warning, err := e.checkoutLine(ctx, holder, items, line)
			if err != nil {
				return err
			}
			if warning != nil {
				result.Warnings = append(result.Warnings, *warning)
				e.log.Info("checkout line skipped",
					"holder_id", holderID, "display_name", warning.DisplayName, "reason", warning.Message)
				continue
			}
			result.Entries = append(result.Entries, *entry)
		}
		return nil
	})
	e.metrics.warn(len(result.Warnings))
	if err != nil {
		return result, err
	}
	return result, nil
}

// checkoutLine applies one line against the working snapshot. It returns
// either an entry, a warning, or a systemic error.
func (e *Engine) checkoutLine(ctx context.Context, holder *Person, items []CatalogItem, line LineItem) (*LedgerEntry, *Warning, error) {
	name := strings.TrimSpace(line.DisplayName)
	qty := line.Quantity
	if qty == 0 {
		qty = 1
	}
	warn := func(available int, msg string) (*LedgerEntry, *Warning, error) {
		return nil, &Warning{
			DisplayName: name,
			Serial:      strings.TrimSpace(line.Serial),
			Requested:   qty,
			Available:   available,
			Message:     msg,
		}, nil
	}
	if qty < 0 {
		return warn(0, fmt.Sprintf("%s: invalid quantity %d", name, qty))
	}

	unit, ok := ResolveUnit(items, name, line.Serial, qty)
	if !ok {
		best, known := largestUnit(items, name)
		if !known {
			return warn(0, fmt.Sprintf("%s: not in catalog", name))
		}
		stockErr := &InsufficientStockError{DisplayName: name, Serial: line.Serial, Requested: qty, Available: best}
		return warn(best, stockErr.Error())
	}

	remaining := unit.CurrentStock - qty
	if err := e.store.SetStock(ctx, unit.ID, remaining); err != nil {
		return nil, nil, storageErr("set stock", err)
	}
	unit.CurrentStock = remaining

	status := StatusIssued
	if unit.Category == CategoryConsumable {
		status = StatusConsumed
	}

	entry := LedgerEntry{
		OperationID: e.newID(prefixOperation),
		IssuedAt:    e.stamp(),
		HolderID:    holder.ID,
		HolderName:  holder.Name,
		SystemName:  unit.SystemName,
		DisplayName: unit.DisplayName,
		Serial:      unit.EffectiveSerial(),
		Quantity:    qty,
		Category:    unit.Category,
		Status:      status,
	}
	if len(line.Photo) > 0 {
		entry.IssuePhotoRef = e.photos.SavePhoto(ctx, line.Photo, FolderIssue, entry.OperationID)
	}
	if err := e.store.AppendEntry(ctx, entry); err != nil {
		return nil, nil, storageErr("append entry", err)
	}
	e.metrics.moved(status, qty)
	return &entry, nil, nil
}
