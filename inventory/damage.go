/*
damage.go - Damage reporting and loan reconciliation

FLOW (ReportDamage):
  1. Append a standalone damaged entry. This always happens, even when the
     reported quantity exceeds what is on the shelf.
  2. Remove the units from stock, floored at zero.
  3. Cascade: walk open issued entries of the same system name in storage
     order, closing each as returned, until the closed quantity covers the
     damaged quantity. The last closed entry may overshoot.

ATTRIBUTION:
  The cascade does not know which loan caused the damage. It closes the
  earliest open loans first so that damaged units stop showing up as out on
  loan. Closed loans are marked returned, not damaged; reports rely on the
  issued/returned split.
*/
package inventory

import (
	"context"
	"strings"
)

// ReportDamage records damaged units of systemName and returns the new
// operation id.
func (e *Engine) ReportDamage(ctx context.Context, systemName, serial, description string, qty int) (string, error) {
	systemName = strings.TrimSpace(systemName)
	if systemName == "" {
		return "", validationf("system name is required")
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return "", validationf("quantity must be positive, got %d", qty)
	}

	var opID string
	err := e.mutate(ctx, "report_damage", []Dataset{DatasetCatalog, DatasetDamage}, func(ctx context.Context) error {
		items, err := e.store.ListItems(ctx)
		if err != nil {
			return storageErr("list items", err)
		}
		unit := damagedUnit(items, systemName, serial)

		entry := LedgerEntry{
			OperationID:       e.newID(prefixDamage),
			IssuedAt:          e.stamp(),
			SystemName:        systemName,
			Serial:            ExtractSerial(serial),
			Quantity:          qty,
			Category:          CategoryReusable,
			Status:            StatusDamaged,
			DamageDescription: strings.TrimSpace(description),
		}
		if unit != nil {
			entry.DisplayName = unit.DisplayName
			entry.Category = unit.Category
		}
		if err := e.store.AppendEntry(ctx, entry); err != nil {
			return storageErr("append entry", err)
		}
		opID = entry.OperationID
		e.metrics.moved(StatusDamaged, qty)

		if unit != nil {
			remaining := max(unit.CurrentStock-qty, 0)
			if err := e.store.SetStock(ctx, unit.ID, remaining); err != nil {
				return storageErr("set stock", err)
			}
		} else {
			e.log.Warn("damaged units have no catalog row", "system_name", systemName, "operation_id", opID)
		}

		closed, err := e.reconcileLoans(ctx, systemName, qty)
		if err != nil {
			return err
		}
		e.log.Info("damage reported",
			"operation_id", opID, "system_name", systemName, "quantity", qty, "loans_closed", closed)
		return nil
	})
	if err != nil {
		return "", err
	}
	return opID, nil
}

// damagedUnit picks the row losing stock: the row of systemName whose serial
// matches, else the first row of systemName.
func damagedUnit(items []CatalogItem, systemName, serial string) *CatalogItem {
	serial = ExtractSerial(serial)
	var first *CatalogItem
	for i := range items {
		it := &items[i]
		if it.SystemName != systemName {
			continue
		}
		if serial != "" && it.EffectiveSerial() == serial {
			return it
		}
		if first == nil {
			first = it
		}
	}
	return first
}

// reconcileLoans closes the minimal leading run of open loans of systemName
// whose quantities add up to at least qty. It returns how many were closed.
func (e *Engine) reconcileLoans(ctx context.Context, systemName string, qty int) (int, error) {
	entries, err := e.store.ListEntries(ctx)
	if err != nil {
		return 0, storageErr("list entries", err)
	}
	covered, closed := 0, 0
	for _, entry := range entries {
		if covered >= qty {
			break
		}
		if entry.SystemName != systemName || entry.Status != StatusIssued {
			continue
		}
		now := e.stamp()
		entry.Status = StatusReturned
		entry.ReturnedAt = &now
		if err := e.store.UpdateEntry(ctx, entry); err != nil {
			return closed, storageErr("update entry", err)
		}
		covered += entry.Quantity
		closed++
	}
	return closed, nil
}
