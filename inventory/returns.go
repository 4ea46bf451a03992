package inventory

import (
	"context"
	"errors"
)

// ReturnOne closes an issued loan and puts its units back on the shelf.
// Unknown ids fail with ErrNotFound, anything not issued with ErrValidation.
func (e *Engine) ReturnOne(ctx context.Context, operationID string, photo []byte) (LedgerEntry, error) {
	var out LedgerEntry
	err := e.mutate(ctx, "return", []Dataset{DatasetCatalog}, func(ctx context.Context) error {
		entry, err := e.returnEntry(ctx, operationID, photo)
		if err != nil {
			return err
		}
		out = *entry
		return nil
	})
	return out, err
}

// ReturnBatch returns every id it can and reports how many succeeded.
// Missing or already closed ids are skipped silently.
func (e *Engine) ReturnBatch(ctx context.Context, ids []string, photos map[string][]byte) (int, error) {
	count := 0
	err := e.mutate(ctx, "return_batch", []Dataset{DatasetCatalog}, func(ctx context.Context) error {
		for _, id := range ids {
			_, err := e.returnEntry(ctx, id, photos[id])
			switch {
			case err == nil:
				count++
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
				e.log.Debug("return skipped", "operation_id", id, "err", err)
			default:
				return err
			}
		}
		return nil
	})
	return count, err
}

// returnEntry must run under the lock.
func (e *Engine) returnEntry(ctx context.Context, operationID string, photo []byte) (*LedgerEntry, error) {
	entry, err := e.store.GetEntry(ctx, operationID)
	if err != nil {
		return nil, storageErr("get entry", err)
	}
	if entry == nil {
		return nil, &NotFoundError{Kind: "operation", ID: operationID}
	}
	if entry.Status != StatusIssued {
		return nil, &InvalidTransitionError{OperationID: operationID, From: entry.Status, To: StatusReturned}
	}

	undo, err := e.restock(ctx, entry.SystemName, entry.Quantity)
	if err != nil {
		return nil, err
	}

	if len(photo) > 0 {
		entry.ReturnPhotoRef = e.photos.SavePhoto(ctx, photo, FolderReturn, operationID)
	}
	now := e.stamp()
	entry.Status = StatusReturned
	entry.ReturnedAt = &now
	if err := e.store.UpdateEntry(ctx, *entry); err != nil {
		undo()
		return nil, storageErr("update entry", err)
	}
	e.metrics.moved(StatusReturned, entry.Quantity)
	return entry, nil
}

// restock increments the first catalog row carrying systemName. The row is
// not matched by serial: which physical unit came back is not tracked. The
// returned undo puts the previous stock back.
func (e *Engine) restock(ctx context.Context, systemName string, qty int) (undo func(), err error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	for _, it := range items {
		if it.SystemName != systemName {
			continue
		}
		if err := e.store.SetStock(ctx, it.ID, it.CurrentStock+qty); err != nil {
			return nil, storageErr("set stock", err)
		}
		id, prev := it.ID, it.CurrentStock
		return func() {
			if err := e.store.SetStock(ctx, id, prev); err != nil {
				e.log.Error("restock rollback failed", "item_id", id, "stock", prev, "err", err)
			}
		}, nil
	}
	e.log.Warn("returned units have no catalog row", "system_name", systemName, "quantity", qty)
	return func() {}, nil
}
