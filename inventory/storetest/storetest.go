/*
Package storetest is the conformance suite for inventory.Store backends.

Every backend runs Run from its own tests:

	func TestConformance(t *testing.T) {
		storetest.Run(t, func(t *testing.T) inventory.Store { return NewMemory() })
	}

The suite pins the ordering contract (insertion order, stable across
updates and deletes) and the (nil, nil) convention for missing rows.
*/
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/inventory"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) inventory.Store

// Run exercises every store capability against a fresh store per subtest.
func Run(t *testing.T, newStore Factory) {
	t.Run("CatalogInsertionOrder", func(t *testing.T) { testCatalogOrder(t, newStore(t)) })
	t.Run("CatalogStockAndUpdate", func(t *testing.T) { testCatalogUpdates(t, newStore(t)) })
	t.Run("CatalogDelete", func(t *testing.T) { testCatalogDelete(t, newStore(t)) })
	t.Run("LedgerAppendAndUpdate", func(t *testing.T) { testLedger(t, newStore(t)) })
	t.Run("LedgerDuplicateID", func(t *testing.T) { testLedgerDuplicate(t, newStore(t)) })
	t.Run("Directory", func(t *testing.T) { testDirectory(t, newStore(t)) })
	t.Run("MissingRows", func(t *testing.T) { testMissing(t, newStore(t)) })
}

var t0 = time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC)

func item(id, display string, stock int) inventory.CatalogItem {
	return inventory.CatalogItem{
		ID:           id,
		SystemName:   "sys-" + display,
		DisplayName:  display,
		Category:     inventory.CategoryReusable,
		Serial:       "S/N " + id,
		InitialStock: stock,
		CurrentStock: stock,
		CreatedAt:    t0,
	}
}

func testCatalogOrder(t *testing.T, s inventory.Store) {
	// GIVEN: Rows inserted with ids that do not sort in insertion order
	ctx := context.Background()
	ids := []string{"z", "a", "m", "b"}
	for i, id := range ids {
		require.NoError(t, s.AddItem(ctx, item(id, fmt.Sprintf("Tool %d", i), i+1)))
	}

	// WHEN: Listing
	items, err := s.ListItems(ctx)
	require.NoError(t, err)

	// THEN: Insertion order, not id order
	require.Len(t, items, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, items[i].ID)
	}
	assert.Equal(t, "S/N z", items[0].Serial)
	assert.True(t, items[0].CreatedAt.Equal(t0))
}

func testCatalogUpdates(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddItem(ctx, item("i1", "Drill", 3)))
	require.NoError(t, s.AddItem(ctx, item("i2", "Saw", 1)))

	// WHEN: Stock changes on the first row and the second row is rewritten
	require.NoError(t, s.SetStock(ctx, "i1", 0))
	updated := item("i2", "Saw", 4)
	updated.CurrentStock = 2
	require.NoError(t, s.UpdateItem(ctx, updated))

	// THEN: Values persist and order is unchanged
	got, err := s.GetItem(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.CurrentStock)
	assert.Equal(t, 3, got.InitialStock)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "i1", items[0].ID)
	assert.Equal(t, 4, items[1].InitialStock)
	assert.Equal(t, 2, items[1].CurrentStock)
}

func testCatalogDelete(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddItem(ctx, item(id, "Clamp", 1)))
	}

	require.NoError(t, s.DeleteItem(ctx, "b"))
	require.NoError(t, s.AddItem(ctx, item("d", "Clamp", 1)))

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)

	// Remaining rows stay addressable after the delete.
	got, err := s.GetItem(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, s.SetStock(ctx, "d", 7))
}

func testLedger(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	first := inventory.LedgerEntry{
		OperationID: "op-2",
		IssuedAt:    t0,
		HolderID:    "per-1",
		HolderName:  "Ada",
		SystemName:  "drill",
		DisplayName: "Drill",
		Serial:      "AB-1",
		Quantity:    1,
		Category:    inventory.CategoryReusable,
		Status:      inventory.StatusIssued,
	}
	second := inventory.LedgerEntry{
		OperationID:       "op-1",
		IssuedAt:          t0.Add(time.Hour),
		SystemName:        "drill",
		Quantity:          2,
		Category:          inventory.CategoryReusable,
		Status:            inventory.StatusDamaged,
		DamageDescription: "cracked housing",
	}
	require.NoError(t, s.AppendEntry(ctx, first))
	require.NoError(t, s.AppendEntry(ctx, second))

	// WHEN: The first entry is returned
	returned := t0.Add(2 * time.Hour)
	first.Status = inventory.StatusReturned
	first.ReturnedAt = &returned
	first.ReturnPhotoRef = "return/op-2.jpg"
	require.NoError(t, s.UpdateEntry(ctx, first))

	// THEN: The update is visible and order is insertion order
	got, err := s.GetEntry(ctx, "op-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inventory.StatusReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	assert.True(t, got.ReturnedAt.Equal(returned))
	assert.Equal(t, "return/op-2.jpg", got.ReturnPhotoRef)
	assert.Equal(t, "Ada", got.HolderName)

	entries, err := s.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "op-2", entries[0].OperationID)
	assert.Equal(t, "op-1", entries[1].OperationID)
	assert.Nil(t, entries[1].ReturnedAt)
	assert.Equal(t, "cracked housing", entries[1].DamageDescription)
}

func testLedgerDuplicate(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	e := inventory.LedgerEntry{OperationID: "op-1", IssuedAt: t0, SystemName: "x", Quantity: 1,
		Category: inventory.CategoryReusable, Status: inventory.StatusIssued}
	require.NoError(t, s.AppendEntry(ctx, e))
	assert.Error(t, s.AppendEntry(ctx, e))
}

func testDirectory(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddPerson(ctx, inventory.Person{ID: "per-2", Name: "Zoe", Phone: "555", CreatedAt: t0}))
	require.NoError(t, s.AddPerson(ctx, inventory.Person{ID: "per-1", Name: "Ada", CreatedAt: t0}))

	persons, err := s.ListPersons(ctx)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "per-2", persons[0].ID)

	p, err := s.GetPerson(ctx, "per-2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "555", p.Phone)
}

func testMissing(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	it, err := s.GetItem(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, it)

	e, err := s.GetEntry(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, e)

	p, err := s.GetPerson(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.ErrorIs(t, s.SetStock(ctx, "nope", 1), inventory.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEntry(ctx, inventory.LedgerEntry{OperationID: "nope"}), inventory.ErrNotFound)
	assert.ErrorIs(t, s.DeleteItem(ctx, "nope"), inventory.ErrNotFound)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
