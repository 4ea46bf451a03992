package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/inventory"
	"github.com/warp/toolroom/inventory/storetest"
	"github.com/warp/toolroom/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLite_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) inventory.Store { return newTestStore(t) })
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	// GIVEN: A file-backed store with a checkout recorded
	path := filepath.Join(t.TempDir(), "toolroom.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	engine := inventory.NewEngine(store)
	holder, err := engine.AddPerson(ctx, "Ada", "")
	require.NoError(t, err)
	_, err = engine.AddCatalogItem(ctx, inventory.NewItem{DisplayName: "Drill", InitialStock: 2})
	require.NoError(t, err)
	res, err := engine.CheckoutBatch(ctx, holder.ID, []inventory.LineItem{{DisplayName: "Drill"}})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.NoError(t, store.Close())

	// WHEN: Reopening the same file
	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	// THEN: Stock and ledger are intact
	items, err := reopened.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].CurrentStock)

	entry, err := reopened.GetEntry(ctx, res.Entries[0].OperationID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, inventory.StatusIssued, entry.Status)
	assert.Equal(t, "Ada", entry.HolderName)
}

func TestSQLite_RejectsNegativeStock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, inventory.CatalogItem{
		ID: "i1", SystemName: "drill", DisplayName: "Drill", Category: inventory.CategoryReusable,
		InitialStock: 1, CurrentStock: 1,
	}))

	assert.Error(t, store.SetStock(ctx, "i1", -1))

	got, err := store.GetItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStock)
}
