package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/inventory"
)

// =============================================================================
// MERGE DUPLICATES
// =============================================================================

func TestMergeDuplicates(t *testing.T) {
	// GIVEN: Duplicate saw rows, two distinct drill units and a drill
	// entered twice under different serial spellings
	f := newFixture(t)
	saw1 := f.item("saw", "Saw", "", "", 2)
	f.item("SAW", "Saw", "", "", 3)
	d1 := f.item("drill", "Drill", "tracked", "S/N: DR-1", 1)
	f.item("drill", "Drill", "tracked", "DR-2", 1)
	f.item("drill", "Drill", "tracked", "dr-1", 1)
	f.checkout(line("Saw", 1))

	// WHEN: Merging
	merged, err := f.engine.MergeDuplicates(f.ctx)
	require.NoError(t, err)

	// THEN: The first row of each unit survives with the summed stock
	assert.Equal(t, 2, merged)
	items, err := f.store.ListItems(f.ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, saw1.ID, items[0].ID)
	assert.Equal(t, 5, items[0].InitialStock)
	assert.Equal(t, 4, items[0].CurrentStock)

	assert.Equal(t, d1.ID, items[1].ID)
	assert.Equal(t, 2, items[1].CurrentStock)
	assert.Equal(t, "DR-2", items[2].EffectiveSerial())

	// AND: A second pass finds nothing
	merged, err = f.engine.MergeDuplicates(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, merged)
}

// =============================================================================
// LEGACY IMPORT
// =============================================================================

func TestImportLegacy(t *testing.T) {
	// GIVEN: A catalog with one consumable and a legacy sheet
	f := newFixture(t)
	saw := f.item("saw", "Saw", "", "", 3)
	f.item("tape", "Tape", "consumable", "", 10)
	issued := time.Date(2024, time.November, 5, 14, 0, 0, 0, time.UTC)
	back := issued.Add(48 * time.Hour)
	rows := []inventory.LegacyRow{
		{OperationID: "W1", SystemName: "saw", DisplayName: "Saw", Description: "S/N: SW-7", HolderName: "Ada", IssuedAt: issued, Quantity: 2},
		{OperationID: "W2", SystemName: "saw", DisplayName: "Saw", HolderName: "Bo", IssuedAt: issued, ReturnedAt: &back},
		{OperationID: "W3", SystemName: "tape", DisplayName: "Tape", HolderName: "Bo", IssuedAt: issued, Quantity: 3},
		{OperationID: "W4", SystemName: "ladder", DisplayName: "Ladder", HolderName: "Chen"},
		{OperationID: "", SystemName: "saw"},
		{OperationID: "W5", SystemName: "  "},
		{OperationID: "W1", SystemName: "saw"},
	}

	// WHEN: Importing
	imported, skipped, err := f.engine.ImportLegacy(f.ctx, rows)
	require.NoError(t, err)

	// THEN: Four rows land, the rest are skipped, stock untouched
	assert.Equal(t, 4, imported)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, 3, f.stock(saw.ID))

	w1 := f.entry("W1")
	assert.Equal(t, inventory.StatusIssued, w1.Status)
	assert.Equal(t, "SW-7", w1.Serial)
	assert.Equal(t, 2, w1.Quantity)
	assert.Equal(t, issued, w1.IssuedAt)

	w2 := f.entry("W2")
	assert.Equal(t, inventory.StatusReturned, w2.Status)
	require.NotNil(t, w2.ReturnedAt)
	assert.Equal(t, back, *w2.ReturnedAt)
	assert.Equal(t, 1, w2.Quantity)

	assert.Equal(t, inventory.StatusConsumed, f.entry("W3").Status)

	w4 := f.entry("W4")
	assert.Equal(t, inventory.CategoryReusable, w4.Category)
	assert.False(t, w4.IssuedAt.IsZero())

	// AND: Imported loans can be returned like any other
	_, err = f.engine.ReturnOne(f.ctx, "W1", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(saw.ID))

	// AND: Re-importing is a no-op
	imported, _, err = f.engine.ImportLegacy(f.ctx, rows)
	require.NoError(t, err)
	assert.Zero(t, imported)
}
