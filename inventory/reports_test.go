package inventory_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/cache"
	"github.com/warp/toolroom/inventory"
	"github.com/warp/toolroom/inventory/store"
)

// =============================================================================
// REPORTS
// =============================================================================

func TestLog_NewestActivityFirst(t *testing.T) {
	// GIVEN: Two loans, the older one returned last
	f := newFixture(t)
	f.item("saw", "Saw", "", "", 3)
	first := f.checkout(line("Saw", 1)).Entries[0]
	second := f.checkout(line("Saw", 1)).Entries[0]
	_, err := f.engine.ReturnOne(f.ctx, first.OperationID, nil)
	require.NoError(t, err)

	// WHEN: Reading the log
	log, err := f.engine.Log(f.ctx)
	require.NoError(t, err)

	// THEN: The return bumps the first loan to the top
	require.Len(t, log, 2)
	assert.Equal(t, first.OperationID, log[0].OperationID)
	assert.Equal(t, second.OperationID, log[1].OperationID)
}

func TestSummary(t *testing.T) {
	// GIVEN: Two drill units, a consumable, loans, consumption and damage
	f := newFixture(t)
	bo, err := f.engine.AddPerson(f.ctx, "Bo", "")
	require.NoError(t, err)
	f.item("drill", "Drill", "tracked", "S1", 1)
	f.item("drill", "Drill", "tracked", "S2", 2)
	f.item("tape", "Tape", "consumable", "", 10)
	f.checkout(line("Drill", 1), line("Tape", 4))
	_, err = f.engine.CheckoutBatch(f.ctx, bo.ID, []inventory.LineItem{line("Drill", 1)})
	require.NoError(t, err)
	_, err = f.engine.ReportDamage(f.ctx, "tape", "", "wet", 2)
	require.NoError(t, err)

	// WHEN: Summarizing
	s, err := f.engine.Summary(f.ctx)
	require.NoError(t, err)

	// THEN: Per system name rows, sorted by display name
	require.Len(t, s.Rows, 2)
	drill, tape := s.Rows[0], s.Rows[1]
	assert.Equal(t, "Drill", drill.DisplayName)
	assert.Equal(t, 2, drill.Units)
	assert.Equal(t, 3, drill.InitialStock)
	assert.Equal(t, 1, drill.Available)
	assert.Equal(t, 2, drill.OnLoan)
	assert.True(t, decimal.RequireFromString("66.7").Equal(drill.Utilization), drill.Utilization.String())

	assert.Equal(t, "Tape", tape.DisplayName)
	assert.Equal(t, 4, tape.Consumed)
	assert.Equal(t, 2, tape.Damaged)
	assert.Equal(t, 4, tape.Available)
	assert.True(t, tape.Utilization.IsZero())

	assert.Equal(t, "*", s.Totals.SystemName)
	assert.Equal(t, 13, s.Totals.InitialStock)
	assert.Equal(t, 2, s.Totals.OnLoan)
	assert.True(t, decimal.RequireFromString("15.4").Equal(s.Totals.Utilization), s.Totals.Utilization.String())

	// AND: Open loans per holder
	require.Len(t, s.Holders, 2)
	assert.Equal(t, "Ada Lovelace", s.Holders[0].HolderName)
	assert.Equal(t, 1, s.Holders[0].OpenLoans)
	assert.Equal(t, "Bo", s.Holders[1].HolderName)
}

func TestSummary_Empty(t *testing.T) {
	f := newFixture(t)

	s, err := f.engine.Summary(f.ctx)

	require.NoError(t, err)
	assert.Empty(t, s.Rows)
	assert.Empty(t, s.Holders)
	assert.True(t, s.Totals.Utilization.IsZero())
}

func TestDamageReport_InReportingOrder(t *testing.T) {
	f := newFixture(t)
	f.item("saw", "Saw", "", "", 3)
	a, err := f.engine.ReportDamage(f.ctx, "saw", "", "first", 1)
	require.NoError(t, err)
	f.checkout(line("Saw", 1))
	b, err := f.engine.ReportDamage(f.ctx, "saw", "", "second", 1)
	require.NoError(t, err)

	report, err := f.engine.DamageReport(f.ctx)

	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, a, report[0].OperationID)
	assert.Equal(t, b, report[1].OperationID)
}

func TestCatalogGrouped(t *testing.T) {
	f := newFixture(t)
	f.item("saw", "Saw", "", "", 2)
	f.item("drill", "Drill", "tracked", "S1", 1)
	f.item("drill", "Drill", "tracked", "S2", 1)
	f.checkout(line("Drill", 1))

	groups, err := f.engine.CatalogGrouped(f.ctx)

	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Drill", groups[0].DisplayName)
	assert.Equal(t, 2, groups[0].InitialStock)
	assert.Equal(t, 1, groups[0].Available)
	assert.Len(t, groups[0].Units, 2)
	assert.Equal(t, "Saw", groups[1].DisplayName)
}

// =============================================================================
// CACHE FRESHNESS
// =============================================================================

func TestCache_FreshAfterEveryMutation(t *testing.T) {
	// GIVEN: A long-lived cache, warmed
	f := newFixture(t, inventory.WithCache(cache.New(cache.Config{TTL: time.Hour}, nil)))
	data, err := f.engine.InitialData(f.ctx)
	require.NoError(t, err)
	require.Len(t, data.Persons, 1)
	require.Empty(t, data.Catalog)

	// WHEN/THEN: Each mutation is visible on the next read
	saw := f.item("saw", "Saw", "", "", 2)
	items, err := f.engine.Catalog(f.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	loan := f.checkout(line("Saw", 1)).Entries[0]
	items, err = f.engine.Catalog(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].CurrentStock)

	_, err = f.engine.ReturnOne(f.ctx, loan.OperationID, nil)
	require.NoError(t, err)
	items, err = f.engine.Catalog(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].CurrentStock)

	_, err = f.engine.ReportDamage(f.ctx, "saw", "", "", 1)
	require.NoError(t, err)
	data, err = f.engine.InitialData(f.ctx)
	require.NoError(t, err)
	assert.Len(t, data.Damage, 1)
	assert.Equal(t, 1, data.Catalog[0].CurrentStock)

	_, err = f.engine.AddPerson(f.ctx, "Bo", "")
	require.NoError(t, err)
	persons, err := f.engine.Persons(f.ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 2)
	assert.Equal(t, 1, f.stock(saw.ID))
}

// stallingStore holds one armed ListItems call after it has read the rows,
// until release is closed.
type stallingStore struct {
	*store.Memory
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (s *stallingStore) ListItems(ctx context.Context) ([]inventory.CatalogItem, error) {
	items, err := s.Memory.ListItems(ctx)
	if s.armed.CompareAndSwap(true, false) {
		close(s.reached)
		<-s.release
	}
	return items, err
}

func TestCache_FillRacingMutationIsNotStored(t *testing.T) {
	// GIVEN: A reader that has read the catalog but not yet cached it
	slow := &stallingStore{Memory: store.NewMemory(), reached: make(chan struct{}), release: make(chan struct{})}
	f := newFixtureOn(t, slow, inventory.WithCache(cache.New(cache.Config{TTL: time.Hour}, nil)))
	f.item("drill", "Drill", "", "", 1)
	slow.armed.Store(true)

	done := make(chan []inventory.CatalogItem)
	go func() {
		items, err := f.engine.Catalog(f.ctx)
		assert.NoError(t, err)
		done <- items
	}()
	<-slow.reached

	// WHEN: A mutation completes before the reader's fill lands
	f.item("saw", "Saw", "", "", 2)
	close(slow.release)
	stale := <-done
	assert.Len(t, stale, 1)

	// THEN: The next read sees the new row
	items, err := f.engine.Catalog(f.ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCache_ServesUntilInvalidated(t *testing.T) {
	// GIVEN: A warm catalog entry
	f := newFixture(t, inventory.WithCache(cache.New(cache.Config{TTL: time.Hour}, nil)))
	f.item("saw", "Saw", "", "", 2)
	_, err := f.engine.Catalog(f.ctx)
	require.NoError(t, err)

	// WHEN: A row is written behind the engine's back
	require.NoError(t, f.store.AddItem(f.ctx, inventory.CatalogItem{ID: "x", SystemName: "x", DisplayName: "X"}))

	// THEN: The cached snapshot is served
	items, err := f.engine.Catalog(f.ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCache_OversizedEntryStillServed(t *testing.T) {
	f := newFixture(t, inventory.WithCache(cache.New(cache.Config{MaxEntryBytes: 16}, nil)))
	f.item("saw", "Saw", "", "", 2)

	items, err := f.engine.Catalog(f.ctx)

	require.NoError(t, err)
	assert.Len(t, items, 1)
}
