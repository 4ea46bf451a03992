package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/inventory"
)

func TestLockCoordinator_DefaultTimeout(t *testing.T) {
	assert.Equal(t, inventory.DefaultLockTimeout, inventory.NewLockCoordinator(0).Timeout())
	assert.Equal(t, time.Second, inventory.NewLockCoordinator(time.Second).Timeout())
}

func TestLockCoordinator_TimesOut(t *testing.T) {
	lock := inventory.NewLockCoordinator(10 * time.Millisecond)
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = lock.Acquire(context.Background())

	assert.ErrorIs(t, err, inventory.ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	release()
	release() // idempotent
	again, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	again()
}

func TestLockCoordinator_ReleasesOnEveryPath(t *testing.T) {
	lock := inventory.NewLockCoordinator(10 * time.Millisecond)
	boom := errors.New("boom")

	err := lock.WithLock(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = lock.WithLock(context.Background(), func(context.Context) error { panic("kaboom") })
	})

	// Still acquirable after an error and a panic.
	err = lock.WithLock(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestMetrics_RecordOutcomes(t *testing.T) {
	// GIVEN: An engine with metrics on a private registry
	reg := prometheus.NewRegistry()
	f := newFixture(t,
		inventory.WithMetrics(inventory.NewMetrics(reg)),
		inventory.WithLock(inventory.NewLockCoordinator(10*time.Millisecond)))
	f.item("saw", "Saw", "", "", 1)

	// WHEN: A success, a warning, a validation failure and a lock timeout
	f.checkout(line("Saw", 1), line("Saw", 1))
	_, _ = f.engine.ReturnOne(f.ctx, "op-ghost", nil)
	release, err := f.engine.Lock().Acquire(f.ctx)
	require.NoError(t, err)
	_, _ = f.engine.AddPerson(f.ctx, "Bo", "")
	release()

	// THEN: Each shows up in its own series
	count, err := testutil.GatherAndCount(reg, "toolroom_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count) // add_person twice (ok, lock_timeout), add_catalog_item, checkout, return
	assert.Equal(t, 1.0, counterValue(t, reg, "toolroom_lock_timeouts_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "toolroom_checkout_warnings_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "toolroom_stock_units_total"))
}

// counterValue sums every series of a counter family.
func counterValue(t *testing.T, reg prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
