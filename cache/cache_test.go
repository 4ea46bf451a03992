package cache_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/cache"
	"github.com/warp/toolroom/inventory"
)

func TestLayer_RoundTripReturnsCopy(t *testing.T) {
	// GIVEN: A cached catalog
	l := cache.New(cache.Config{}, nil)
	items := []inventory.CatalogItem{{ID: "i1", DisplayName: "Drill", CurrentStock: 2}}
	require.NoError(t, l.Set(inventory.DatasetCatalog, items))

	// WHEN: Reading it twice and mutating the first copy
	var first, second []inventory.CatalogItem
	require.True(t, l.Get(inventory.DatasetCatalog, &first))
	first[0].CurrentStock = 0
	require.True(t, l.Get(inventory.DatasetCatalog, &second))

	// THEN: The cached value is unaffected
	assert.Equal(t, 2, second[0].CurrentStock)
}

func TestLayer_Invalidate(t *testing.T) {
	l := cache.New(cache.Config{}, nil)
	require.NoError(t, l.Set(inventory.DatasetCatalog, []string{"a"}))
	require.NoError(t, l.Set(inventory.DatasetDirectory, []string{"b"}))

	l.Invalidate(inventory.DatasetCatalog)

	var out []string
	assert.False(t, l.Get(inventory.DatasetCatalog, &out))
	assert.True(t, l.Get(inventory.DatasetDirectory, &out))
	assert.Equal(t, []string{"b"}, out)
}

func TestLayer_OversizedEntryIsNotCached(t *testing.T) {
	// GIVEN: A 1 KiB limit
	l := cache.New(cache.Config{MaxEntryBytes: 1024}, nil)

	// WHEN: Storing a payload larger than the limit
	err := l.Set(inventory.DatasetCatalog, strings.Repeat("x", 2048))

	// THEN: Overflow is reported and nothing is cached
	assert.ErrorIs(t, err, inventory.ErrSerializationOverflow)
	var out string
	assert.False(t, l.Get(inventory.DatasetCatalog, &out))
	assert.Equal(t, 0, l.Len())
}

func TestLayer_Expires(t *testing.T) {
	l := cache.New(cache.Config{TTL: 20 * time.Millisecond}, nil)
	require.NoError(t, l.Set(inventory.DatasetDamage, []int{1}))

	assert.Eventually(t, func() bool {
		var out []int
		return !l.Get(inventory.DatasetDamage, &out)
	}, time.Second, 10*time.Millisecond)
}

func TestLayer_CountsHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := cache.New(cache.Config{}, reg)

	var out []int
	l.Get(inventory.DatasetCatalog, &out)
	require.NoError(t, l.Set(inventory.DatasetCatalog, []int{1}))
	l.Get(inventory.DatasetCatalog, &out)
	l.Get(inventory.DatasetCatalog, &out)

	count, err := testutil.GatherAndCount(reg, "toolroom_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // hit and miss series
}
