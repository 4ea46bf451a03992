package store_test

import (
	"testing"

	"github.com/warp/toolroom/inventory"
	"github.com/warp/toolroom/inventory/store"
	"github.com/warp/toolroom/inventory/storetest"
)

func TestMemory_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) inventory.Store { return store.NewMemory() })
}
