/*
scheduler.go - Periodic catalog housekeeping

PURPOSE:
  Catalog rows are sometimes entered twice for the same unit (same system
  name and serial). MergeScheduler periodically collapses them with
  Engine.MergeDuplicates so stock for one unit is not split across rows.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Each run takes the global lock like any other mutation; a lock timeout
    is logged and the run is skipped until the next tick
  - RunNow triggers an immediate run, for tests and admin tooling

USAGE:
  scheduler := NewMergeScheduler(engine, 10*time.Minute, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: MergeDuplicates endpoint (manual merge)
  - inventory/merge.go: merge rules
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/toolroom/inventory"
)

// MergeScheduler runs MergeDuplicates on a fixed interval.
type MergeScheduler struct {
	Engine   *inventory.Engine
	Interval time.Duration
	Log      *slog.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewMergeScheduler creates a scheduler. An interval <= 0 disables Start.
func NewMergeScheduler(engine *inventory.Engine, interval time.Duration, log *slog.Logger) *MergeScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &MergeScheduler{
		Engine:   engine,
		Interval: interval,
		Log:      log,
	}
}

// Start begins the scheduler.
func (ms *MergeScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.Interval <= 0 {
		ms.Log.Info("merge scheduler disabled")
		return
	}
	if ms.running {
		return
	}

	ms.stop = make(chan struct{})
	ms.ticker = time.NewTicker(ms.Interval)
	ms.running = true
	ms.wg.Add(1)

	go ms.run(ms.ticker, ms.stop)

	ms.Log.Info("merge scheduler started", "interval", ms.Interval.String())
}

// Stop halts the scheduler and waits for an in-flight run.
func (ms *MergeScheduler) Stop() {
	ms.mu.Lock()
	if !ms.running {
		ms.mu.Unlock()
		return
	}
	ms.running = false
	ms.ticker.Stop()
	close(ms.stop)
	ms.mu.Unlock()

	ms.wg.Wait()
	ms.Log.Info("merge scheduler stopped")
}

func (ms *MergeScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ms.wg.Done()
	for {
		select {
		case <-ticker.C:
			ms.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one merge pass and returns the number of rows removed.
func (ms *MergeScheduler) RunNow(ctx context.Context) int {
	merged, err := ms.Engine.MergeDuplicates(ctx)

	ms.mu.Lock()
	ms.lastRun = time.Now()
	ms.mu.Unlock()

	if err != nil {
		ms.Log.Warn("scheduled merge failed", "err", err, "retryable", inventory.IsRetryable(err))
		return 0
	}
	if merged > 0 {
		ms.Log.Info("scheduled merge removed duplicates", "merged", merged)
	}
	return merged
}

// LastRun reports when the last pass finished (zero before the first).
func (ms *MergeScheduler) LastRun() time.Time {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.lastRun
}
