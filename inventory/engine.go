/*
engine.go - Mutation engine wiring

PURPOSE:
  Engine is the single entry point for every change to the catalog, the
  ledger and the directory. It owns the process-wide lock, the cache and the
  photo store, and exposes the lock-free read models.

MUTATION PROTOCOL (mutate):
  1. Detach the request context: a mutation is never cancelled once begun.
  2. Acquire the global lock with a bounded wait. Timeout -> ErrLockTimeout,
     nothing mutated.
  3. Run the operation body against fresh store reads (never the cache).
  4. Invalidate the affected cache datasets, once, before returning.
  5. Release the lock on every exit path.

READS:
  Reads take no lock and may observe a mutation in flight. Catalog,
  directory and damage snapshots go through the read-through cache; every
  mutation evicts the datasets it touched, so staleness is bounded to a
  single in-flight mutation. A fill that raced an invalidation of its
  dataset is returned to its caller but never stored.

SEE ALSO:
  - lock.go: LockCoordinator
  - checkout.go, returns.go, damage.go, merge.go, legacy.go: operation bodies
  - reports.go: read models
*/
package inventory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine runs every tool room operation.
type Engine struct {
	store   Store
	lock    *LockCoordinator
	cache   Cache
	photos  PhotoStore
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
	newID   func(prefix string) string

	// gen counts invalidations per dataset; guarded by genMu together
	// with the cache writes that depend on it.
	genMu sync.Mutex
	gen   map[Dataset]uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLock replaces the default coordinator (30s wait bound).
func WithLock(l *LockCoordinator) Option { return func(e *Engine) { e.lock = l } }

// WithCache installs the read-through cache. nil keeps caching off.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithPhotos installs the attachment store. nil discards photos.
func WithPhotos(p PhotoStore) Option {
	return func(e *Engine) {
		if p != nil {
			e.photos = p
		}
	}
}

// WithMetrics installs Prometheus collectors.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDs overrides id generation, for tests.
func WithIDs(gen func(prefix string) string) Option { return func(e *Engine) { e.newID = gen } }

// NewEngine wires an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		cache:  nopCache{},
		photos: nopPhotos{},
		log:    slog.Default(),
		now:    time.Now,
		newID:  func(prefix string) string { return prefix + uuid.NewString() },
		gen:    make(map[Dataset]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lock == nil {
		e.lock = NewLockCoordinator(DefaultLockTimeout)
	}
	if e.lock.metrics == nil {
		e.lock.metrics = e.metrics
	}
	return e
}

// Lock exposes the coordinator, mainly so tests can hold it.
func (e *Engine) Lock() *LockCoordinator { return e.lock }

// Store returns the backing store.
func (e *Engine) Store() Store { return e.store }

// Reset empties every table, for demo and test setups. The store must
// implement Resetter.
func (e *Engine) Reset(ctx context.Context) error {
	r, ok := e.store.(Resetter)
	if !ok {
		return validationf("store %T cannot be reset", e.store)
	}
	all := []Dataset{DatasetCatalog, DatasetDirectory, DatasetDamage}
	return e.mutate(ctx, "reset", all, func(ctx context.Context) error {
		if err := storageErr("reset", r.Reset(ctx)); err != nil {
			return err
		}
		e.log.Warn("store reset")
		return nil
	})
}

// id prefixes
const (
	prefixOperation = "op-"
	prefixDamage    = "dmg-"
	prefixPerson    = "per-"
	prefixItem      = "itm-"
)

// mutate is the only way operation bodies run. See MUTATION PROTOCOL above.
func (e *Engine) mutate(ctx context.Context, op string, touched []Dataset, fn func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)

	err := e.lock.WithLock(ctx, func(ctx context.Context) error {
		defer e.invalidate(touched...)
		return fn(ctx)
	})

	e.metrics.observeOp(op, err)
	if err != nil {
		level := slog.LevelWarn
		if !IsClientError(err) && !IsRetryable(err) {
			level = slog.LevelError
		}
		e.log.Log(ctx, level, "mutation failed", "op", op, "err", err)
	}
	return err
}

func (e *Engine) stamp() time.Time {
	return e.now().UTC()
}

// invalidate evicts keys and bumps their generations so fills started
// before this point are not stored.
func (e *Engine) invalidate(keys ...Dataset) {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	for _, k := range keys {
		e.gen[k]++
	}
	e.cache.Invalidate(keys...)
}

func (e *Engine) generation(key Dataset) uint64 {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	return e.gen[key]
}

// cached reads key through the cache, filling it from fill on a miss. A value
// that cannot be cached is still returned.
func cached[T any](e *Engine, key Dataset, fill func() (T, error)) (T, error) {
	var out T
	if e.cache.Get(key, &out) {
		return out, nil
	}
	gen := e.generation(key)
	out, err := fill()
	if err != nil {
		return out, err
	}

	e.genMu.Lock()
	defer e.genMu.Unlock()
	if e.gen[key] != gen {
		e.log.Debug("cache fill dropped, dataset changed", "dataset", string(key))
		return out, nil
	}
	if err := e.cache.Set(key, out); err != nil {
		e.log.Debug("cache set skipped", "dataset", string(key), "err", err)
	}
	return out, nil
}
