/*
Package cache is the read-through layer in front of the catalog, directory
and damage snapshots.

SEMANTICS:
  - Entries are keyed by dataset name and expire after a fixed TTL.
  - Values are stored serialized, so a hit always decodes into a fresh copy
    and callers can never alias cached slices.
  - An entry whose serialized form exceeds MaxEntryBytes is not stored;
    Set reports inventory.ErrSerializationOverflow and the engine drops it.
  - Invalidate is synchronous. The engine calls it before a mutation
    returns.
*/
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/warp/toolroom/inventory"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultMaxEntryBytes = 100 * 1024
	DefaultSize          = 64
)

// Config sizes a Layer. Zero values take the defaults.
type Config struct {
	TTL           time.Duration
	MaxEntryBytes int
	Size          int
}

// Layer implements inventory.Cache.
type Layer struct {
	lru      *expirable.LRU[inventory.Dataset, []byte]
	maxBytes int
	lookups  *prometheus.CounterVec
}

var _ inventory.Cache = (*Layer)(nil)

// New builds a Layer. reg may be nil.
func New(cfg Config, reg prometheus.Registerer) *Layer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntryBytes <= 0 {
		cfg.MaxEntryBytes = DefaultMaxEntryBytes
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	l := &Layer{
		lru:      expirable.NewLRU[inventory.Dataset, []byte](cfg.Size, nil, cfg.TTL),
		maxBytes: cfg.MaxEntryBytes,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolroom",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by dataset and result (hit, miss, overflow).",
		}, []string{"dataset", "result"}),
	}
	if reg != nil {
		reg.MustRegister(l.lookups)
	}
	return l
}

// Get decodes the live entry for key into dst.
func (l *Layer) Get(key inventory.Dataset, dst any) bool {
	raw, ok := l.lru.Get(key)
	if !ok {
		l.lookups.WithLabelValues(string(key), "miss").Inc()
		return false
	}
	if err := jsoniter.ConfigFastest.Unmarshal(raw, dst); err != nil {
		l.lru.Remove(key)
		l.lookups.WithLabelValues(string(key), "miss").Inc()
		return false
	}
	l.lookups.WithLabelValues(string(key), "hit").Inc()
	return true
}

// Set serializes v under key.
func (l *Layer) Set(key inventory.Dataset, v any) error {
	raw, err := jsoniter.ConfigFastest.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if len(raw) > l.maxBytes {
		l.lookups.WithLabelValues(string(key), "overflow").Inc()
		return fmt.Errorf("%w: %s is %d bytes, limit %d", inventory.ErrSerializationOverflow, key, len(raw), l.maxBytes)
	}
	l.lru.Add(key, raw)
	return nil
}

// Invalidate evicts keys.
func (l *Layer) Invalidate(keys ...inventory.Dataset) {
	for _, k := range keys {
		l.lru.Remove(k)
	}
}

// Len reports the number of live entries.
func (l *Layer) Len() int { return l.lru.Len() }
