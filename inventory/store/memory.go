// Package store provides in-process inventory.Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/toolroom/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps every table in process memory. Scans return rows in insertion
// order; deleted rows leave no gap.
type Memory struct {
	mu      sync.RWMutex
	items   table[inventory.CatalogItem]
	entries table[inventory.LedgerEntry]
	persons table[inventory.Person]
}

var _ inventory.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		items:   newTable[inventory.CatalogItem](),
		entries: newTable[inventory.LedgerEntry](),
		persons: newTable[inventory.Person](),
	}
}

// table is an insertion-ordered keyed table.
type table[T any] struct {
	rows  []T
	index map[string]int
}

func newTable[T any]() table[T] {
	return table[T]{index: make(map[string]int)}
}

func (t *table[T]) add(kind, id string, row T) error {
	if _, ok := t.index[id]; ok {
		return fmt.Errorf("%s %q already exists", kind, id)
	}
	t.index[id] = len(t.rows)
	t.rows = append(t.rows, row)
	return nil
}

func (t *table[T]) get(id string) (*T, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	row := t.rows[i]
	return &row, true
}

func (t *table[T]) put(kind, id string, row T) error {
	i, ok := t.index[id]
	if !ok {
		return &inventory.NotFoundError{Kind: kind, ID: id}
	}
	t.rows[i] = row
	return nil
}

func (t *table[T]) remove(kind, id string, key func(T) string) error {
	i, ok := t.index[id]
	if !ok {
		return &inventory.NotFoundError{Kind: kind, ID: id}
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	delete(t.index, id)
	for j := i; j < len(t.rows); j++ {
		t.index[key(t.rows[j])] = j
	}
	return nil
}

func (t *table[T]) list() []T {
	out := make([]T, len(t.rows))
	copy(out, t.rows)
	return out
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) AddItem(_ context.Context, item inventory.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.add("item", item.ID, item)
}

func (m *Memory) GetItem(_ context.Context, id string) (*inventory.CatalogItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, _ := m.items.get(id)
	return item, nil
}

func (m *Memory) ListItems(_ context.Context) ([]inventory.CatalogItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items.list(), nil
}

func (m *Memory) SetStock(_ context.Context, id string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("item %q: negative stock %d", id, stock)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items.get(id)
	if !ok {
		return &inventory.NotFoundError{Kind: "item", ID: id}
	}
	item.CurrentStock = stock
	return m.items.put("item", id, *item)
}

func (m *Memory) UpdateItem(_ context.Context, item inventory.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.put("item", item.ID, item)
}

func (m *Memory) DeleteItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.remove("item", id, func(it inventory.CatalogItem) string { return it.ID })
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) AppendEntry(_ context.Context, e inventory.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.add("operation", e.OperationID, e)
}

func (m *Memory) GetEntry(_ context.Context, operationID string) (*inventory.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, _ := m.entries.get(operationID)
	return e, nil
}

func (m *Memory) ListEntries(_ context.Context) ([]inventory.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries.list(), nil
}

func (m *Memory) UpdateEntry(_ context.Context, e inventory.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.put("operation", e.OperationID, e)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) AddPerson(_ context.Context, p inventory.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persons.add("person", p.ID, p)
}

func (m *Memory) GetPerson(_ context.Context, id string) (*inventory.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, _ := m.persons.get(id)
	return p, nil
}

func (m *Memory) ListPersons(_ context.Context) ([]inventory.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persons.list(), nil
}

// Reset drops every row.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = newTable[inventory.CatalogItem]()
	m.entries = newTable[inventory.LedgerEntry]()
	m.persons = newTable[inventory.Person]()
	return nil
}
