/*
store.go - Persistence interfaces for the catalog, ledger and directory

PURPOSE:
  Defines the boundary between the engine and the backing tables. Each table
  is a keyed table with four capabilities: get by id, full scan, in-place
  update, append. Deletion exists only for catalog housekeeping (merging
  duplicate rows).

ORDERING CONTRACT:
  Full scans MUST return rows in insertion order. Unit resolution, return
  stock restoration and the damage cascade are all "first match wins", so a
  backend that reorders rows changes which unit is picked.

MISSING ROWS:
  Get* returns (nil, nil) when the id does not exist. UpdateItem, UpdateEntry
  and SetStock on a missing id return an error wrapping ErrNotFound.

IMPLEMENTATIONS:
  - inventory/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go:    go-sqlite3
  - store/postgres/postgres.go: pgx + goose migrations

SEE ALSO:
  - inventory/storetest: conformance suite every backend runs
*/
package inventory

import "context"

// CatalogStore persists stock-bearing unit rows.
type CatalogStore interface {
	AddItem(ctx context.Context, item CatalogItem) error
	GetItem(ctx context.Context, id string) (*CatalogItem, error)
	ListItems(ctx context.Context) ([]CatalogItem, error)
	SetStock(ctx context.Context, id string, stock int) error
	UpdateItem(ctx context.Context, item CatalogItem) error
	DeleteItem(ctx context.Context, id string) error
}

// LedgerStore persists operations. Entries are appended once and afterwards
// only their status and return fields change.
type LedgerStore interface {
	AppendEntry(ctx context.Context, e LedgerEntry) error
	GetEntry(ctx context.Context, operationID string) (*LedgerEntry, error)
	ListEntries(ctx context.Context) ([]LedgerEntry, error)
	UpdateEntry(ctx context.Context, e LedgerEntry) error
}

// PersonDirectory stores people who can hold tools.
type PersonDirectory interface {
	AddPerson(ctx context.Context, p Person) error
	GetPerson(ctx context.Context, id string) (*Person, error)
	ListPersons(ctx context.Context) ([]Person, error)
}

// Store is a backend holding all three tables.
type Store interface {
	CatalogStore
	LedgerStore
	PersonDirectory
}

// Resetter is implemented by stores that can drop all rows.
type Resetter interface {
	Reset(ctx context.Context) error
}

// PhotoStore keeps binary attachments. SavePhoto returns a retrievable
// reference, or "" when the photo could not be stored. It never fails the
// caller.
type PhotoStore interface {
	SavePhoto(ctx context.Context, data []byte, folder, operationID string) string
}

// Cache is the read-through layer over snapshot datasets.
type Cache interface {
	// Get decodes a live entry into dst and reports whether one existed.
	Get(key Dataset, dst any) bool
	// Set stores v. Oversized values yield ErrSerializationOverflow.
	Set(key Dataset, v any) error
	Invalidate(keys ...Dataset)
}

// Photo folders.
const (
	FolderIssue  = "issue"
	FolderReturn = "return"
)

type nopPhotos struct{}

func (nopPhotos) SavePhoto(context.Context, []byte, string, string) string { return "" }

type nopCache struct{}

func (nopCache) Get(Dataset, any) bool  { return false }
func (nopCache) Set(Dataset, any) error { return nil }
func (nopCache) Invalidate(...Dataset)  {}
