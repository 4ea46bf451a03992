/*
Package sqlite provides a SQLite-backed implementation of inventory.Store.

PURPOSE:
  Persists the catalog, the ledger and the person directory in one SQLite
  file. This is the default single-node backend.

ORDERING:
  Every table carries an AUTOINCREMENT seq column and every scan is
  ORDER BY seq. Ids are opaque strings and never used for ordering, so
  unit resolution and the damage cascade see rows in insertion order.

KEY TABLES:
  catalog_items:  one row per stock-bearing unit
  ledger_entries: issue/consume/return/damage operations
  persons:        directory

CONCURRENCY:
  The engine serializes writers with its own lock. The RWMutex here only
  keeps direct callers (tests, tooling) safe. The pool is capped at one
  connection so ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/toolroom.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := inventory.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). store/postgres uses goose with
  versioned migrations instead.

SEE ALSO:
  - inventory/store.go: interface definitions and the ordering contract
  - inventory/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/toolroom/inventory"
)

// Store implements inventory.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ inventory.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		system_name TEXT NOT NULL,
		display_name TEXT NOT NULL,
		category TEXT NOT NULL,
		serial TEXT NOT NULL DEFAULT '',
		initial_stock INTEGER NOT NULL CHECK (initial_stock >= 0),
		current_stock INTEGER NOT NULL CHECK (current_stock >= 0),
		created_at TEXT NOT NULL
	);

	-- Resolution scans by display name; returns and damage by system name
	CREATE INDEX IF NOT EXISTS idx_catalog_display_name
		ON catalog_items(display_name, seq);
	CREATE INDEX IF NOT EXISTS idx_catalog_system_name
		ON catalog_items(system_name, seq);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_id TEXT NOT NULL UNIQUE,
		issued_at TEXT NOT NULL,
		holder_id TEXT NOT NULL DEFAULT '',
		holder_name TEXT NOT NULL DEFAULT '',
		system_name TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		serial TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		issue_photo_ref TEXT NOT NULL DEFAULT '',
		return_photo_ref TEXT NOT NULL DEFAULT '',
		returned_at TEXT,
		damage_description TEXT NOT NULL DEFAULT ''
	);

	-- Damage cascade: open loans of one system name in order
	CREATE INDEX IF NOT EXISTS idx_ledger_system_status
		ON ledger_entries(system_name, status, seq);

	CREATE TABLE IF NOT EXISTS persons (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CATALOG (inventory.CatalogStore)
// =============================================================================

const itemColumns = `id, system_name, display_name, category, serial, initial_stock, current_stock, created_at`

// AddItem appends a catalog row.
func (s *Store) AddItem(ctx context.Context, item inventory.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.SystemName, item.DisplayName, string(item.Category), item.Serial,
		item.InitialStock, item.CurrentStock, formatTime(item.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("item %q already exists", item.ID)
		}
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// GetItem retrieves a catalog row by id.
func (s *Store) GetItem(ctx context.Context, id string) (*inventory.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns every catalog row in insertion order.
func (s *Store) ListItems(ctx context.Context) ([]inventory.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM catalog_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []inventory.CatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetStock overwrites the current stock of one row.
func (s *Store) SetStock(ctx context.Context, id string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE catalog_items SET current_stock = ? WHERE id = ?`, stock, id)
	return affectedOne(res, err, "item", id)
}

// UpdateItem rewrites every mutable column of a row, keeping its position.
func (s *Store) UpdateItem(ctx context.Context, item inventory.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_items SET
			system_name = ?, display_name = ?, category = ?, serial = ?,
			initial_stock = ?, current_stock = ?
		WHERE id = ?`,
		item.SystemName, item.DisplayName, string(item.Category), item.Serial,
		item.InitialStock, item.CurrentStock, item.ID,
	)
	return affectedOne(res, err, "item", item.ID)
}

// DeleteItem removes a catalog row.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, id)
	return affectedOne(res, err, "item", id)
}

func scanItem(row scanner) (inventory.CatalogItem, error) {
	var item inventory.CatalogItem
	var category, createdAt string
	err := row.Scan(&item.ID, &item.SystemName, &item.DisplayName, &category, &item.Serial,
		&item.InitialStock, &item.CurrentStock, &createdAt)
	if err != nil {
		return item, err
	}
	item.Category = inventory.Category(category)
	item.CreatedAt = parseTime(createdAt)
	return item, nil
}

// =============================================================================
// LEDGER (inventory.LedgerStore)
// =============================================================================

const entryColumns = `operation_id, issued_at, holder_id, holder_name, system_name, display_name,
	serial, quantity, category, status, issue_photo_ref, return_photo_ref, returned_at, damage_description`

// AppendEntry appends a ledger entry.
func (s *Store) AppendEntry(ctx context.Context, e inventory.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OperationID, formatTime(e.IssuedAt), e.HolderID, e.HolderName, e.SystemName, e.DisplayName,
		e.Serial, e.Quantity, string(e.Category), string(e.Status), e.IssuePhotoRef, e.ReturnPhotoRef,
		nullTime(e.ReturnedAt), e.DamageDescription,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("operation %q already exists", e.OperationID)
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a ledger entry by operation id.
func (s *Store) GetEntry(ctx context.Context, operationID string) (*inventory.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE operation_id = ?`, operationID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns the whole ledger in insertion order.
func (s *Store) ListEntries(ctx context.Context) ([]inventory.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []inventory.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateEntry writes the mutable fields of an entry: status, return
// timestamp and photo references.
func (s *Store) UpdateEntry(ctx context.Context, e inventory.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries SET
			status = ?, returned_at = ?, issue_photo_ref = ?, return_photo_ref = ?, damage_description = ?
		WHERE operation_id = ?`,
		string(e.Status), nullTime(e.ReturnedAt), e.IssuePhotoRef, e.ReturnPhotoRef, e.DamageDescription,
		e.OperationID,
	)
	return affectedOne(res, err, "operation", e.OperationID)
}

func scanEntry(row scanner) (inventory.LedgerEntry, error) {
	var e inventory.LedgerEntry
	var issuedAt, category, status string
	var returnedAt sql.NullString
	err := row.Scan(&e.OperationID, &issuedAt, &e.HolderID, &e.HolderName, &e.SystemName, &e.DisplayName,
		&e.Serial, &e.Quantity, &category, &status, &e.IssuePhotoRef, &e.ReturnPhotoRef,
		&returnedAt, &e.DamageDescription)
	if err != nil {
		return e, err
	}
	e.IssuedAt = parseTime(issuedAt)
	e.Category = inventory.Category(category)
	e.Status = inventory.Status(status)
	if returnedAt.Valid {
		t := parseTime(returnedAt.String)
		e.ReturnedAt = &t
	}
	return e, nil
}

// =============================================================================
// DIRECTORY (inventory.PersonDirectory)
// =============================================================================

// AddPerson appends a directory record.
func (s *Store) AddPerson(ctx context.Context, p inventory.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO persons (id, name, phone, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Phone, formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("person %q already exists", p.ID)
		}
		return fmt.Errorf("failed to add person: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by id.
func (s *Store) GetPerson(ctx context.Context, id string) (*inventory.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p inventory.Person
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, created_at FROM persons WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Phone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// ListPersons returns the directory in insertion order.
func (s *Store) ListPersons(ctx context.Context) ([]inventory.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, phone, created_at FROM persons ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persons := []inventory.Person{}
	for rows.Next() {
		var p inventory.Person
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"ledger_entries", "catalog_items", "persons"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

func affectedOne(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &inventory.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
