/*
Package postgres provides a PostgreSQL-backed implementation of inventory.Store.

PURPOSE:
  Multi-process deployments where several server instances share one
  database. The engine lock is still process-local, so writers must be
  routed to a single instance.

ORDERING:
  Same contract as store/sqlite: BIGSERIAL seq, every scan ORDER BY seq.

MIGRATION:
  Versioned goose migrations are embedded (migrations/*.sql) and applied on
  Open through a database/sql handle borrowed from the pgx pool.

USAGE:
  store, err := postgres.Open(ctx, "postgres://localhost/toolroom?sslmode=disable")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/warp/toolroom/inventory"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements inventory.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ inventory.Store = (*Store)(nil)

// Open connects, pings and migrates.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks the connection, for health endpoints.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Reset truncates every table (for tests).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE ledger_entries, catalog_items, persons RESTART IDENTITY`)
	return err
}

/* Catalog */

const itemColumns = `id, system_name, display_name, category, serial, initial_stock, current_stock, created_at`

func (s *Store) AddItem(ctx context.Context, item inventory.CatalogItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO catalog_items (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, item.ID, item.SystemName, item.DisplayName, string(item.Category), item.Serial,
		item.InitialStock, item.CurrentStock, item.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("item %q already exists", item.ID)
	}
	return err
}

func (s *Store) GetItem(ctx context.Context, id string) (*inventory.CatalogItem, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context) ([]inventory.CatalogItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM catalog_items ORDER BY seq`)
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

func (s *Store) SetStock(ctx context.Context, id string, stock int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE catalog_items SET current_stock = $1 WHERE id = $2`, stock, id)
	return affectedOne(tag, err, "item", id)
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.CatalogItem) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET system_name = $1, display_name = $2, category = $3, serial = $4,
		    initial_stock = $5, current_stock = $6
		WHERE id = $7
	`, item.SystemName, item.DisplayName, string(item.Category), item.Serial,
		item.InitialStock, item.CurrentStock, item.ID)
	return affectedOne(tag, err, "item", item.ID)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM catalog_items WHERE id = $1`, id)
	return affectedOne(tag, err, "item", id)
}

func scanItem(row pgx.Row) (inventory.CatalogItem, error) {
	var item inventory.CatalogItem
	var category string
	if err := row.Scan(
		&item.ID,
		&item.SystemName,
		&item.DisplayName,
		&category,
		&item.Serial,
		&item.InitialStock,
		&item.CurrentStock,
		&item.CreatedAt,
	); err != nil {
		return item, err
	}
	item.Category = inventory.Category(category)
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

/* Ledger */

const entryColumns = `operation_id, issued_at, holder_id, holder_name, system_name, display_name,
	serial, quantity, category, status, issue_photo_ref, return_photo_ref, returned_at, damage_description`

func (s *Store) AppendEntry(ctx context.Context, e inventory.LedgerEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, e.OperationID, e.IssuedAt.UTC(), e.HolderID, e.HolderName, e.SystemName, e.DisplayName,
		e.Serial, e.Quantity, string(e.Category), string(e.Status), e.IssuePhotoRef, e.ReturnPhotoRef,
		e.ReturnedAt, e.DamageDescription)
	if isUniqueViolation(err) {
		return fmt.Errorf("operation %q already exists", e.OperationID)
	}
	return err
}

func (s *Store) GetEntry(ctx context.Context, operationID string) (*inventory.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE operation_id = $1`, operationID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]inventory.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries ORDER BY seq`)
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

func (s *Store) UpdateEntry(ctx context.Context, e inventory.LedgerEntry) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ledger_entries
		SET status = $1, returned_at = $2, issue_photo_ref = $3, return_photo_ref = $4, damage_description = $5
		WHERE operation_id = $6
	`, string(e.Status), e.ReturnedAt, e.IssuePhotoRef, e.ReturnPhotoRef, e.DamageDescription, e.OperationID)
	return affectedOne(tag, err, "operation", e.OperationID)
}

func scanEntry(row pgx.Row) (inventory.LedgerEntry, error) {
	var e inventory.LedgerEntry
	var category, status string
	var returnedAt *time.Time
	if err := row.Scan(
		&e.OperationID,
		&e.IssuedAt,
		&e.HolderID,
		&e.HolderName,
		&e.SystemName,
		&e.DisplayName,
		&e.Serial,
		&e.Quantity,
		&category,
		&status,
		&e.IssuePhotoRef,
		&e.ReturnPhotoRef,
		&returnedAt,
		&e.DamageDescription,
	); err != nil {
		return e, err
	}
	e.IssuedAt = e.IssuedAt.UTC()
	e.Category = inventory.Category(category)
	e.Status = inventory.Status(status)
	if returnedAt != nil {
		t := returnedAt.UTC()
		e.ReturnedAt = &t
	}
	return e, nil
}

/* Directory */

func (s *Store) AddPerson(ctx context.Context, p inventory.Person) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persons (id, name, phone, created_at) VALUES ($1,$2,$3,$4)
	`, p.ID, p.Name, p.Phone, p.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("person %q already exists", p.ID)
	}
	return err
}

func (s *Store) GetPerson(ctx context.Context, id string) (*inventory.Person, error) {
	var p inventory.Person
	err := s.pool.QueryRow(ctx, `SELECT id, name, phone, created_at FROM persons WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) ListPersons(ctx context.Context) ([]inventory.Person, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, phone, created_at FROM persons ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persons := []inventory.Person{}
	for rows.Next() {
		var p inventory.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

func affectedOne(tag pgconn.CommandTag, err error, kind, id string) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &inventory.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
