/*
Package inventory provides the tool room ledger and its mutation engine.

PURPOSE:
  Tracks a shared pool of tools and consumable supplies that members borrow,
  consume and occasionally damage. The package owns three things:
  - the catalog: one row per trackable unit (or unit type) with a stock count
  - the ledger: one entry per issue, consumption, return or damage event
  - the engine: the only code path allowed to change either of them

KEY CONCEPTS IN THIS FILE (types.go):
  - CatalogItem: a stock-bearing unit row. Several rows may share a display
    name when they are distinct physical units of the same tool type.
  - LedgerEntry: an operation with a lifecycle status. Holder name, system
    name and serial are frozen copies taken when the entry is written.
  - Person: directory record used to resolve the holder of a checkout.

STOCK INVARIANTS:
  1. CurrentStock is never negative.
  2. For a display-name group, the sum of CurrentStock equals the units
     available: initial stock, minus open issued loans, minus units removed
     by damage that no return has reconciled.

LIFECYCLE:
  issued   --return / damage cascade-->  returned
  consumed   (terminal at creation)
  damaged    (terminal at creation, standalone record)

SEE ALSO:
  - engine.go: lock + cache wiring shared by every mutation
  - checkout.go, returns.go, damage.go: the state machine
  - serial.go: unit resolution
*/
package inventory

import (
	"strings"
	"time"
)

// =============================================================================
// CATEGORIES & STATUSES
// =============================================================================

// Category classifies how a catalog item leaves the shelf.
type Category string

const (
	// CategoryReusable items are lent out and expected back.
	CategoryReusable Category = "reusable"
	// CategoryConsumable items are used up; checkout is terminal.
	CategoryConsumable Category = "consumable"
	// CategoryTracked items are lent like reusable ones but are
	// individually accounted for (typically serial-numbered).
	CategoryTracked Category = "tracked"
)

// ParseCategory normalizes user input. Blank input means reusable.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case "", CategoryReusable:
		return CategoryReusable, true
	case CategoryConsumable:
		return CategoryConsumable, true
	case CategoryTracked:
		return CategoryTracked, true
	}
	return "", false
}

// Status is the lifecycle state of a ledger entry.
type Status string

const (
	StatusIssued   Status = "issued"
	StatusConsumed Status = "consumed"
	StatusReturned Status = "returned"
	StatusDamaged  Status = "damaged"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s != StatusIssued
}

// =============================================================================
// RECORDS
// =============================================================================

// CatalogItem is one stock-bearing row.
type CatalogItem struct {
	ID           string    `json:"id"`
	SystemName   string    `json:"system_name"`
	DisplayName  string    `json:"display_name"`
	Category     Category  `json:"category"`
	Serial       string    `json:"serial,omitempty"` // free text as entered
	InitialStock int       `json:"initial_stock"`
	CurrentStock int       `json:"current_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

// EffectiveSerial is the serial extracted from the free-text field.
func (c CatalogItem) EffectiveSerial() string {
	return ExtractSerial(c.Serial)
}

// LedgerEntry is one operation. Everything except the status and return
// fields is a snapshot taken at write time and never re-resolved.
type LedgerEntry struct {
	OperationID       string     `json:"operation_id"`
	IssuedAt          time.Time  `json:"issued_at"`
	HolderID          string     `json:"holder_id,omitempty"`
	HolderName        string     `json:"holder_name,omitempty"`
	SystemName        string     `json:"system_name"`
	DisplayName       string     `json:"display_name,omitempty"`
	Serial            string     `json:"serial,omitempty"`
	Quantity          int        `json:"quantity"`
	Category          Category   `json:"category"`
	Status            Status     `json:"status"`
	IssuePhotoRef     string     `json:"issue_photo_ref,omitempty"`
	ReturnPhotoRef    string     `json:"return_photo_ref,omitempty"`
	ReturnedAt        *time.Time `json:"returned_at,omitempty"`
	DamageDescription string     `json:"damage_description,omitempty"`
}

// LastActivity is the most recent timestamp on the entry.
func (e LedgerEntry) LastActivity() time.Time {
	if e.ReturnedAt != nil && e.ReturnedAt.After(e.IssuedAt) {
		return *e.ReturnedAt
	}
	return e.IssuedAt
}

// Person is a directory record.
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// REQUEST / RESULT TYPES
// =============================================================================

// LineItem is one requested tool in a checkout batch.
type LineItem struct {
	DisplayName string
	Serial      string // preferred unit; optional
	Quantity    int
	Photo       []byte // optional issue photo
}

// Warning explains why a checkout line was skipped.
type Warning struct {
	DisplayName string `json:"display_name"`
	Serial      string `json:"serial,omitempty"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Message     string `json:"message"`
}

// CheckoutResult is the per-line outcome of a batch.
type CheckoutResult struct {
	Entries  []LedgerEntry `json:"entries"`
	Warnings []Warning     `json:"warnings"`
}

// Dataset names a cached read model.
type Dataset string

const (
	DatasetCatalog   Dataset = "catalog"
	DatasetDirectory Dataset = "directory"
	DatasetDamage    Dataset = "damage"
)
