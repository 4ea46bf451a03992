/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Ledger, catalog and
  directory records are returned as the inventory types themselves (they
  carry snake_case json tags); this file holds request bodies and the
  response envelopes.

ENVELOPE:
  Every response carries "success". Successful payload fields sit next to
  it, errors carry "error" (and optionally "details"):

    {"success": true, "entries": [...], "warnings": [...]}
    {"success": false, "error": "Insufficient stock", "details": "..."}

PHOTOS:
  Photos travel as base64 strings, optionally as data URLs
  ("data:image/jpeg;base64,..."). An empty string means no photo.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/warp/toolroom/inventory"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AddPersonRequest is the body of POST /api/persons.
type AddPersonRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// AddCatalogItemRequest is the body of POST /api/catalog.
type AddCatalogItemRequest struct {
	SystemName   string `json:"system_name"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category"`
	Serial       string `json:"serial,omitempty"`
	InitialStock int    `json:"initial_stock"`
}

// CheckoutLineRequest is one requested tool.
type CheckoutLineRequest struct {
	DisplayName string `json:"display_name"`
	Serial      string `json:"serial,omitempty"`
	Quantity    int    `json:"quantity"`
	Photo       string `json:"photo,omitempty"`
}

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	HolderID string                `json:"holder_id"`
	Items    []CheckoutLineRequest `json:"items"`
}

// ReturnOneRequest is the optional body of POST /api/returns/{id}.
type ReturnOneRequest struct {
	Photo string `json:"photo,omitempty"`
}

// ReturnBatchRequest is the body of POST /api/returns.
type ReturnBatchRequest struct {
	IDs    []string          `json:"ids"`
	Photos map[string]string `json:"photos,omitempty"`
}

// ReportDamageRequest is the body of POST /api/damage.
type ReportDamageRequest struct {
	SystemName  string `json:"system_name"`
	Serial      string `json:"serial,omitempty"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type InitialDataResponse struct {
	Success bool `json:"success"`
	inventory.InitialData
}

type CatalogResponse struct {
	Success bool                    `json:"success"`
	Items   []inventory.CatalogItem `json:"items"`
}

type GroupedCatalogResponse struct {
	Success bool                     `json:"success"`
	Groups  []inventory.CatalogGroup `json:"groups"`
}

type CatalogItemResponse struct {
	Success bool                  `json:"success"`
	Item    inventory.CatalogItem `json:"item"`
}

type PersonsResponse struct {
	Success bool               `json:"success"`
	Persons []inventory.Person `json:"persons"`
}

type PersonResponse struct {
	Success bool             `json:"success"`
	Person  inventory.Person `json:"person"`
}

// EntriesResponse serves the log, the damage report and unit listings.
type EntriesResponse struct {
	Success bool                    `json:"success"`
	Entries []inventory.LedgerEntry `json:"entries"`
}

type SummaryResponse struct {
	Success bool `json:"success"`
	inventory.Summary
}

type CheckoutResponse struct {
	Success bool `json:"success"`
	inventory.CheckoutResult
}

type ReturnOneResponse struct {
	Success bool                  `json:"success"`
	Entry   inventory.LedgerEntry `json:"entry"`
}

type ReturnBatchResponse struct {
	Success  bool `json:"success"`
	Returned int  `json:"returned"`
}

type ReportDamageResponse struct {
	Success     bool   `json:"success"`
	OperationID string `json:"operation_id"`
}

type MergeResponse struct {
	Success bool `json:"success"`
	Merged  int  `json:"merged"`
}

type ImportResponse struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Invalid  []string `json:"invalid,omitempty"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ScenariosResponse struct {
	Success   bool          `json:"success"`
	Scenarios []ScenarioDTO `json:"scenarios"`
}

type CurrentScenarioResponse struct {
	Success  bool         `json:"success"`
	Scenario *ScenarioDTO `json:"scenario"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// decodePhoto accepts raw base64 or a data URL.
func decodePhoto(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("photo is not valid base64: %w", err)
	}
	return data, nil
}

func (r CheckoutRequest) lineItems() ([]inventory.LineItem, error) {
	lines := make([]inventory.LineItem, 0, len(r.Items))
	for i, it := range r.Items {
		photo, err := decodePhoto(it.Photo)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		lines = append(lines, inventory.LineItem{
			DisplayName: it.DisplayName,
			Serial:      it.Serial,
			Quantity:    it.Quantity,
			Photo:       photo,
		})
	}
	return lines, nil
}

func (r ReturnBatchRequest) photos() (map[string][]byte, error) {
	out := make(map[string][]byte, len(r.Photos))
	for id, s := range r.Photos {
		data, err := decodePhoto(s)
		if err != nil {
			return nil, fmt.Errorf("photos[%s]: %w", id, err)
		}
		if data != nil {
			out[id] = data
		}
	}
	return out, nil
}
