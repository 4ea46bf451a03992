/*
handlers.go - HTTP API handlers for the tool room ledger

PURPOSE:
  Exposes inventory.Engine over JSON. Handles HTTP request/response,
  decoding and error mapping; every rule lives in the engine.

ENDPOINTS:
  Bootstrap:
    GET    /api/initial-data           Persons, catalog and damage in one call

  Catalog:
    GET    /api/catalog                All unit rows, sorted by display name
    GET    /api/catalog/grouped        Rows folded by display name
    GET    /api/catalog/units          In-stock units of ?display_name=
    POST   /api/catalog                Add a unit row
    POST   /api/catalog/merge          Merge duplicate rows

  Directory:
    GET    /api/persons                List people
    POST   /api/persons                Add a person

  Operations:
    POST   /api/checkout               Issue/consume a batch for one holder
    POST   /api/returns/{id}           Return one loan
    POST   /api/returns                Return many loans (success count only)
    POST   /api/damage                 Report damaged units

  Reports:
    GET    /api/log                    Ledger, newest activity first
    GET    /api/log.xlsx               Same, as a workbook
    GET    /api/summary                Stock picture per system name
    GET    /api/damage                 Damaged entries

  Admin:
    POST   /api/admin/import-legacy    Multipart upload of the legacy loan sheet

  Scenarios (demo):
    GET    /api/scenarios              List available scenarios
    GET    /api/scenarios/current      Last loaded scenario, or null
    POST   /api/scenarios/load         Reset the store and load a scenario

ERROR HANDLING:
  Errors are returned in the failure envelope with an HTTP status derived
  from the error kind:
  - 400: Malformed body or parameters
  - 404: Unknown person, operation or item
  - 409: Validation (insufficient stock, invalid transition)
  - 503: Lock wait bound elapsed; Retry-After is set, nothing was mutated
  - 500: Storage failures

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/toolroom/inventory"
	"github.com/warp/toolroom/sheets"
)

const (
	maxJSONBody   = 32 << 20
	maxUploadBody = 32 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *inventory.Engine
	Log    *slog.Logger

	// Location renders dates in exports and reads naive legacy dates.
	Location *time.Location

	scenario scenarioState
}

// NewHandler creates a new handler over engine.
func NewHandler(engine *inventory.Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Engine: engine, Log: log, Location: time.UTC}
}

// =============================================================================
// BOOTSTRAP & CATALOG
// =============================================================================

// GetInitialData returns the three cached datasets a client loads on start.
func (h *Handler) GetInitialData(w http.ResponseWriter, r *http.Request) {
	data, err := h.Engine.InitialData(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load initial data", err)
		return
	}
	writeJSON(w, http.StatusOK, InitialDataResponse{Success: true, InitialData: data})
}

// GetCatalog lists every unit row.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.Engine.Catalog(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Success: true, Items: items})
}

// GetCatalogGrouped lists the catalog folded by display name.
func (h *Handler) GetCatalogGrouped(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Engine.CatalogGrouped(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, GroupedCatalogResponse{Success: true, Groups: groups})
}

// GetAvailableUnits lists in-stock rows for one display name.
func (h *Handler) GetAvailableUnits(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("display_name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "display_name is required", nil)
		return
	}
	units, err := h.Engine.AvailableUnits(r.Context(), name)
	if err != nil {
		h.fail(w, r, "Failed to load units", err)
		return
	}
	if units == nil {
		units = []inventory.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Success: true, Items: units})
}

// AddCatalogItem appends a unit row.
func (h *Handler) AddCatalogItem(w http.ResponseWriter, r *http.Request) {
	var req AddCatalogItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := h.Engine.AddCatalogItem(r.Context(), inventory.NewItem{
		SystemName:   req.SystemName,
		DisplayName:  req.DisplayName,
		Category:     req.Category,
		Serial:       req.Serial,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		h.fail(w, r, "Failed to add catalog item", err)
		return
	}
	writeJSON(w, http.StatusCreated, CatalogItemResponse{Success: true, Item: item})
}

// MergeDuplicates collapses duplicate catalog rows.
func (h *Handler) MergeDuplicates(w http.ResponseWriter, r *http.Request) {
	merged, err := h.Engine.MergeDuplicates(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to merge catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{Success: true, Merged: merged})
}

// =============================================================================
// DIRECTORY
// =============================================================================

// ListPersons returns the directory sorted by name.
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.Engine.Persons(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load persons", err)
		return
	}
	writeJSON(w, http.StatusOK, PersonsResponse{Success: true, Persons: persons})
}

// AddPerson registers a person.
func (h *Handler) AddPerson(w http.ResponseWriter, r *http.Request) {
	var req AddPersonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.Engine.AddPerson(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.fail(w, r, "Failed to add person", err)
		return
	}
	writeJSON(w, http.StatusCreated, PersonResponse{Success: true, Person: p})
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CheckoutBatch issues a batch. Lines without stock come back as warnings
// in a successful response.
func (h *Handler) CheckoutBatch(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HolderID == "" {
		writeError(w, http.StatusBadRequest, "holder_id is required", nil)
		return
	}
	lines, err := req.lineItems()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid photo", err)
		return
	}
	result, err := h.Engine.CheckoutBatch(r.Context(), req.HolderID, lines)
	if err != nil {
		h.fail(w, r, "Checkout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CheckoutResponse{Success: true, CheckoutResult: result})
}

// ReturnOne returns a single loan. The body is optional.
func (h *Handler) ReturnOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ReturnOneRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	photo, err := decodePhoto(req.Photo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid photo", err)
		return
	}
	entry, err := h.Engine.ReturnOne(r.Context(), id, photo)
	if err != nil {
		h.fail(w, r, "Return failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ReturnOneResponse{Success: true, Entry: entry})
}

// ReturnBatch returns many loans and reports only how many succeeded.
func (h *Handler) ReturnBatch(w http.ResponseWriter, r *http.Request) {
	var req ReturnBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	photos, err := req.photos()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid photo", err)
		return
	}
	n, err := h.Engine.ReturnBatch(r.Context(), req.IDs, photos)
	if err != nil {
		h.fail(w, r, "Return failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ReturnBatchResponse{Success: true, Returned: n})
}

// ReportDamage records damaged units.
func (h *Handler) ReportDamage(w http.ResponseWriter, r *http.Request) {
	var req ReportDamageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.Engine.ReportDamage(r.Context(), req.SystemName, req.Serial, req.Description, req.Quantity)
	if err != nil {
		h.fail(w, r, "Damage report failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, ReportDamageResponse{Success: true, OperationID: id})
}

// =============================================================================
// REPORTS
// =============================================================================

// GetLog returns the ledger, newest activity first.
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.Log(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load log", err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Success: true, Entries: entries})
}

// ExportLog streams the ledger as an XLSX workbook.
func (h *Handler) ExportLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.Log(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load log", err)
		return
	}
	var buf bytes.Buffer
	if err := sheets.WriteLedger(&buf, entries, h.Location); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render workbook", err)
		return
	}
	name := fmt.Sprintf("ledger-%s.xlsx", time.Now().In(h.Location).Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetSummary returns the aggregate stock report.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Engine.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Success: true, Summary: summary})
}

// GetDamageReport lists damaged entries.
func (h *Handler) GetDamageReport(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.DamageReport(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load damage report", err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Success: true, Entries: entries})
}

// =============================================================================
// ADMIN
// =============================================================================

// ImportLegacy replays an uploaded legacy loan sheet (form field "file").
func (h *Handler) ImportLegacy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Multipart field \"file\" is required", err)
		return
	}
	defer file.Close()

	rows, bad, err := sheets.ReadLegacyLedger(file, h.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable workbook", err)
		return
	}
	imported, skipped, err := h.Engine.ImportLegacy(r.Context(), rows)
	if err != nil {
		h.fail(w, r, "Import failed", err)
		return
	}
	resp := ImportResponse{Success: true, Imported: imported, Skipped: skipped + len(bad)}
	for _, b := range bad {
		resp.Invalid = append(resp.Invalid, b.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fail maps an engine error to its status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		h.Log.Error(message, "path", r.URL.Path, "err", err)
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeError(w, status, message, err)
}

const retryAfterSeconds = 2

func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrValidation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
