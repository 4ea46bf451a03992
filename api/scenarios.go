/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	tool room data for testing and demos. Every scenario goes through the
	engine, so stock and ledger invariants hold exactly as in production.

AVAILABLE SCENARIOS:

	workshop:       Directory and catalog only, nothing on loan
	busy-week:      Open loans, consumed supplies and one completed return
	damage-cascade: Saw damaged while on loan; the earliest loan is closed

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Add people and catalog rows
 3. Replay checkouts, returns and damage reports

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-week"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
	Stores that cannot be reset (none shipped today) reject the call.

SEE ALSO:
  - server.go: routes
  - inventory/engine.go: Reset
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/warp/toolroom/inventory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "workshop",
		Name:        "Workshop",
		Description: "Three members, serial-numbered drills, saws and consumables; nothing on loan",
	},
	{
		ID:          "busy-week",
		Name:        "Busy Week",
		Description: "Open loans, consumed tape and gloves, one completed return",
	},
	{
		ID:          "damage-cascade",
		Name:        "Damage Cascade",
		Description: "Two saws damaged while on loan; the earliest open saw loans are closed",
	},
}

// scenarioState remembers the last loaded scenario.
type scenarioState struct {
	mu      sync.Mutex
	current string
}

func (s *scenarioState) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *scenarioState) set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ScenariosResponse{Success: true, Scenarios: scenarios})
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	resp := CurrentScenarioResponse{Success: true}
	id := h.scenario.get()
	for i := range scenarios {
		if scenarios[i].ID == id {
			resp.Scenario = &scenarios[i]
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var load func(ctx context.Context, e *inventory.Engine) error
	switch req.ScenarioID {
	case "workshop":
		load = func(ctx context.Context, e *inventory.Engine) error {
			_, err := loadWorkshop(ctx, e)
			return err
		}
	case "busy-week":
		load = loadBusyWeek
	case "damage-cascade":
		load = loadDamageCascade
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.Engine.Reset(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset store", err)
		return
	}
	h.scenario.set("")
	if err := load(r.Context(), h.Engine); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	h.scenario.set(req.ScenarioID)
	h.Log.Info("scenario loaded", "scenario_id", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"scenario_id": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// workshop holds the ids the richer scenarios build on.
type workshop struct {
	ada, bo, chen string
}

func loadWorkshop(ctx context.Context, e *inventory.Engine) (workshop, error) {
	var ws workshop
	people := []struct {
		name, phone string
		id          *string
	}{
		{"Ada Lovelace", "+44 20 7946 0001", &ws.ada},
		{"Bo Svensson", "+46 8 123 456", &ws.bo},
		{"Chen Wei", "", &ws.chen},
	}
	for _, p := range people {
		person, err := e.AddPerson(ctx, p.name, p.phone)
		if err != nil {
			return ws, fmt.Errorf("add person %s: %w", p.name, err)
		}
		*p.id = person.ID
	}

	items := []inventory.NewItem{
		{SystemName: "drill-18v", DisplayName: "Cordless drill 18V", Category: "tracked", Serial: "Bosch S/N: DR-1001", InitialStock: 1},
		{SystemName: "drill-18v", DisplayName: "Cordless drill 18V", Category: "tracked", Serial: "Bosch S/N: DR-1002", InitialStock: 1},
		{SystemName: "circular-saw", DisplayName: "Circular saw", Category: "reusable", InitialStock: 3},
		{SystemName: "tape-measure", DisplayName: "Tape measure 5m", Category: "reusable", InitialStock: 4},
		{SystemName: "duct-tape", DisplayName: "Duct tape", Category: "consumable", InitialStock: 20},
		{SystemName: "gloves", DisplayName: "Work gloves (pair)", Category: "consumable", InitialStock: 50},
	}
	for _, it := range items {
		if _, err := e.AddCatalogItem(ctx, it); err != nil {
			return ws, fmt.Errorf("add item %s: %w", it.DisplayName, err)
		}
	}
	return ws, nil
}

func loadBusyWeek(ctx context.Context, e *inventory.Engine) error {
	ws, err := loadWorkshop(ctx, e)
	if err != nil {
		return err
	}

	if _, err := e.CheckoutBatch(ctx, ws.ada, []inventory.LineItem{
		{DisplayName: "Cordless drill 18V", Serial: "DR-1002", Quantity: 1},
		{DisplayName: "Circular saw", Quantity: 1},
		{DisplayName: "Work gloves (pair)", Quantity: 2},
	}); err != nil {
		return err
	}
	bo, err := e.CheckoutBatch(ctx, ws.bo, []inventory.LineItem{
		{DisplayName: "Tape measure 5m", Quantity: 2},
		{DisplayName: "Duct tape", Quantity: 3},
	})
	if err != nil {
		return err
	}
	if _, err := e.CheckoutBatch(ctx, ws.chen, []inventory.LineItem{
		{DisplayName: "Cordless drill 18V", Quantity: 1},
	}); err != nil {
		return err
	}

	// Bo brings the tape measures back.
	for _, entry := range bo.Entries {
		if entry.Status == inventory.StatusIssued {
			if _, err := e.ReturnOne(ctx, entry.OperationID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadDamageCascade(ctx context.Context, e *inventory.Engine) error {
	ws, err := loadWorkshop(ctx, e)
	if err != nil {
		return err
	}

	for _, holder := range []string{ws.ada, ws.bo, ws.chen} {
		if _, err := e.CheckoutBatch(ctx, holder, []inventory.LineItem{
			{DisplayName: "Circular saw", Quantity: 1},
		}); err != nil {
			return err
		}
	}

	_, err = e.ReportDamage(ctx, "circular-saw", "", "Blade guard cracked, motor smells burnt", 2)
	return err
}
