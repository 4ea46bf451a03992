package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/inventory"
)

func TestListScenarios(t *testing.T) {
	ts := newTestServer(t)

	out := decode[ScenariosResponse](t, ts.do(http.MethodGet, "/api/scenarios", nil))

	assert.True(t, out.Success)
	assert.Len(t, out.Scenarios, 3)
	current := decode[CurrentScenarioResponse](t, ts.do(http.MethodGet, "/api/scenarios/current", nil))
	assert.Nil(t, current.Scenario)
}

func TestLoadScenario_ResetsStore(t *testing.T) {
	// GIVEN: Leftover data
	ts := newTestServer(t)
	ts.seed(AddCatalogItemRequest{DisplayName: "Leftover", InitialStock: 9})

	// WHEN: Loading the workshop scenario
	rec := ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "workshop"})

	// THEN: Only the scenario data remains, nothing on loan
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, ts.stockOf("Leftover"))
	persons := decode[PersonsResponse](t, ts.do(http.MethodGet, "/api/persons", nil))
	assert.Len(t, persons.Persons, 3)
	assert.Equal(t, 2, ts.stockOf("Cordless drill 18V"))

	current := decode[CurrentScenarioResponse](t, ts.do(http.MethodGet, "/api/scenarios/current", nil))
	require.NotNil(t, current.Scenario)
	assert.Equal(t, "workshop", current.Scenario.ID)
}

func TestLoadScenario_BusyWeek(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "busy-week"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Both drills out, tape measures back, consumables used up
	assert.Equal(t, 0, ts.stockOf("Cordless drill 18V"))
	assert.Equal(t, 4, ts.stockOf("Tape measure 5m"))
	assert.Equal(t, 17, ts.stockOf("Duct tape"))
	assert.Equal(t, 48, ts.stockOf("Work gloves (pair)"))

	summary := decode[SummaryResponse](t, ts.do(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, 3, summary.Totals.OnLoan)
	assert.Equal(t, 5, summary.Totals.Consumed)
}

func TestLoadScenario_DamageCascade(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "damage-cascade"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries, err := ts.engine.Log(context.Background())
	require.NoError(t, err)
	open, returned, damaged := 0, 0, 0
	for _, e := range entries {
		switch e.Status {
		case inventory.StatusIssued:
			open++
		case inventory.StatusReturned:
			returned++
		case inventory.StatusDamaged:
			damaged++
		}
	}
	assert.Equal(t, 1, open)
	assert.Equal(t, 2, returned)
	assert.Equal(t, 1, damaged)
	assert.Equal(t, 0, ts.stockOf("Circular saw"))
}

func TestLoadScenario_Unknown(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
