/*
scenarios_test.go - Demo scenario tests

Each scenario must generate a snapshot into the data directory, run it,
and save the run. The scenario shapes are asserted loosely (plenty vs
scarcity vs lookahead pressure) since the datasets are seeded but the
assertions should survive retuning.
*/
package api_test

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/allocation-engine/api"
)

func loadScenario(t *testing.T, srv *testServer, id string) api.RunResponse {
	t.Helper()

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "payload: %s", data)

	var out api.RunResponse
	decodeJSON(t, data, &out)
	return out
}

func TestListScenarios(t *testing.T) {
	srv := newTestServer(t)

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []api.ScenarioDTO
	decodeJSON(t, data, &got)

	require.Len(t, got, 3)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"baseline", "shortage", "lookahead-squeeze"}, ids)
	for _, s := range got {
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Description)
	}
}

func TestLoadScenarioBaseline(t *testing.T) {
	// GIVEN a fresh server
	srv := newTestServer(t)

	// WHEN the baseline scenario is loaded
	out := loadScenario(t, srv, "baseline")

	// THEN a full-horizon run is saved
	assert.Len(t, out.Summaries, 12, "demo horizon is twelve weeks")
	assert.Equal(t, 60, out.Run.OrderCount)
	assert.NotEmpty(t, out.Run.SupplySource, "scenario runs from its written snapshot")

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/api/runs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []api.RunDTO
	decodeJSON(t, data, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, out.Run.ID, runs[0].ID)

	// AND the snapshot pair landed in the data directory
	for _, pattern := range []string{"supply_data_*.csv", "demand_data_*.csv", "roster.yaml"} {
		matches, err := filepath.Glob(filepath.Join(srv.dataDir, pattern))
		require.NoError(t, err)
		assert.Len(t, matches, 1, "expected one %s", pattern)
	}
}

func TestLoadScenarioDeterministic(t *testing.T) {
	// GIVEN the same scenario loaded twice
	srv := newTestServer(t)
	first := loadScenario(t, srv, "baseline")
	second := loadScenario(t, srv, "baseline")

	// THEN the seeded dataset produces identical totals under new run ids
	assert.NotEqual(t, first.Run.ID, second.Run.ID)
	assert.Equal(t, first.Run.TotalDemand, second.Run.TotalDemand)
	assert.Equal(t, first.Run.TotalAllocated, second.Run.TotalAllocated)
	assert.Equal(t, first.Summaries, second.Summaries)
}

func TestLoadScenarioShortage(t *testing.T) {
	// The shortage preset must leave real unmet demand behind.
	srv := newTestServer(t)
	out := loadScenario(t, srv, "shortage")

	assert.Less(t, out.Run.TotalAllocated, out.Run.TotalDemand, "shortage must not clear the book")
	assert.Greater(t, out.OpenOrders, 0)
}

func TestLoadScenarioLookaheadSqueeze(t *testing.T) {
	// The squeeze preset must make the lookahead reservation bind in at
	// least one week; with falling supply it should dominate.
	srv := newTestServer(t)
	out := loadScenario(t, srv, "lookahead-squeeze")

	lookahead := 0
	for _, s := range out.Summaries {
		if s.ConstrainingSubcomponent == "lookahead" {
			lookahead++
		}
	}
	assert.Greater(t, lookahead, 0, "falling supply should trigger reservations")
}

func TestLoadScenarioUnknown(t *testing.T) {
	srv := newTestServer(t)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "mystery"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeJSON(t, data, &errResp)
	assert.Contains(t, errResp.Error, "mystery")
}

func TestLoadScenarioMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/scenarios/load", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty body is not a scenario selection")
}
