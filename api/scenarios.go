/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that generate a realistic snapshot into the
	data directory and run it immediately. Each scenario shapes the supply
	curve differently so a demo can show the engine's three regimes: plenty,
	scarcity, and lookahead pressure.

AVAILABLE SCENARIOS:

	baseline:          rising supply, mild noise; high tiers fill every week
	shortage:          flat supply with frequent dips; deep backlog carry
	lookahead-squeeze: falling supply against steady demand; the lookahead
	                   reservation binds most weeks

HOW SCENARIOS WORK:
 1. Build the mockgen config for the scenario id
 2. Generate the dataset and write it as a timestamped snapshot pair
 3. Ingest the snapshot back (same path production data takes)
 4. Run the engine and save the run
 5. Tell the snapshot watcher, if any, so the poll doesn't re-run it

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "shortage"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a config case to scenarioConfig

NOTE:

	Scenario datasets are seeded, so loading the same scenario twice
	produces the same snapshot contents (under new file names) and a new
	run with identical outputs.

SEE ALSO:
  - handlers.go: executeRun, error helpers
  - mockgen/mockgen.go: dataset generation
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/allocation-engine/ingest"
	"github.com/warp/allocation-engine/mockgen"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "baseline",
		Name:        "Baseline",
		Description: "Rising supply with mild noise; most tiers fill and backlog stays shallow",
	},
	{
		ID:          "shortage",
		Name:        "Supply Shortage",
		Description: "Flat supply with frequent one-week dips; backlog deepens and low tiers starve",
	},
	{
		ID:          "lookahead-squeeze",
		Name:        "Lookahead Squeeze",
		Description: "Falling supply against steady demand; lookahead reservations constrain most weeks",
	},
}

// scenarioConfig returns the generator config for a scenario id.
func scenarioConfig(id string) (mockgen.Config, bool) {
	switch id {
	case "baseline":
		return mockgen.DemoConfig(), true

	case "shortage":
		cfg := mockgen.DemoConfig()
		cfg.Seed = 7
		cfg.SupplyBase = 60
		cfg.SupplyRamp = 0
		cfg.Noise = 20
		cfg.DipChance = 0.45
		return cfg, true

	case "lookahead-squeeze":
		cfg := mockgen.DemoConfig()
		cfg.Seed = 11
		cfg.SupplyBase = 140
		cfg.SupplyRamp = -9
		cfg.Noise = 5
		cfg.DipChance = 0
		return cfg, true
	}
	return mockgen.Config{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario generates a scenario snapshot into the data directory and
// runs it.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, ok := scenarioConfig(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}

	gen, err := mockgen.New(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to configure scenario", err)
		return
	}
	snap, err := gen.WriteSnapshot(h.DataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to write scenario snapshot", err)
		return
	}

	// Load the snapshot back through the ingestion adapter so scenario
	// runs exercise exactly the path production exports take.
	in, err := ingest.LoadSnapshot(snap)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load scenario snapshot", err)
		return
	}

	resp, err := h.executeRun(r.Context(), snap.SupplyName(), snap.DemandName(), in.Supply, in.Orders)
	if err != nil {
		writeError(w, statusFor(err), "Scenario run failed", err)
		return
	}

	if h.Watcher != nil {
		h.Watcher.MarkSeen(snap)
	}

	h.Log.Info("scenario loaded", "scenario", req.ScenarioID, "run", resp.Run.ID)
	writeJSON(w, http.StatusCreated, resp)
}
