/*
handlers.go - HTTP API handlers for the allocation service

PURPOSE:
  Exposes the allocation engine and its run history via REST API. Handles
  HTTP request/response, JSON serialization, and delegates all allocation
  semantics to the alloc package.

ENDPOINTS:
  Runs:
    POST   /api/runs                   Execute a run (latest snapshot or inline payload)
    GET    /api/runs                   List saved runs, newest first
    GET    /api/runs/{id}              Get one run's metadata
    GET    /api/runs/{id}/results      Per-order rows (?period=&tier=&order=)
    GET    /api/runs/{id}/summaries    Per-period rollups
    GET    /api/runs/{id}/tiers        Waterfall shares per period and tier
    GET    /api/runs/{id}/report.csv   Allocation report as CSV

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Generate a scenario snapshot and run it

  Health:
    GET    /api/healthz                Liveness probe

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: run history (append-only)
  - Engine: the stateless allocation engine
  - DataDir: where snapshot exports land
  - Watcher: optional, so scenario loads don't trigger a duplicate run

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (domain constructors do the real checking)
  3. Run the engine and/or query the store
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Run or snapshot not found
  - 409: Conflict (duplicate run id)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario definitions
  - watcher.go: Snapshot polling
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/allocation-engine/alloc"
	"github.com/warp/allocation-engine/ingest"
	"github.com/warp/allocation-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   alloc.RunStore
	Engine  *alloc.Engine
	DataDir string
	Log     *slog.Logger

	// Watcher, when set, is told about snapshots the scenario loader has
	// already run so the next poll doesn't run them again.
	Watcher *SnapshotWatcher
}

// NewHandler creates a handler serving runs from the given store and
// snapshot directory.
func NewHandler(store alloc.RunStore, dataDir string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Store:   store,
		Engine:  alloc.NewEngine(),
		DataDir: dataDir,
		Log:     log,
	}
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// CreateRun executes an allocation run and saves it.
// POST /api/runs
//
// With an empty body the newest snapshot pair in the data directory is
// ingested; with inline supply/orders the payload itself is the dataset
// and the run carries no source file names.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if len(req.Supply) == 0 && len(req.Orders) == 0 {
		in, err := ingest.LoadLatest(h.DataDir)
		if err != nil {
			writeError(w, statusFor(err), "Failed to load snapshot", err)
			return
		}

		resp, err := h.executeRun(ctx, in.Snapshot.SupplyName(), in.Snapshot.DemandName(), in.Supply, in.Orders)
		if err != nil {
			writeError(w, statusFor(err), "Run failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	supply, orders, err := inlineInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid inline input", err)
		return
	}

	resp, err := h.executeRun(ctx, "", "", supply, orders)
	if err != nil {
		writeError(w, statusFor(err), "Run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListRuns returns all saved runs, newest first.
// GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTOs(recs))
}

// GetRun returns one run's metadata.
// GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := alloc.RunID(chi.URLParam(r, "id"))

	rec, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*rec))
}

// GetResults returns a run's per-order allocation rows, optionally
// narrowed by query parameters.
// GET /api/runs/{id}/results?period=2026-W07&tier=P2&order=ORD-1A2B3C
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	id := alloc.RunID(chi.URLParam(r, "id"))

	filter, err := resultFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	results, err := h.Store.Results(r.Context(), id, filter)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get results", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTOs(results))
}

// GetSummaries returns a run's per-period rollups.
// GET /api/runs/{id}/summaries
func (h *Handler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	id := alloc.RunID(chi.URLParam(r, "id"))

	summaries, err := h.Store.Summaries(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTOs(summaries))
}

// GetTierAllocations returns a run's waterfall rows.
// GET /api/runs/{id}/tiers
func (h *Handler) GetTierAllocations(w http.ResponseWriter, r *http.Request) {
	id := alloc.RunID(chi.URLParam(r, "id"))

	tiers, err := h.Store.TierAllocations(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get tier allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toTierAllocationDTOs(tiers))
}

// GetReportCSV streams a run's allocation report in the same CSV shape
// the batch CLI writes.
// GET /api/runs/{id}/report.csv
func (h *Handler) GetReportCSV(w http.ResponseWriter, r *http.Request) {
	id := alloc.RunID(chi.URLParam(r, "id"))

	results, err := h.Store.Results(r.Context(), id, alloc.ResultFilter{})
	if err != nil {
		writeError(w, statusFor(err), "Failed to get results", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.AllocationsName))
	w.WriteHeader(http.StatusOK)

	if err := report.WriteAllocations(w, results); err != nil {
		// Headers are gone; the best we can do is log the broken stream.
		h.Log.Error("report stream failed", "run", id, "error", err)
	}
}

// Health is the liveness probe.
// GET /api/healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RUN EXECUTION
// =============================================================================

// executeRun runs the engine over one dataset and persists the outcome.
// Source names are the snapshot file base names, or empty for inline input.
func (h *Handler) executeRun(ctx context.Context, supplySource, demandSource string, supply []alloc.SupplyRecord, orders []*alloc.DemandOrder) (*RunResponse, error) {
	out, err := h.Engine.Run(alloc.RunInput{Supply: supply, Orders: orders})
	if err != nil {
		return nil, err
	}

	rec := alloc.NewRunRecord(alloc.RunID(uuid.NewString()), time.Now().UTC(),
		supplySource, demandSource, orders, out)
	if err := h.Store.SaveRun(ctx, rec, out); err != nil {
		return nil, err
	}

	h.Log.Info("run saved",
		"run", rec.ID,
		"supply_source", supplySource,
		"orders", rec.OrderCount,
		"total_demand", rec.TotalDemand,
		"total_allocated", rec.TotalAllocated,
		"open_orders", len(out.Backlog),
	)

	return &RunResponse{
		Run:        toRunDTO(rec),
		Summaries:  toSummaryDTOs(out.Summaries),
		OpenOrders: len(out.Backlog),
	}, nil
}

// inlineInput converts an inline request body into engine inputs. The
// alloc constructors own the validation; the first bad record aborts.
func inlineInput(req CreateRunRequest) ([]alloc.SupplyRecord, []*alloc.DemandOrder, error) {
	supply := make([]alloc.SupplyRecord, 0, len(req.Supply))
	for _, s := range req.Supply {
		period, err := alloc.ParsePeriod(s.Period)
		if err != nil {
			return nil, nil, fmt.Errorf("supply %q: %w", s.Period, err)
		}
		rec, err := alloc.NewSupplyRecord(period, s.SubcomponentA, s.SubcomponentB)
		if err != nil {
			return nil, nil, err
		}
		supply = append(supply, rec)
	}

	orders := make([]*alloc.DemandOrder, 0, len(req.Orders))
	for _, o := range req.Orders {
		period, err := alloc.ParsePeriod(o.PeriodRequested)
		if err != nil {
			return nil, nil, fmt.Errorf("order %s: %w", o.OrderID, err)
		}
		tier, err := alloc.ParseTier(o.Tier)
		if err != nil {
			return nil, nil, fmt.Errorf("order %s: %w", o.OrderID, err)
		}
		order, err := alloc.NewDemandOrder(alloc.OrderID(o.OrderID), alloc.CustomerID(o.CustomerID), o.Segment, tier, period, o.QtyOrdered)
		if err != nil {
			return nil, nil, err
		}
		orders = append(orders, order)
	}

	return supply, orders, nil
}

// resultFilter builds the store filter from query parameters. Absent
// parameters match everything.
func resultFilter(r *http.Request) (alloc.ResultFilter, error) {
	var filter alloc.ResultFilter
	q := r.URL.Query()

	if raw := q.Get("period"); raw != "" {
		period, err := alloc.ParsePeriod(raw)
		if err != nil {
			return alloc.ResultFilter{}, err
		}
		filter.Period = &period
	}
	if raw := q.Get("tier"); raw != "" {
		tier, err := alloc.ParseTier(raw)
		if err != nil {
			return alloc.ResultFilter{}, err
		}
		filter.Tier = &tier
	}
	if raw := q.Get("order"); raw != "" {
		id := alloc.OrderID(raw)
		filter.OrderID = &id
	}
	return filter, nil
}

// =============================================================================
// HELPERS
// =============================================================================

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

// statusFor maps engine, ingest, and store errors onto HTTP statuses.
// Unrecognized errors are internal faults.
func statusFor(err error) int {
	switch {
	case alloc.IsNotFound(err),
		errors.Is(err, ingest.ErrNoSnapshot),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case alloc.IsConflict(err):
		return http.StatusConflict
	case ingest.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
