/*
store.go - Persistence interface for run history

PURPOSE:
  Defines the interface between the engine's outputs and storage. A run is
  saved once, whole, and never modified afterwards: the record plus its
  summaries, tier shares, and per-order results. Different implementations
  can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  - SaveRun(): the only write. Rejects an id that already exists.
  - NO Update() or Delete() methods exist. A corrected run is a new run.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite-backed, used by the daemon
  - alloc/store/memory.go:  in-memory, used by tests and the CLI

SEE ALSO:
  - engine.go: produces the RunOutput being saved
*/
package alloc

import (
	"context"
	"time"
)

// =============================================================================
// RUN RECORDS
// =============================================================================

type RunID string

// RunRecord is the run-level metadata stored alongside the outputs.
type RunRecord struct {
	ID           RunID
	CreatedAt    time.Time
	SupplySource string // snapshot file name, or "" for inline input
	DemandSource string
	FirstPeriod  Period
	LastPeriod   Period
	OrderCount   int
	TotalDemand  int64 // total quantity ordered across all orders
	TotalAllocated int64
}

// NewRunRecord derives the run-level metadata from a finished run. The
// period span comes from the summaries, which the engine emits in
// chronological order, one per supply week.
func NewRunRecord(id RunID, createdAt time.Time, supplySource, demandSource string, orders []*DemandOrder, out *RunOutput) RunRecord {
	rec := RunRecord{
		ID:           id,
		CreatedAt:    createdAt,
		SupplySource: supplySource,
		DemandSource: demandSource,
		OrderCount:   len(orders),
	}
	if n := len(out.Summaries); n > 0 {
		rec.FirstPeriod = out.Summaries[0].Period
		rec.LastPeriod = out.Summaries[n-1].Period
	}
	for _, o := range orders {
		rec.TotalDemand += o.QtyOrdered
	}
	for _, s := range out.Summaries {
		rec.TotalAllocated += s.TotalAllocated
	}
	return rec
}

// ResultFilter narrows result queries. Nil fields match everything.
type ResultFilter struct {
	Period  *Period
	Tier    *PriorityTier
	OrderID *OrderID
}

// Matches reports whether one result row passes the filter.
func (f ResultFilter) Matches(r AllocationResult) bool {
	if f.Period != nil && !r.Period.Equal(*f.Period) {
		return false
	}
	if f.Tier != nil && r.Tier != *f.Tier {
		return false
	}
	if f.OrderID != nil && r.OrderID != *f.OrderID {
		return false
	}
	return true
}

// =============================================================================
// RUN STORE - Interface for run history (append-only)
// =============================================================================

// RunStore persists completed runs. Saved runs are immutable; there is no
// update and no delete.
type RunStore interface {
	// SaveRun persists a run with all of its outputs atomically.
	// Returns ErrDuplicateRunID if the id exists.
	SaveRun(ctx context.Context, rec RunRecord, out *RunOutput) error

	// GetRun returns one run's metadata. ErrRunNotFound if absent.
	GetRun(ctx context.Context, id RunID) (*RunRecord, error)

	// ListRuns returns all runs, newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	// Results returns a run's allocation rows in engine order, filtered.
	Results(ctx context.Context, id RunID, filter ResultFilter) ([]AllocationResult, error)

	// Summaries returns a run's period summaries in period order.
	Summaries(ctx context.Context, id RunID) ([]PeriodSummary, error)

	// TierAllocations returns a run's waterfall rows in period+tier order.
	TierAllocations(ctx context.Context, id RunID) ([]TierAllocation, error)
}
