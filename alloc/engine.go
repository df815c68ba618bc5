/*
engine.go - Orchestration of the allocation run

PURPOSE:
  Drives the whole batch: validates the inputs, then walks the supply horizon
  strictly in chronological order, running Resolve -> Waterfall -> Distribute
  for every period and carrying the surviving backlog into the next one.
  Period t+1 consumes the backlog produced by period t and the lookahead
  reservation peeks at t+1's demand while resolving t. The sequential
  dependency is the central control-flow contract here, which is why periods
  are never processed concurrently.

EXECUTION MODEL:
  Single-threaded, single-pass, no I/O, no suspension. The only mutations are
  the grant steps on the orders passed in; everything else is returned as
  immutable snapshots. Re-running on identical inputs and backlog state
  produces identical output.

VALIDATION:
  - at least one supply record, exactly one per period, contiguous weeks
  - order ids unique across the whole input set
  - no order requested after the final supply period (nothing could ever
    allocate it); orders requested before the first period are legitimate
    aged backlog and join the first pass

SEE ALSO:
  - constraint.go, waterfall.go, fifo.go, rollover.go: the per-period steps
  - store.go: persisting run outputs
*/
package alloc

import (
	"fmt"
	"sort"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs allocation batches. It is stateless; all state lives in the
// inputs and the returned outcomes.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// RunInput is one batch: the supply horizon and every known order.
type RunInput struct {
	Supply []SupplyRecord
	Orders []*DemandOrder
}

// RunOutput collects the immutable snapshots of a full run. Backlog holds
// the orders still open after the final period.
type RunOutput struct {
	Results   []AllocationResult
	Summaries []PeriodSummary
	Tiers     []TierAllocation
	Backlog   []*DemandOrder
}

// PeriodOutcome is everything a single period's pass produces.
type PeriodOutcome struct {
	State   PeriodState // state after distribution; RemainingLimit is the unused capacity
	Summary PeriodSummary
	Tiers   []TierAllocation
	Results []AllocationResult
	Carry   []*DemandOrder // backlog for the next period
}

// =============================================================================
// FULL RUN
// =============================================================================

// Run processes every period of the horizon in chronological order.
func (e *Engine) Run(in RunInput) (*RunOutput, error) {
	supply, err := validateSupply(in.Supply)
	if err != nil {
		return nil, err
	}

	first := supply[0].Period
	last := supply[len(supply)-1].Period

	backlog, newByPeriod, newDemand, err := groupOrders(in.Orders, first, last)
	if err != nil {
		return nil, err
	}

	out := &RunOutput{}
	for i, sup := range supply {
		backlog = append(backlog, newByPeriod[sup.Period]...)

		var ahead Lookahead
		if i+1 < len(supply) {
			ahead = Lookahead{
				Supply:    &supply[i+1],
				NewDemand: newDemand[supply[i+1].Period],
			}
		}

		outcome, err := e.RunPeriod(sup, backlog, ahead)
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", sup.Period, err)
		}

		out.Results = append(out.Results, outcome.Results...)
		out.Summaries = append(out.Summaries, outcome.Summary)
		out.Tiers = append(out.Tiers, outcome.Tiers...)
		backlog = outcome.Carry
	}

	out.Backlog = backlog
	return out, nil
}

// =============================================================================
// SINGLE PERIOD
// =============================================================================

// RunPeriod executes one period's pass over an explicit backlog: resolve the
// limit, split it across tiers, pour each tier's share into its orders, then
// snapshot. The caller owns the sequencing between periods.
func (e *Engine) RunPeriod(sup SupplyRecord, backlog []*DemandOrder, ahead Lookahead) (*PeriodOutcome, error) {
	cons := ResolveConstraint(sup, ahead)

	demand, err := TierDemands(backlog)
	if err != nil {
		return nil, err
	}
	shares := AllocateTiers(cons.Limit, demand)

	byTier := make(map[PriorityTier][]*DemandOrder, tierCount)
	for _, o := range backlog {
		byTier[o.Tier] = append(byTier[o.Tier], o)
	}

	grants := make(map[OrderID]int64, len(backlog))
	for _, share := range shares {
		tierGrants, err := Distribute(share.Allocated, byTier[share.Tier])
		if err != nil {
			return nil, err
		}
		for id, qty := range tierGrants {
			grants[id] = qty
		}
	}

	outcome := &PeriodOutcome{
		Tiers: make([]TierAllocation, 0, len(shares)),
	}
	for _, share := range shares {
		outcome.Tiers = append(outcome.Tiers, TierAllocation{
			Period:    sup.Period,
			Tier:      share.Tier,
			Demand:    share.Demand,
			Allocated: share.Allocated,
		})
	}

	outcome.Results = snapshotResults(sup.Period, backlog, grants)

	var totalDemand, totalAllocated int64
	for _, share := range shares {
		if totalDemand, err = addQty(totalDemand, share.Demand); err != nil {
			return nil, err
		}
		if totalAllocated, err = addQty(totalAllocated, share.Allocated); err != nil {
			return nil, err
		}
	}

	outcome.Summary = PeriodSummary{
		Period:                   sup.Period,
		GlobalLimit:              cons.Limit,
		TotalDemand:              totalDemand,
		TotalAllocated:           totalAllocated,
		ConstrainingSubcomponent: cons.Source,
	}
	outcome.State = PeriodState{
		Period:         sup.Period,
		GlobalLimit:    cons.Limit,
		RemainingLimit: cons.Limit - totalAllocated,
		Backlog:        backlog,
	}
	outcome.Carry = Carry(backlog)
	return outcome, nil
}

// snapshotResults freezes every backlog order's post-pass state, in a
// deterministic order (tier, then age, then id).
func snapshotResults(period Period, backlog []*DemandOrder, grants map[OrderID]int64) []AllocationResult {
	sorted := make([]*DemandOrder, len(backlog))
	copy(sorted, backlog)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Tier != b.Tier {
			return a.Tier.Precedes(b.Tier)
		}
		if c := a.PeriodRequested.Compare(b.PeriodRequested); c != 0 {
			return c < 0
		}
		return a.OrderID < b.OrderID
	})

	results := make([]AllocationResult, 0, len(sorted))
	for _, o := range sorted {
		results = append(results, AllocationResult{
			Period:                 period,
			OrderID:                o.OrderID,
			CustomerID:             o.CustomerID,
			Segment:                o.Segment,
			Tier:                   o.Tier,
			QtyOrdered:             o.QtyOrdered,
			QtyAllocated:           o.QtyAllocated(),
			QtyAllocatedThisPeriod: grants[o.OrderID],
			Status:                 o.Status(),
		})
	}
	return results
}

// =============================================================================
// INPUT VALIDATION
// =============================================================================

// validateSupply returns a sorted copy of the horizon and rejects empty,
// duplicated, or non-contiguous week sequences.
func validateSupply(supply []SupplyRecord) ([]SupplyRecord, error) {
	if len(supply) == 0 {
		return nil, ErrNoSupply
	}

	sorted := make([]SupplyRecord, len(supply))
	copy(sorted, supply)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1].Period, sorted[i].Period
		if prev.Equal(curr) {
			return nil, fmt.Errorf("supply %s: %w", curr, ErrDuplicateSupplyPeriod)
		}
		if !prev.Next().Equal(curr) {
			return nil, fmt.Errorf("supply gap between %s and %s: %w", prev, curr, ErrInvalidPeriod)
		}
	}
	return sorted, nil
}

// groupOrders buckets orders by the period they join the run. Orders older
// than the horizon seed the first period's backlog with their age intact;
// orders beyond the horizon are rejected. Also returns the per-period total
// of newly requested quantity, which feeds the lookahead.
func groupOrders(orders []*DemandOrder, first, last Period) (seed []*DemandOrder, byPeriod map[Period][]*DemandOrder, newDemand map[Period]int64, err error) {
	byPeriod = make(map[Period][]*DemandOrder)
	newDemand = make(map[Period]int64)
	seen := make(map[OrderID]bool, len(orders))

	for _, o := range orders {
		if o == nil {
			return nil, nil, nil, fmt.Errorf("nil order: %w", ErrInvalidOrder)
		}
		if seen[o.OrderID] {
			return nil, nil, nil, &DuplicateOrderError{OrderID: o.OrderID}
		}
		seen[o.OrderID] = true

		switch {
		case o.PeriodRequested.After(last):
			return nil, nil, nil, &HorizonError{OrderID: o.OrderID, Requested: o.PeriodRequested, Horizon: last}
		case o.PeriodRequested.Before(first):
			seed = append(seed, o)
		default:
			p := o.PeriodRequested
			byPeriod[p] = append(byPeriod[p], o)
			sum, err := addQty(newDemand[p], o.QtyOrdered)
			if err != nil {
				return nil, nil, nil, err
			}
			newDemand[p] = sum
		}
	}
	return seed, byPeriod, newDemand, nil
}
