/*
Package alloc implements the supply allocation engine.

PURPOSE:
  This package answers three questions for a constrained product, period by
  period: how much can be built (constraint resolution), how much of that is
  committed (global build limit), and who receives units when supply is short
  (waterfall + FIFO allocation). Unmet quantity is carried forward as backlog,
  so periods form a strict chronological chain.

KEY CONCEPTS IN THIS FILE (types.go):
  - PriorityTier: closed, strictly ordered precedence enum (P1 highest)
  - SupplyRecord: per-period component availability
  - DemandOrder:  a customer order; the only mutable state in a run
  - AllocationResult / PeriodSummary / TierAllocation: immutable outputs

DESIGN PRINCIPLES:
  1. Validated construction: records are built through constructors that
     reject bad magnitudes, so the engine never sees invalid inputs.
  2. Guarded mutation: an order's allocated quantity only moves through
     grant(), which keeps it monotonic and capped at the ordered quantity.
  3. Closed enums: tiers and statuses are fixed sets with one defined
     ordering; they are never free text and never compared as strings.
  4. Checked sums: running totals fail loudly on overflow instead of
     wrapping.

USAGE:
  order, err := alloc.NewDemandOrder("ORD-1A2B3C", "CUST-01", "Data Center",
      alloc.TierP1, period, 50)
  out, err := alloc.NewEngine().Run(alloc.RunInput{Supply: supply, Orders: orders})

SEE ALSO:
  - period.go:     period keys and navigation
  - constraint.go: global build limit resolution
  - waterfall.go:  tier-level distribution
  - fifo.go:       order-level distribution
  - engine.go:     orchestration across periods
*/
package alloc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrderID string
type CustomerID string

// =============================================================================
// PRIORITY TIER - Closed precedence enumeration, P1 highest
// =============================================================================

// PriorityTier is the allocation precedence class of an order. The set is
// closed (P1..P9) and strictly ordered: a numerically smaller tier outranks a
// larger one. There is exactly one comparison, Precedes; tiers are never
// compared as strings.
type PriorityTier int

const (
	TierP1 PriorityTier = iota + 1
	TierP2
	TierP3
	TierP4
	TierP5
	TierP6
	TierP7
	TierP8
	TierP9
)

// tierCount is the size of the closed enumeration.
const tierCount = 9

// Tiers returns every tier in precedence order, highest first.
// The waterfall visits exactly this sequence.
func Tiers() []PriorityTier {
	ts := make([]PriorityTier, tierCount)
	for i := range ts {
		ts[i] = PriorityTier(i + 1)
	}
	return ts
}

func (t PriorityTier) Valid() bool {
	return t >= TierP1 && t <= TierP9
}

// Precedes reports whether t outranks u in the waterfall.
func (t PriorityTier) Precedes(u PriorityTier) bool {
	return t < u
}

func (t PriorityTier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("P?(%d)", int(t))
	}
	return fmt.Sprintf("P%d", int(t))
}

// ParseTier accepts "P3"-style labels or bare integers ("3"). Anything
// outside the closed set is an error; tiers are never defaulted.
func ParseTier(s string) (PriorityTier, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "P")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("tier %q: %w", s, ErrInvalidTier)
	}
	t := PriorityTier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("tier %q: %w", s, ErrInvalidTier)
	}
	return t, nil
}

// =============================================================================
// ORDER STATUS - Derived fulfillment state
// =============================================================================

type OrderStatus string

const (
	StatusUnfulfilled OrderStatus = "Unfulfilled" // nothing allocated yet
	StatusPartial     OrderStatus = "Partial"     // some, not all
	StatusFull        OrderStatus = "Full"        // terminal; order is inert
)

// =============================================================================
// SUPPLY RECORD - Per-period component availability
// =============================================================================

// SupplyRecord holds the two subcomponent quantities available in one period.
// One record per period; quantities are non-negative by construction.
type SupplyRecord struct {
	Period        Period
	SubcomponentA int64
	SubcomponentB int64
}

func NewSupplyRecord(p Period, subA, subB int64) (SupplyRecord, error) {
	if p.IsZero() {
		return SupplyRecord{}, fmt.Errorf("supply record: %w", ErrInvalidPeriod)
	}
	if subA < 0 || subB < 0 {
		return SupplyRecord{}, fmt.Errorf("supply %s: a=%d b=%d: %w", p, subA, subB, ErrInvalidQuantity)
	}
	return SupplyRecord{Period: p, SubcomponentA: subA, SubcomponentB: subB}, nil
}

// BaseLimit is the weakest of the two subcomponent constraints.
func (s SupplyRecord) BaseLimit() int64 {
	return minQty(s.SubcomponentA, s.SubcomponentB)
}

// =============================================================================
// DEMAND ORDER - The only mutable state in a run
// =============================================================================

// DemandOrder is a single customer order. Identity fields are immutable for
// the order's whole life; PeriodRequested never changes as the order ages
// through backlogs (it is the FIFO age key). The allocated quantity is
// private and moves only through grant(): monotonically non-decreasing,
// never above QtyOrdered.
type DemandOrder struct {
	OrderID         OrderID
	CustomerID      CustomerID
	Segment         string
	Tier            PriorityTier
	PeriodRequested Period
	QtyOrdered      int64

	allocated int64
}

// NewDemandOrder builds a validated order with nothing allocated yet.
func NewDemandOrder(id OrderID, customer CustomerID, segment string, tier PriorityTier, requested Period, qty int64) (*DemandOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("order: empty order id: %w", ErrInvalidOrder)
	}
	if customer == "" {
		return nil, fmt.Errorf("order %s: empty customer id: %w", id, ErrInvalidOrder)
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("order %s: %w", id, ErrInvalidTier)
	}
	if requested.IsZero() {
		return nil, fmt.Errorf("order %s: %w", id, ErrInvalidPeriod)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("order %s: qty %d: %w", id, qty, ErrInvalidQuantity)
	}
	return &DemandOrder{
		OrderID:         id,
		CustomerID:      customer,
		Segment:         segment,
		Tier:            tier,
		PeriodRequested: requested,
		QtyOrdered:      qty,
	}, nil
}

func (o *DemandOrder) QtyAllocated() int64 { return o.allocated }
func (o *DemandOrder) QtyRemaining() int64 { return o.QtyOrdered - o.allocated }

// Status derives the fulfillment state from quantities. Full is terminal:
// a Full order has QtyRemaining 0 and is never granted again.
func (o *DemandOrder) Status() OrderStatus {
	switch {
	case o.allocated == 0:
		return StatusUnfulfilled
	case o.allocated < o.QtyOrdered:
		return StatusPartial
	default:
		return StatusFull
	}
}

// grant is the single mutation point for an order. The distributor computes
// the quantity; grant enforces the invariant 0 <= allocated <= ordered.
func (o *DemandOrder) grant(qty int64) error {
	if qty < 0 {
		return fmt.Errorf("order %s: negative grant %d: %w", o.OrderID, qty, ErrInvalidQuantity)
	}
	if qty > o.QtyRemaining() {
		return fmt.Errorf("order %s: grant %d exceeds remaining %d: %w",
			o.OrderID, qty, o.QtyRemaining(), ErrGrantExceedsRemaining)
	}
	o.allocated += qty
	return nil
}

// =============================================================================
// PERIOD STATE - Explicit per-period allocation state (no globals)
// =============================================================================

// PeriodState is the state one period's pass operates on and hands to the
// next. It is built inside the engine and returned in the period outcome;
// there is no package-level backlog.
type PeriodState struct {
	Period         Period
	GlobalLimit    int64
	RemainingLimit int64
	Backlog        []*DemandOrder
}

// =============================================================================
// OUTPUTS - Immutable snapshots handed to the reporting side
// =============================================================================

// ConstraintSource marks which input bound a period's global limit.
type ConstraintSource string

const (
	ConstraintA         ConstraintSource = "A"
	ConstraintB         ConstraintSource = "B"
	ConstraintLookahead ConstraintSource = "lookahead"
)

// AllocationResult is the per-order snapshot taken at the end of a period's
// pass. One row per order present in that period's backlog, zero-grant rows
// included.
type AllocationResult struct {
	Period                 Period
	OrderID                OrderID
	CustomerID             CustomerID
	Segment                string
	Tier                   PriorityTier
	QtyOrdered             int64
	QtyAllocated           int64 // cumulative, after this period
	QtyAllocatedThisPeriod int64
	Status                 OrderStatus
}

// PeriodSummary is the per-period rollup for reporting.
type PeriodSummary struct {
	Period                   Period
	GlobalLimit              int64
	TotalDemand              int64 // unmet demand entering the period
	TotalAllocated           int64
	ConstrainingSubcomponent ConstraintSource
}

// TierAllocation is one tier's share of one period's limit. Every tier in
// the closed enum gets a row each period, zero or not, so reports can show
// the full waterfall.
type TierAllocation struct {
	Period    Period
	Tier      PriorityTier
	Demand    int64
	Allocated int64
}

// =============================================================================
// QUANTITY HELPERS
// =============================================================================

func minQty(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// addQty adds two non-negative quantities, failing on int64 overflow.
// Running sums must never wrap silently.
func addQty(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("sum of %d and %d: %w", a, b, ErrOverflow)
	}
	return a + b, nil
}
