package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// FILL RATES - Exact decimal arithmetic, no float drift
// =============================================================================

// FillRate aggregates ordered and allocated quantities for one slice of a
// run. Rates are computed on demand from the integer totals.
type FillRate struct {
	QtyOrdered   int64
	QtyAllocated int64
}

// Rate returns allocated over ordered to four decimal places. A slice with
// no demand fills at 1: nothing was asked, nothing was missed.
func (f FillRate) Rate() decimal.Decimal {
	if f.QtyOrdered == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(f.QtyAllocated).
		Div(decimal.NewFromInt(f.QtyOrdered)).
		Round(4)
}

// Percent returns the rate scaled to a percentage, two decimal places.
func (f FillRate) Percent() decimal.Decimal {
	return f.Rate().Mul(decimal.NewFromInt(100)).Round(2)
}

func (f FillRate) add(ordered, allocated int64) FillRate {
	return FillRate{
		QtyOrdered:   f.QtyOrdered + ordered,
		QtyAllocated: f.QtyAllocated + allocated,
	}
}

// Metrics is the fill-rate rollup of one run: overall and sliced by tier
// and by market segment. Maps hold only slices with at least one order.
type Metrics struct {
	Overall   FillRate
	ByTier    map[alloc.PriorityTier]FillRate
	BySegment map[string]FillRate
}

// Compute derives fill rates from a run's results. Each order's final row
// carries its cumulative allocation, so the last row per order is the one
// that counts; earlier backlog rows would double-count the order.
func Compute(results []alloc.AllocationResult) Metrics {
	final := make(map[alloc.OrderID]alloc.AllocationResult, len(results))
	for _, r := range results {
		prev, ok := final[r.OrderID]
		if !ok || prev.Period.Before(r.Period) {
			final[r.OrderID] = r
		}
	}

	m := Metrics{
		ByTier:    make(map[alloc.PriorityTier]FillRate),
		BySegment: make(map[string]FillRate),
	}
	for _, r := range final {
		m.Overall = m.Overall.add(r.QtyOrdered, r.QtyAllocated)
		m.ByTier[r.Tier] = m.ByTier[r.Tier].add(r.QtyOrdered, r.QtyAllocated)
		m.BySegment[r.Segment] = m.BySegment[r.Segment].add(r.QtyOrdered, r.QtyAllocated)
	}
	return m
}

// WriteFillRates writes the metrics as CSV: the overall row first, then
// tiers in waterfall order, then segments alphabetically.
func WriteFillRates(w io.Writer, m Metrics) error {
	cw := csv.NewWriter(w)
	header := []string{"scope", "key", "qty_ordered", "qty_allocated", "fill_rate", "fill_pct"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	writeRow := func(scope, key string, f FillRate) error {
		return cw.Write([]string{
			scope, key,
			formatQty(f.QtyOrdered),
			formatQty(f.QtyAllocated),
			f.Rate().String(),
			f.Percent().String(),
		})
	}

	if err := writeRow("overall", "", m.Overall); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, tier := range alloc.Tiers() {
		f, ok := m.ByTier[tier]
		if !ok {
			continue
		}
		if err := writeRow("tier", tier.String(), f); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	segments := make([]string, 0, len(m.BySegment))
	for seg := range m.BySegment {
		segments = append(segments, seg)
	}
	sort.Strings(segments)
	for _, seg := range segments {
		if err := writeRow("segment", seg, m.BySegment[seg]); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
