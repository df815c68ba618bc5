/*
csv.go - Allocation report writers

PURPOSE:
	Renders a run's outputs as flat CSV reports: the per-order allocation
	report, the weekly summary with the tier waterfall, and fill-rate
	metrics. Writers take io.Writer so the HTTP layer can stream them;
	WriteFiles lays the standard report set down in a directory for the
	batch CLI.

COLUMN CONTRACT:
	allocation_report: one row per order per week it sat in the backlog,
	zero-grant weeks included, sorted week then tier then order id.
	weekly_summary: one row per week with the global limit, demand,
	allocation, open backlog, binding constraint, and per-tier grants.

SEE ALSO:
	metrics.go - fill-rate computation behind fill_rates.csv
*/
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/warp/allocation-engine/alloc"
)

// Standard report file names, as written by WriteFiles.
const (
	AllocationsName = "customer_allocation_report.csv"
	SummariesName   = "weekly_summary.csv"
	FillRatesName   = "fill_rates.csv"
)

// =============================================================================
// ALLOCATION REPORT
// =============================================================================

// WriteAllocations writes the flat per-order report. Rows are re-sorted
// by week, tier, order id so the report reads top to bottom regardless of
// how the results slice was assembled.
func WriteAllocations(w io.Writer, results []alloc.AllocationResult) error {
	sorted := make([]alloc.AllocationResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Period.Equal(b.Period) {
			return a.Period.Before(b.Period)
		}
		if a.Tier != b.Tier {
			return a.Tier.Precedes(b.Tier)
		}
		return a.OrderID < b.OrderID
	})

	cw := csv.NewWriter(w)
	header := []string{
		"week", "order_id", "customer_id", "market_segment", "priority",
		"qty_ordered", "qty_allocated_total", "qty_allocated_week", "status",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, r := range sorted {
		row := []string{
			r.Period.String(),
			string(r.OrderID),
			string(r.CustomerID),
			r.Segment,
			r.Tier.String(),
			formatQty(r.QtyOrdered),
			formatQty(r.QtyAllocated),
			formatQty(r.QtyAllocatedThisPeriod),
			string(r.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// =============================================================================
// WEEKLY SUMMARY
// =============================================================================

// WriteSummaries writes one row per week: the resolved limit, demand and
// allocation totals, the backlog still open after the week, the binding
// constraint, and the grant each tier took. Tier columns cover the whole
// P1..P9 waterfall so shape is stable across runs.
func WriteSummaries(w io.Writer, summaries []alloc.PeriodSummary, tiers []alloc.TierAllocation) error {
	byPeriod := make(map[alloc.Period]map[alloc.PriorityTier]int64, len(summaries))
	for _, t := range tiers {
		if byPeriod[t.Period] == nil {
			byPeriod[t.Period] = make(map[alloc.PriorityTier]int64, 9)
		}
		byPeriod[t.Period][t.Tier] = t.Allocated
	}

	sorted := make([]alloc.PeriodSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period.Before(sorted[j].Period) })

	cw := csv.NewWriter(w)
	header := []string{
		"week", "global_limit", "total_demand", "total_allocated",
		"open_backlog_qty", "constraint",
	}
	for _, tier := range alloc.Tiers() {
		header = append(header, "allocated_"+tier.String())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for _, s := range sorted {
		row := []string{
			s.Period.String(),
			formatQty(s.GlobalLimit),
			formatQty(s.TotalDemand),
			formatQty(s.TotalAllocated),
			formatQty(s.TotalDemand - s.TotalAllocated),
			string(s.ConstrainingSubcomponent),
		}
		grants := byPeriod[s.Period]
		for _, tier := range alloc.Tiers() {
			row = append(row, formatQty(grants[tier]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// =============================================================================
// FILE SET
// =============================================================================

// WriteFiles writes the standard report set into dir and returns the
// paths written.
func WriteFiles(dir string, out *alloc.RunOutput) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	paths := make([]string, 0, 3)

	allocPath := filepath.Join(dir, AllocationsName)
	if err := writeFile(allocPath, func(w io.Writer) error {
		return WriteAllocations(w, out.Results)
	}); err != nil {
		return nil, err
	}
	paths = append(paths, allocPath)

	summaryPath := filepath.Join(dir, SummariesName)
	if err := writeFile(summaryPath, func(w io.Writer) error {
		return WriteSummaries(w, out.Summaries, out.Tiers)
	}); err != nil {
		return nil, err
	}
	paths = append(paths, summaryPath)

	ratesPath := filepath.Join(dir, FillRatesName)
	if err := writeFile(ratesPath, func(w io.Writer) error {
		return WriteFillRates(w, Compute(out.Results))
	}); err != nil {
		return nil, err
	}
	paths = append(paths, ratesPath)

	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func formatQty(q int64) string {
	return strconv.FormatInt(q, 10)
}
