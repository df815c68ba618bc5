package alloc_test

import (
	"fmt"
	"reflect"
	"sort"
	"testing"

	"pgregory.net/rapid"

	"github.com/warp/allocation-engine/alloc"
)

// Property tests drive the engine with randomized horizons and order books
// and assert the structural guarantees that must hold on every run:
// conservation, strict tier precedence, FIFO within a tier, and
// deterministic replay.

// =============================================================================
// SCENARIO GENERATION
// =============================================================================

type supplySpec struct {
	a, b int64
}

type orderSpec struct {
	id     string
	tier   alloc.PriorityTier
	offset int // periods after propBase; horizon starts at offset 3
	qty    int64
}

// propBase anchors randomized scenarios two weeks before the horizon so some
// orders arrive as aged backlog. propBase.Next()^3 crosses into 2026-W01.
var propBase = alloc.Period{Year: 2025, Week: 50}

func propPeriod(n int) alloc.Period {
	p := propBase
	for i := 0; i < n; i++ {
		p = p.Next()
	}
	return p
}

// drawScenario samples the shape of a run: a contiguous horizon with random
// component availability and a random order book whose requested weeks span
// pre-horizon backlog through the final week.
func drawScenario(t *rapid.T) ([]supplySpec, []orderSpec) {
	numPeriods := rapid.IntRange(1, 8).Draw(t, "numPeriods")
	supplies := make([]supplySpec, numPeriods)
	for i := range supplies {
		supplies[i] = supplySpec{
			a: rapid.Int64Range(0, 200).Draw(t, fmt.Sprintf("supplyA-%d", i)),
			b: rapid.Int64Range(0, 200).Draw(t, fmt.Sprintf("supplyB-%d", i)),
		}
	}

	numOrders := rapid.IntRange(0, 30).Draw(t, "numOrders")
	orders := make([]orderSpec, numOrders)
	for i := range orders {
		orders[i] = orderSpec{
			id:     fmt.Sprintf("ORD-%03d", i),
			tier:   alloc.PriorityTier(rapid.IntRange(1, 9).Draw(t, fmt.Sprintf("tier-%d", i))),
			offset: rapid.IntRange(1, numPeriods+2).Draw(t, fmt.Sprintf("week-%d", i)),
			qty:    rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("qty-%d", i)),
		}
	}
	return supplies, orders
}

// buildInput materializes a drawn scenario into fresh engine inputs. Orders
// are mutated during a run, so replay tests call this twice.
func buildInput(t *rapid.T, supplies []supplySpec, orders []orderSpec) alloc.RunInput {
	var in alloc.RunInput
	for i, s := range supplies {
		rec, err := alloc.NewSupplyRecord(propPeriod(3+i), s.a, s.b)
		if err != nil {
			t.Fatalf("supply %d: %v", i, err)
		}
		in.Supply = append(in.Supply, rec)
	}
	for _, o := range orders {
		ord, err := alloc.NewDemandOrder(alloc.OrderID(o.id), "CUST-01", "Data Center",
			o.tier, propPeriod(o.offset), o.qty)
		if err != nil {
			t.Fatalf("order %s: %v", o.id, err)
		}
		in.Orders = append(in.Orders, ord)
	}
	return in
}

func mustRun(t *rapid.T, in alloc.RunInput) *alloc.RunOutput {
	out, err := alloc.NewEngine().Run(in)
	if err != nil {
		t.Fatalf("run failed on valid input: %v", err)
	}
	return out
}

// =============================================================================
// CONSERVATION
// =============================================================================

// Every period commits at most its global limit, tier rows reconcile exactly
// with the summary, and no order ever holds more than it ordered.
func TestProperty_AllocationNeverExceedsLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supplies, orders := drawScenario(t)
		out := mustRun(t, buildInput(t, supplies, orders))

		tiersByPeriod := make(map[alloc.Period][]alloc.TierAllocation)
		for _, ta := range out.Tiers {
			tiersByPeriod[ta.Period] = append(tiersByPeriod[ta.Period], ta)
		}

		for _, sum := range out.Summaries {
			// The waterfall pours greedily, so a period commits exactly the
			// smaller of its unmet demand and its limit.
			want := sum.TotalDemand
			if sum.GlobalLimit < want {
				want = sum.GlobalLimit
			}
			if sum.TotalAllocated != want {
				t.Fatalf("%s: allocated %d, want min(demand %d, limit %d)",
					sum.Period, sum.TotalAllocated, sum.TotalDemand, sum.GlobalLimit)
			}

			var tierAllocated, tierDemand int64
			for _, ta := range tiersByPeriod[sum.Period] {
				if ta.Allocated > ta.Demand {
					t.Fatalf("%s %s: tier allocated %d exceeds its demand %d", ta.Period, ta.Tier, ta.Allocated, ta.Demand)
				}
				tierAllocated += ta.Allocated
				tierDemand += ta.Demand
			}
			if tierAllocated != sum.TotalAllocated {
				t.Fatalf("%s: tier rows sum to %d, summary says %d", sum.Period, tierAllocated, sum.TotalAllocated)
			}
			if tierDemand != sum.TotalDemand {
				t.Fatalf("%s: tier demand sums to %d, summary says %d", sum.Period, tierDemand, sum.TotalDemand)
			}
		}

		for _, r := range out.Results {
			if r.QtyAllocated < 0 || r.QtyAllocated > r.QtyOrdered {
				t.Fatalf("%s %s: cumulative %d outside [0, %d]", r.Period, r.OrderID, r.QtyAllocated, r.QtyOrdered)
			}
			if r.QtyAllocatedThisPeriod < 0 || r.QtyAllocatedThisPeriod > r.QtyAllocated {
				t.Fatalf("%s %s: period grant %d inconsistent with cumulative %d",
					r.Period, r.OrderID, r.QtyAllocatedThisPeriod, r.QtyAllocated)
			}
		}
	})
}

// Ordered units are never created or destroyed: everything an order asked
// for is either allocated by the end of the run or still open in the final
// backlog.
func TestProperty_UnitsConserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supplies, orders := drawScenario(t)
		in := buildInput(t, supplies, orders)
		out := mustRun(t, in)

		var totalOrdered int64
		for _, o := range in.Orders {
			totalOrdered += o.QtyOrdered
		}

		var totalGranted int64
		cumulative := make(map[alloc.OrderID]int64)
		for _, r := range out.Results {
			// Cumulative allocation only ever grows, by exactly this period's grant.
			if r.QtyAllocated != cumulative[r.OrderID]+r.QtyAllocatedThisPeriod {
				t.Fatalf("%s %s: cumulative %d != prior %d + grant %d",
					r.Period, r.OrderID, r.QtyAllocated, cumulative[r.OrderID], r.QtyAllocatedThisPeriod)
			}
			cumulative[r.OrderID] = r.QtyAllocated
			totalGranted += r.QtyAllocatedThisPeriod
		}

		var totalAllocated int64
		for _, sum := range out.Summaries {
			totalAllocated += sum.TotalAllocated
		}
		if totalGranted != totalAllocated {
			t.Fatalf("result grants sum to %d, summaries to %d", totalGranted, totalAllocated)
		}

		var openRemaining int64
		for _, o := range out.Backlog {
			if o.QtyRemaining() <= 0 {
				t.Fatalf("final backlog holds closed order %s", o.OrderID)
			}
			openRemaining += o.QtyRemaining()
		}
		if totalAllocated+openRemaining != totalOrdered {
			t.Fatalf("allocated %d + open %d != ordered %d", totalAllocated, openRemaining, totalOrdered)
		}
	})
}

// =============================================================================
// PRECEDENCE
// =============================================================================

// A tier receives units only when every higher tier's demand for that period
// was satisfied in full.
func TestProperty_TierPrecedenceIsStrict(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supplies, orders := drawScenario(t)
		out := mustRun(t, buildInput(t, supplies, orders))

		tiersByPeriod := make(map[alloc.Period][]alloc.TierAllocation)
		for _, ta := range out.Tiers {
			tiersByPeriod[ta.Period] = append(tiersByPeriod[ta.Period], ta)
		}

		for period, shares := range tiersByPeriod {
			if len(shares) != len(alloc.Tiers()) {
				t.Fatalf("%s: %d tier rows, want one per tier", period, len(shares))
			}
			starved := false
			for i, share := range shares {
				if share.Tier != alloc.Tiers()[i] {
					t.Fatalf("%s: tier rows out of precedence order at %d: %s", period, i, share.Tier)
				}
				if starved && share.Allocated > 0 {
					t.Fatalf("%s: %s received %d after a higher tier went short",
						period, share.Tier, share.Allocated)
				}
				if share.Allocated < share.Demand {
					starved = true
				}
			}
		}
	})
}

// Within a tier, a younger order receives units in a period only when every
// older order of that tier left the period fully allocated.
func TestProperty_FIFOWithinTier(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supplies, orders := drawScenario(t)
		in := buildInput(t, supplies, orders)
		out := mustRun(t, in)

		requested := make(map[alloc.OrderID]alloc.Period, len(in.Orders))
		for _, o := range in.Orders {
			requested[o.OrderID] = o.PeriodRequested
		}

		type bucket struct {
			period alloc.Period
			tier   alloc.PriorityTier
		}
		rows := make(map[bucket][]alloc.AllocationResult)
		for _, r := range out.Results {
			k := bucket{r.Period, r.Tier}
			rows[k] = append(rows[k], r)
		}

		for k, rs := range rows {
			sort.Slice(rs, func(i, j int) bool {
				if c := requested[rs[i].OrderID].Compare(requested[rs[j].OrderID]); c != 0 {
					return c < 0
				}
				return rs[i].OrderID < rs[j].OrderID
			})
			allFull := true // every row so far ended the period fully allocated
			for _, r := range rs {
				if !allFull && r.QtyAllocatedThisPeriod > 0 {
					t.Fatalf("%s %s: %s granted %d while an older order stayed open",
						k.period, k.tier, r.OrderID, r.QtyAllocatedThisPeriod)
				}
				if r.QtyAllocated < r.QtyOrdered {
					allFull = false
				}
			}
		}
	})
}

// =============================================================================
// DETERMINISM
// =============================================================================

// Replaying identical inputs yields byte-identical snapshots. Orders are
// rebuilt between runs because a run mutates them.
func TestProperty_DeterministicReplay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supplies, orders := drawScenario(t)

		first := mustRun(t, buildInput(t, supplies, orders))
		second := mustRun(t, buildInput(t, supplies, orders))

		if !reflect.DeepEqual(first.Results, second.Results) {
			t.Fatalf("result rows differ between identical runs")
		}
		if !reflect.DeepEqual(first.Summaries, second.Summaries) {
			t.Fatalf("summaries differ between identical runs")
		}
		if !reflect.DeepEqual(first.Tiers, second.Tiers) {
			t.Fatalf("tier rows differ between identical runs")
		}
		if len(first.Backlog) != len(second.Backlog) {
			t.Fatalf("final backlog size differs: %d vs %d", len(first.Backlog), len(second.Backlog))
		}
		for i := range first.Backlog {
			a, b := first.Backlog[i], second.Backlog[i]
			if a.OrderID != b.OrderID || a.QtyRemaining() != b.QtyRemaining() {
				t.Fatalf("backlog[%d] differs: %s/%d vs %s/%d",
					i, a.OrderID, a.QtyRemaining(), b.OrderID, b.QtyRemaining())
			}
		}
	})
}

// =============================================================================
// RESOLVER FORMULA
// =============================================================================

// The resolved limit always equals base minus reservation, the reservation
// never exceeds the base or a positive deficit, and the binding marker agrees
// with the arithmetic.
func TestProperty_ResolverFormula(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		currA := rapid.Int64Range(0, 1000).Draw(t, "currA")
		currB := rapid.Int64Range(0, 1000).Draw(t, "currB")
		nextA := rapid.Int64Range(0, 1000).Draw(t, "nextA")
		nextB := rapid.Int64Range(0, 1000).Draw(t, "nextB")
		nextDemand := rapid.Int64Range(0, 2000).Draw(t, "nextDemand")
		lastPeriod := rapid.Bool().Draw(t, "lastPeriod")

		curr := alloc.SupplyRecord{Period: propPeriod(3), SubcomponentA: currA, SubcomponentB: currB}

		ahead := alloc.Lookahead{}
		if !lastPeriod {
			next := alloc.SupplyRecord{Period: propPeriod(4), SubcomponentA: nextA, SubcomponentB: nextB}
			ahead = alloc.Lookahead{Supply: &next, NewDemand: nextDemand}
		}

		cons := alloc.ResolveConstraint(curr, ahead)

		base := currA
		if currB < currA {
			base = currB
		}
		if cons.BaseLimit != base {
			t.Fatalf("base %d, want min(%d,%d)=%d", cons.BaseLimit, currA, currB, base)
		}
		if cons.Limit != cons.BaseLimit-cons.Reservation {
			t.Fatalf("limit %d != base %d - reservation %d", cons.Limit, cons.BaseLimit, cons.Reservation)
		}
		if cons.Limit < 0 || cons.Reservation < 0 {
			t.Fatalf("negative limit %d or reservation %d", cons.Limit, cons.Reservation)
		}
		if cons.Reservation > cons.BaseLimit {
			t.Fatalf("reservation %d exceeds base %d", cons.Reservation, cons.BaseLimit)
		}

		if lastPeriod && cons.Reservation != 0 {
			t.Fatalf("final period reserved %d", cons.Reservation)
		}
		if !lastPeriod {
			nextBase := nextA
			if nextB < nextA {
				nextBase = nextB
			}
			deficit := nextDemand - nextBase
			want := int64(0)
			if deficit > 0 {
				want = deficit
				if base < want {
					want = base
				}
			}
			if cons.Reservation != want {
				t.Fatalf("reservation %d, want %d (deficit %d, base %d)", cons.Reservation, want, deficit, base)
			}
		}

		switch cons.Source {
		case alloc.ConstraintLookahead:
			if cons.Reservation == 0 {
				t.Fatalf("lookahead marker with zero reservation")
			}
		case alloc.ConstraintA:
			if cons.Reservation != 0 || currA > currB {
				t.Fatalf("marker A with a=%d b=%d reserve=%d", currA, currB, cons.Reservation)
			}
		case alloc.ConstraintB:
			if cons.Reservation != 0 || currB >= currA {
				t.Fatalf("marker B with a=%d b=%d reserve=%d", currA, currB, cons.Reservation)
			}
		default:
			t.Fatalf("unknown constraint marker %q", cons.Source)
		}
	})
}
