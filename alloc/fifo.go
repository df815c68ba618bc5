/*
fifo.go - Oldest-first distribution of a tier's share to individual orders

PURPOSE:
  Takes the quantity the waterfall granted to one tier and pours it into that
  tier's orders, oldest first. Orders are sorted by (period requested asc,
  order id asc); the id is the deterministic tie-break for orders born in the
  same period, so results are reproducible. Partial fulfillment is explicit
  and expected; an order can stay Partial across many periods.

SEE ALSO:
  - waterfall.go: produces the tier shares consumed here
  - types.go:     DemandOrder.grant enforces the allocation invariant
*/
package alloc

import "sort"

// sortFIFO orders a tier's backlog by age then id. This is the one
// ordering FIFO precedence is defined by.
func sortFIFO(orders []*DemandOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if c := orders[i].PeriodRequested.Compare(orders[j].PeriodRequested); c != 0 {
			return c < 0
		}
		return orders[i].OrderID < orders[j].OrderID
	})
}

// Distribute grants a tier's allocation to its orders oldest-first, mutating
// the orders through their guarded grant step. It returns the quantity each
// order received this period (orders that received nothing are absent).
// Distribution stops as soon as the tier's share is exhausted; later orders
// keep their prior allocation and status untouched.
func Distribute(tierAllocation int64, orders []*DemandOrder) (map[OrderID]int64, error) {
	grants := make(map[OrderID]int64)
	if tierAllocation <= 0 || len(orders) == 0 {
		return grants, nil
	}

	sorted := make([]*DemandOrder, len(orders))
	copy(sorted, orders)
	sortFIFO(sorted)

	remaining := tierAllocation
	for _, o := range sorted {
		if remaining == 0 {
			break
		}
		grant := minQty(o.QtyRemaining(), remaining)
		if grant == 0 {
			continue // already Full; inert
		}
		if err := o.grant(grant); err != nil {
			return nil, err
		}
		grants[o.OrderID] = grant
		remaining -= grant
	}
	return grants, nil
}
