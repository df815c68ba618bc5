/*
waterfall.go - Strict-priority distribution of the global limit across tiers

PURPOSE:
  Splits one period's global build limit across the priority tiers in strict
  precedence order. A tier takes min(its unmet demand, whatever limit is
  left); lower tiers only ever see what higher tiers could not absorb. A
  higher tier is never starved to feed a lower one.

EDGE CASES:
  - A tier with zero demand is allocated 0 and consumes nothing.
  - Once the limit is exhausted, remaining tiers are still visited and
    recorded with 0 so downstream reports show the whole waterfall.
  - A zero global limit yields 0 for every tier.

SEE ALSO:
  - fifo.go:   distributes each tier's share to individual orders
  - engine.go: feeds the per-tier demand aggregates
*/
package alloc

// TierShare is one tier's slice of a period's global limit.
type TierShare struct {
	Tier      PriorityTier
	Demand    int64
	Allocated int64
}

// TierDemands aggregates unmet demand per tier from the period's backlog
// (carried and new orders alike). Sums are overflow-checked.
func TierDemands(backlog []*DemandOrder) (map[PriorityTier]int64, error) {
	demand := make(map[PriorityTier]int64, tierCount)
	for _, o := range backlog {
		sum, err := addQty(demand[o.Tier], o.QtyRemaining())
		if err != nil {
			return nil, err
		}
		demand[o.Tier] = sum
	}
	return demand, nil
}

// AllocateTiers walks the closed tier set highest-priority first, granting
// each tier min(demand, remaining limit). It returns a share for every tier
// in precedence order, including zero rows.
func AllocateTiers(globalLimit int64, demand map[PriorityTier]int64) []TierShare {
	shares := make([]TierShare, 0, tierCount)
	remaining := globalLimit

	for _, tier := range Tiers() {
		share := TierShare{Tier: tier, Demand: demand[tier]}
		share.Allocated = minQty(share.Demand, remaining)
		remaining -= share.Allocated
		shares = append(shares, share)
	}
	return shares
}
