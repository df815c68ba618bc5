/*
rollover.go - Backlog carry between periods

PURPOSE:
  At the end of a period, every order that still has unmet quantity carries
  into the next period's backlog as the same object, keeping its identity
  and its PeriodRequested (its age). Nothing is dropped, nothing is
  fabricated, and a Full order leaves the backlog for good.

ORDER LIFECYCLE:
  Unfulfilled -> Partial -> ... -> Partial -> Full (terminal)
  Unfulfilled -> Full                              (single-shot fill)

  Status is derived from quantities, transitions happen at most once per
  period (the grant step), and allocation never regresses.

SEE ALSO:
  - engine.go: invokes Carry after each period's distribution
*/
package alloc

// Carry returns the orders still open after a period's pass, preserving
// their relative order. The input slice is not modified.
func Carry(backlog []*DemandOrder) []*DemandOrder {
	next := make([]*DemandOrder, 0, len(backlog))
	for _, o := range backlog {
		if o.QtyRemaining() > 0 {
			next = append(next, o)
		}
	}
	return next
}
