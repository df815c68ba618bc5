/*
constraint.go - Global build limit resolution

PURPOSE:
  Derives the quantity that may be committed in a period from the period's
  own component availability and a forward-looking reservation against the
  next period's forecast shortfall ("borrowing against next week").

RULE:
  base    = min(subcomponent A, subcomponent B)          weakest input wins
  deficit = next period's new demand - next period's base (inside horizon)
  reserve = min(deficit, base)     only when deficit > 0
  limit   = base - reserve         never negative

  The binding marker records which input actually held the limit down:
  "lookahead" whenever a reservation was taken, otherwise the smaller
  subcomponent ("A" on ties).

SEE ALSO:
  - engine.go: supplies the Lookahead for each period
  - types.go:  SupplyRecord.BaseLimit
*/
package alloc

// Lookahead is what the resolver may know about the period after the one
// being resolved. Supply is nil when the current period ends the horizon;
// NewDemand is the total quantity newly requested in the next period.
// Backlog never appears here: carried orders already compete in the
// current period.
type Lookahead struct {
	Supply    *SupplyRecord
	NewDemand int64
}

// Constraint is the resolved build limit for one period plus how it was
// arrived at, so summaries never re-derive the binding input.
type Constraint struct {
	Period      Period
	BaseLimit   int64
	Reservation int64
	Limit       int64
	Source      ConstraintSource
}

// ResolveConstraint computes a period's global build limit. Pure function of
// its inputs; quantities are validated upstream, so there is no error path.
func ResolveConstraint(curr SupplyRecord, ahead Lookahead) Constraint {
	base := curr.BaseLimit()

	var reserve int64
	if ahead.Supply != nil {
		deficit := ahead.NewDemand - ahead.Supply.BaseLimit()
		if deficit > 0 {
			reserve = minQty(deficit, base)
		}
	}

	source := ConstraintA
	if reserve > 0 {
		source = ConstraintLookahead
	} else if curr.SubcomponentB < curr.SubcomponentA {
		source = ConstraintB
	}

	return Constraint{
		Period:      curr.Period,
		BaseLimit:   base,
		Reservation: reserve,
		Limit:       base - reserve,
		Source:      source,
	}
}
