/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All engine and store error types in one place. Collaborator packages
  (ingest, api) wrap these with file/row or request context and test against
  them with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - bad magnitudes, bad identity, bad periods
  2. Engine errors     - horizon violations, overflow, grant guard
  3. Store errors      - run history lookups and conflicts

USAGE:
  if errors.Is(err, alloc.ErrInvalidTier) {
      // reject the input row
  }

SEE ALSO:
  - types.go:  constructors returning these errors
  - engine.go: run-level validation
  - store.go:  run history contract
*/
package alloc

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned for negative, zero-where-positive, or
	// fractional quantities. Raised at construction; the engine never sees
	// invalid magnitudes.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidTier is returned for tier values outside the closed P1..P9
	// set. Tiers are never defaulted silently.
	ErrInvalidTier = errors.New("invalid priority tier")

	// ErrInvalidPeriod is returned for malformed period keys (bad week
	// number, unparseable label, zero value).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidOrder is returned for orders with missing identity fields.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrDuplicateOrderID is returned when an input set carries the same
	// order id twice. Identity must be unique; nothing is deduplicated.
	ErrDuplicateOrderID = errors.New("duplicate order id")

	// ErrDuplicateSupplyPeriod is returned when two supply records share a
	// period. The horizon must have exactly one record per period.
	ErrDuplicateSupplyPeriod = errors.New("duplicate supply period")

	// ErrNoSupply is returned when a run is started with an empty horizon.
	ErrNoSupply = errors.New("no supply records")

	// ErrBeyondHorizon is returned for orders requested after the last
	// supply period. No period could ever allocate them, so they are
	// rejected instead of silently ignored.
	ErrBeyondHorizon = errors.New("order requested beyond supply horizon")

	// ErrOverflow is returned when a running sum would exceed int64.
	// The engine must fail rather than wrap or truncate.
	ErrOverflow = errors.New("quantity sum overflow")

	// ErrGrantExceedsRemaining signals a grant larger than an order's
	// remaining quantity. The distributor caps grants first, so seeing this
	// means an engine bug, not bad input.
	ErrGrantExceedsRemaining = errors.New("grant exceeds remaining quantity")

	// ErrRunNotFound is returned by run stores for unknown run ids.
	ErrRunNotFound = errors.New("run not found")

	// ErrDuplicateRunID is returned when saving a run whose id already
	// exists. Saved runs are immutable.
	ErrDuplicateRunID = errors.New("duplicate run id")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// HorizonError reports an order that falls after the supply horizon.
type HorizonError struct {
	OrderID   OrderID
	Requested Period
	Horizon   Period // last period with a supply record
}

func (e *HorizonError) Error() string {
	return fmt.Sprintf("order %s requested %s, horizon ends %s", e.OrderID, e.Requested, e.Horizon)
}

func (e *HorizonError) Unwrap() error {
	return ErrBeyondHorizon
}

// DuplicateOrderError reports which id collided.
type DuplicateOrderError struct {
	OrderID OrderID
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("order id %s appears more than once", e.OrderID)
}

func (e *DuplicateOrderError) Unwrap() error {
	return ErrDuplicateOrderID
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether the error is caused by invalid input rather
// than an engine or storage fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidTier) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrDuplicateOrderID) ||
		errors.Is(err, ErrDuplicateSupplyPeriod) ||
		errors.Is(err, ErrNoSupply) ||
		errors.Is(err, ErrBeyondHorizon)
}

// IsNotFound reports whether the error indicates a missing run.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsConflict reports whether the error indicates a write colliding with
// existing immutable state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateRunID)
}
