package ingest

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoSnapshot is returned when the data directory holds no complete
	// supply/demand snapshot pair.
	ErrNoSnapshot = errors.New("no snapshot files found")

	// ErrBadHeader is returned when a CSV file's header row does not match
	// the expected column set exactly.
	ErrBadHeader = errors.New("unexpected csv header")

	// ErrUnknownCustomer is returned for demand rows naming a customer the
	// roster does not carry. Tiers are never defaulted, so the row cannot
	// be accepted.
	ErrUnknownCustomer = errors.New("customer not in roster")

	// ErrDuplicateCustomer is returned when a roster lists the same
	// customer id twice.
	ErrDuplicateCustomer = errors.New("duplicate customer id in roster")
)

// =============================================================================
// STRUCTURED ERRORS - Carry file and row context
// =============================================================================

// RowError pins a parse or validation failure to a file and data row.
// Row is 1-based counting the header, so the first data row is row 2.
type RowError struct {
	File string
	Row  int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: row %d: %v", filepath.Base(e.File), e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// UnknownCustomerError reports which customer id was missing.
type UnknownCustomerError struct {
	CustomerID alloc.CustomerID
}

func (e *UnknownCustomerError) Error() string {
	return fmt.Sprintf("customer %s not in roster", e.CustomerID)
}

func (e *UnknownCustomerError) Unwrap() error {
	return ErrUnknownCustomer
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether the error is caused by invalid input data
// rather than a missing file or an I/O fault. Covers both the engine's
// validation sentinels and the ingestion-specific ones.
func IsValidation(err error) bool {
	return alloc.IsValidation(err) ||
		errors.Is(err, ErrBadHeader) ||
		errors.Is(err, ErrUnknownCustomer) ||
		errors.Is(err, ErrDuplicateCustomer)
}

func rowError(file string, row int, err error) error {
	return &RowError{File: file, Row: row, Err: err}
}
