package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// CSV LOADERS - Snapshot files into validated engine records
// =============================================================================

var (
	supplyHeader = []string{"week", "subcomponent_a_qty", "subcomponent_b_qty"}
	demandHeader = []string{"order_id", "customer_id", "week_requested", "qty_ordered"}
)

// LoadSupply reads a supply snapshot: one row per week carrying both
// subcomponent quantities. Duplicate weeks are rejected here so the
// failure names the file and row, not just the period.
func LoadSupply(path string) ([]alloc.SupplyRecord, error) {
	records, err := readCSV(path, supplyHeader)
	if err != nil {
		return nil, err
	}

	supply := make([]alloc.SupplyRecord, 0, len(records))
	seen := make(map[alloc.Period]bool, len(records))
	for i, rec := range records {
		row := i + 2 // 1-based, after the header

		period, err := alloc.ParsePeriod(rec[0])
		if err != nil {
			return nil, rowError(path, row, err)
		}
		if seen[period] {
			return nil, rowError(path, row, fmt.Errorf("week %s: %w", period, alloc.ErrDuplicateSupplyPeriod))
		}
		seen[period] = true

		subA, err := parseQty(rec[1], "subcomponent_a_qty")
		if err != nil {
			return nil, rowError(path, row, err)
		}
		subB, err := parseQty(rec[2], "subcomponent_b_qty")
		if err != nil {
			return nil, rowError(path, row, err)
		}

		s, err := alloc.NewSupplyRecord(period, subA, subB)
		if err != nil {
			return nil, rowError(path, row, err)
		}
		supply = append(supply, s)
	}
	return supply, nil
}

// LoadDemand reads a demand snapshot and merges each row against the
// roster for its tier and segment. Unknown customers and duplicate order
// ids fail the load.
func LoadDemand(path string, roster *Roster) ([]*alloc.DemandOrder, error) {
	records, err := readCSV(path, demandHeader)
	if err != nil {
		return nil, err
	}

	orders := make([]*alloc.DemandOrder, 0, len(records))
	seen := make(map[alloc.OrderID]bool, len(records))
	for i, rec := range records {
		row := i + 2

		id := alloc.OrderID(strings.TrimSpace(rec[0]))
		if seen[id] {
			return nil, rowError(path, row, &alloc.DuplicateOrderError{OrderID: id})
		}
		seen[id] = true

		customerID := alloc.CustomerID(strings.TrimSpace(rec[1]))
		cust, ok := roster.Lookup(customerID)
		if !ok {
			return nil, rowError(path, row, &UnknownCustomerError{CustomerID: customerID})
		}

		requested, err := alloc.ParsePeriod(rec[2])
		if err != nil {
			return nil, rowError(path, row, err)
		}
		qty, err := parseQty(rec[3], "qty_ordered")
		if err != nil {
			return nil, rowError(path, row, err)
		}

		order, err := alloc.NewDemandOrder(id, customerID, cust.Segment, cust.Tier, requested, qty)
		if err != nil {
			return nil, rowError(path, row, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// readCSV opens a snapshot file, checks the header and column counts, and
// returns the data rows.
func readCSV(path string, expected []string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file: %w", path, ErrBadHeader)
	}
	if !headerMatches(records[0], expected) {
		return nil, fmt.Errorf("%s: want columns %v, got %v: %w", path, expected, records[0], ErrBadHeader)
	}

	for i, rec := range records[1:] {
		if len(rec) != len(expected) {
			return nil, rowError(path, i+2, fmt.Errorf("want %d columns, got %d", len(expected), len(rec)))
		}
	}
	return records[1:], nil
}

func headerMatches(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}
	return true
}

// parseQty parses a whole non-negative quantity. Fractional or negative
// values are validation errors, never truncated or defaulted.
func parseQty(raw, field string) (int64, error) {
	qty, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, raw, alloc.ErrInvalidQuantity)
	}
	if qty < 0 {
		return 0, fmt.Errorf("%s %d: %w", field, qty, alloc.ErrInvalidQuantity)
	}
	return qty, nil
}
