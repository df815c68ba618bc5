/*
Package ingest is the Ingestion Adapter: it turns snapshot files on disk
into validated engine inputs.

PURPOSE:
  The engine assumes clean data: unique ids, known tiers, non-negative
  integer quantities, one supply record per week. This package is where
  that assumption is earned. Everything crossing the boundary is checked
  here and rejected loudly with file/row context; nothing is defaulted or
  silently dropped.

INPUT FILES:
  supply_data_<ts>.csv  one row per week: the two subcomponent quantities
  demand_data_<ts>.csv  one row per order: id, customer, week, quantity
  roster.yaml           customer master: id -> name, tier, segment

  Demand rows intentionally carry no tier or segment of their own; those
  attributes come from the roster merge. A customer missing from the
  roster fails the load; defaulting a tier would silently reorder the
  waterfall.

USAGE:
  in, err := ingest.LoadLatest("./data_inputs")
  out, err := alloc.NewEngine().Run(alloc.RunInput{Supply: in.Supply, Orders: in.Orders})

SEE ALSO:
  - csv.go:      supply/demand file loaders
  - discover.go: latest-snapshot discovery
  - errors.go:   validation error types
*/
package ingest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// CUSTOMER ROSTER - The tier/segment master demand rows are merged against
// =============================================================================

// Customer is one roster entry. Every order a customer places inherits
// the tier and segment recorded here.
type Customer struct {
	ID      alloc.CustomerID
	Name    string
	Tier    alloc.PriorityTier
	Segment string
}

// Roster is the validated customer master. Lookups are by id only;
// the engine never sees a roster, just the merged orders.
type Roster struct {
	byID map[alloc.CustomerID]Customer
}

// rosterFile is the YAML shape on disk.
type rosterFile struct {
	Customers []rosterEntry `yaml:"customers"`
}

type rosterEntry struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Tier    string `yaml:"tier"`
	Segment string `yaml:"segment"`
}

// LoadRoster reads and validates a roster YAML file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	r, err := ParseRoster(data)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return r, nil
}

// ParseRoster validates raw roster YAML. Every entry needs a non-empty
// id and a tier inside the closed P1..P9 set; ids must be unique.
func ParseRoster(data []byte) (*Roster, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster yaml: %w", err)
	}
	if len(file.Customers) == 0 {
		return nil, fmt.Errorf("roster lists no customers")
	}

	byID := make(map[alloc.CustomerID]Customer, len(file.Customers))
	for i, e := range file.Customers {
		if e.ID == "" {
			return nil, fmt.Errorf("roster entry %d: empty customer id", i+1)
		}
		id := alloc.CustomerID(e.ID)
		if _, exists := byID[id]; exists {
			return nil, fmt.Errorf("customer %s: %w", id, ErrDuplicateCustomer)
		}
		tier, err := alloc.ParseTier(e.Tier)
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", id, err)
		}
		byID[id] = Customer{
			ID:      id,
			Name:    e.Name,
			Tier:    tier,
			Segment: e.Segment,
		}
	}
	return &Roster{byID: byID}, nil
}

// Lookup returns the roster entry for a customer id.
func (r *Roster) Lookup(id alloc.CustomerID) (Customer, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Customers returns every entry, sorted by id for deterministic output.
func (r *Roster) Customers() []Customer {
	out := make([]Customer, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Roster) Len() int {
	return len(r.byID)
}

// SaveRoster writes customers as roster YAML, sorted by id. The file
// shape is the one LoadRoster reads; the generator uses this to emit
// snapshots the adapter can ingest unchanged.
func SaveRoster(path string, customers []Customer) error {
	sorted := make([]Customer, len(customers))
	copy(sorted, customers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	file := rosterFile{Customers: make([]rosterEntry, 0, len(sorted))}
	for _, c := range sorted {
		file.Customers = append(file.Customers, rosterEntry{
			ID:      string(c.ID),
			Name:    c.Name,
			Tier:    c.Tier.String(),
			Segment: c.Segment,
		})
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}
