/*
mockgen.go - Seeded mock data generator

PURPOSE:
	Produces realistic supply and demand snapshots for demos, scenario
	loading, and local development. A Generator is deterministic under a
	fixed seed: same config, same dataset. Only WriteSnapshot touches the
	clock, for the timestamp embedded in snapshot file names.

SHAPE OF THE DATA:
	Supply follows a base level with a per-week ramp and bounded noise,
	plus occasional one-week shortage dips on a single subcomponent.
	Demand is weighted toward high-priority customers, with quantities
	drawn from a configurable band.

SEE ALSO:
	ingest/discover.go - discovers the files WriteSnapshot emits
	api/scenarios.go   - named demo configurations built on this package
*/
package mockgen

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/allocation-engine/alloc"
	"github.com/warp/allocation-engine/ingest"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config controls one generated dataset. Structural zero values (start,
// weeks, orders, quantity band, supply base, roster) fall back to defaults;
// Seed, SupplyRamp, Noise, and DipChance are taken literally, so zero means
// flat supply with no jitter and no dips.
type Config struct {
	Start  alloc.Period // first supply week
	Weeks  int          // horizon length in weeks
	Orders int          // demand orders to generate
	Seed   int64        // rng seed; same seed, same dataset

	QtyMin int64 // order quantity band, inclusive
	QtyMax int64

	SupplyBase int64   // week-one supply level per subcomponent
	SupplyRamp int64   // per-week level change; negative ramps squeeze the horizon
	Noise      int64   // uniform jitter bound, +/- per subcomponent per week
	DipChance  float64 // per-week chance of a one-off shortage dip

	Customers []ingest.Customer // roster; DefaultCustomers when empty
}

const (
	defaultWeeks      = 12
	defaultOrders     = 60
	defaultQtyMin     = 10
	defaultQtyMax     = 90
	defaultSupplyBase = 80
)

// DemoConfig is the fully textured preset: rising supply with noise and
// occasional dips over the default roster. CLI flag defaults and the
// baseline demo scenario start from here.
func DemoConfig() Config {
	return Config{
		Weeks:      defaultWeeks,
		Orders:     defaultOrders,
		Seed:       1,
		SupplyRamp: 5,
		Noise:      15,
		DipChance:  0.15,
	}
}

func (c Config) withDefaults() Config {
	if c.Start.IsZero() {
		c.Start = alloc.Period{Year: 2026, Week: 1}
	}
	if c.Weeks == 0 {
		c.Weeks = defaultWeeks
	}
	if c.Orders == 0 {
		c.Orders = defaultOrders
	}
	if c.QtyMin == 0 {
		c.QtyMin = defaultQtyMin
	}
	if c.QtyMax == 0 {
		c.QtyMax = defaultQtyMax
	}
	if c.SupplyBase == 0 {
		c.SupplyBase = defaultSupplyBase
	}
	if len(c.Customers) == 0 {
		c.Customers = DefaultCustomers()
	}
	return c
}

func (c Config) validate() error {
	if c.Weeks < 1 {
		return fmt.Errorf("mockgen: weeks %d: %w", c.Weeks, alloc.ErrInvalidPeriod)
	}
	if c.Orders < 0 {
		return fmt.Errorf("mockgen: orders %d: %w", c.Orders, alloc.ErrInvalidQuantity)
	}
	if c.QtyMin < 1 || c.QtyMax < c.QtyMin {
		return fmt.Errorf("mockgen: qty band [%d,%d]: %w", c.QtyMin, c.QtyMax, alloc.ErrInvalidQuantity)
	}
	if c.Noise < 0 {
		return fmt.Errorf("mockgen: noise %d: %w", c.Noise, alloc.ErrInvalidQuantity)
	}
	if c.DipChance < 0 || c.DipChance > 1 {
		return fmt.Errorf("mockgen: dip chance %v out of [0,1]", c.DipChance)
	}
	return nil
}

// DefaultCustomers returns the demo roster: eight customers mirroring the
// production master's tier and segment spread, two at P1 and one each on
// the lower rungs down to P9.
func DefaultCustomers() []ingest.Customer {
	return []ingest.Customer{
		{ID: "CUST-01", Name: "Hyperion Cloud", Tier: alloc.TierP1, Segment: "Data Center"},
		{ID: "CUST-02", Name: "Vantage Compute", Tier: alloc.TierP1, Segment: "Data Center"},
		{ID: "CUST-03", Name: "Meridian Motors", Tier: alloc.TierP2, Segment: "Automotive"},
		{ID: "CUST-04", Name: "Cardia Medical", Tier: alloc.TierP3, Segment: "Healthcare"},
		{ID: "CUST-05", Name: "Orchid Systems", Tier: alloc.TierP4, Segment: "Industrial"},
		{ID: "CUST-06", Name: "Axiom Workstations", Tier: alloc.TierP5, Segment: "Pro Viz"},
		{ID: "CUST-07", Name: "Nimbus Gaming", Tier: alloc.TierP7, Segment: "Gaming OEM"},
		{ID: "CUST-08", Name: "Duneway Retail", Tier: alloc.TierP9, Segment: "Gaming Retail"},
	}
}

// =============================================================================
// GENERATOR
// =============================================================================

// Dataset is one generated batch, ready to run or to write as a snapshot.
type Dataset struct {
	Roster []ingest.Customer
	Supply []alloc.SupplyRecord
	Orders []*alloc.DemandOrder
}

type Generator struct {
	cfg Config
	rng *rand.Rand
}

func New(cfg Config) (*Generator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Generate produces the dataset for this generator's config. Orders come
// back sorted by requested week then id, the order a chronological export
// would have.
func (g *Generator) Generate() (*Dataset, error) {
	periods := g.periods()

	supply, err := g.generateSupply(periods)
	if err != nil {
		return nil, err
	}
	orders, err := g.generateOrders(periods)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Roster: g.cfg.Customers,
		Supply: supply,
		Orders: orders,
	}, nil
}

func (g *Generator) periods() []alloc.Period {
	periods := make([]alloc.Period, g.cfg.Weeks)
	p := g.cfg.Start
	for i := range periods {
		periods[i] = p
		p = p.Next()
	}
	return periods
}

func (g *Generator) generateSupply(periods []alloc.Period) ([]alloc.SupplyRecord, error) {
	supply := make([]alloc.SupplyRecord, 0, len(periods))
	for i, p := range periods {
		level := g.cfg.SupplyBase + g.cfg.SupplyRamp*int64(i)

		// Subcomponent B runs a slightly deeper book, so A is usually
		// the binding constraint and dips on B are visible when they hit.
		subA := level + g.jitter()
		subB := level + g.cfg.Noise/2 + 5 + g.jitter()

		if g.rng.Float64() < g.cfg.DipChance {
			if g.rng.Intn(2) == 0 {
				subA /= 4
			} else {
				subB /= 4
			}
		}

		rec, err := alloc.NewSupplyRecord(p, clampQty(subA), clampQty(subB))
		if err != nil {
			return nil, err
		}
		supply = append(supply, rec)
	}
	return supply, nil
}

func (g *Generator) generateOrders(periods []alloc.Period) ([]*alloc.DemandOrder, error) {
	orders := make([]*alloc.DemandOrder, 0, g.cfg.Orders)
	seen := make(map[alloc.OrderID]bool, g.cfg.Orders)

	for i := 0; i < g.cfg.Orders; i++ {
		id, err := g.orderID(seen)
		if err != nil {
			return nil, err
		}
		cust := g.pickCustomer()
		week := periods[g.rng.Intn(len(periods))]
		qty := g.cfg.QtyMin + g.rng.Int63n(g.cfg.QtyMax-g.cfg.QtyMin+1)

		order, err := alloc.NewDemandOrder(id, cust.ID, cust.Segment, cust.Tier, week, qty)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PeriodRequested.Equal(orders[j].PeriodRequested) {
			return orders[i].PeriodRequested.Before(orders[j].PeriodRequested)
		}
		return orders[i].OrderID < orders[j].OrderID
	})
	return orders, nil
}

// orderID draws ORD- plus six uppercase hex digits from the seeded rng.
// Collisions within a dataset redraw.
func (g *Generator) orderID(seen map[alloc.OrderID]bool) (alloc.OrderID, error) {
	for {
		u, err := uuid.NewRandomFromReader(g.rng)
		if err != nil {
			return "", fmt.Errorf("mockgen: order id: %w", err)
		}
		id := alloc.OrderID("ORD-" + strings.ToUpper(hex.EncodeToString(u[:3])))
		if !seen[id] {
			seen[id] = true
			return id, nil
		}
	}
}

// pickCustomer draws by tier weight, P1 a nine-times heavier draw than P9.
func (g *Generator) pickCustomer() ingest.Customer {
	total := int64(0)
	for _, c := range g.cfg.Customers {
		total += tierWeight(c.Tier)
	}
	n := g.rng.Int63n(total)
	for _, c := range g.cfg.Customers {
		n -= tierWeight(c.Tier)
		if n < 0 {
			return c
		}
	}
	return g.cfg.Customers[len(g.cfg.Customers)-1]
}

func tierWeight(t alloc.PriorityTier) int64 {
	return int64(10 - int(t))
}

func (g *Generator) jitter() int64 {
	if g.cfg.Noise == 0 {
		return 0
	}
	return g.rng.Int63n(2*g.cfg.Noise+1) - g.cfg.Noise
}

func clampQty(q int64) int64 {
	if q < 0 {
		return 0
	}
	return q
}

// =============================================================================
// SNAPSHOT OUTPUT
// =============================================================================

// WriteSnapshot generates a dataset and writes it to dir in the exact
// layout snapshot discovery expects: timestamped supply and demand CSVs
// plus the roster.
func (g *Generator) WriteSnapshot(dir string) (ingest.Snapshot, error) {
	ds, err := g.Generate()
	if err != nil {
		return ingest.Snapshot{}, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ingest.Snapshot{}, fmt.Errorf("mockgen: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	snap := ingest.Snapshot{
		SupplyPath: filepath.Join(dir, "supply_data_"+stamp+".csv"),
		DemandPath: filepath.Join(dir, "demand_data_"+stamp+".csv"),
		RosterPath: filepath.Join(dir, ingest.RosterName),
	}

	if err := writeSupplyCSV(snap.SupplyPath, ds.Supply); err != nil {
		return ingest.Snapshot{}, err
	}
	if err := writeDemandCSV(snap.DemandPath, ds.Orders); err != nil {
		return ingest.Snapshot{}, err
	}
	if err := ingest.SaveRoster(snap.RosterPath, ds.Roster); err != nil {
		return ingest.Snapshot{}, err
	}
	return snap, nil
}

func writeSupplyCSV(path string, supply []alloc.SupplyRecord) error {
	rows := [][]string{{"week", "subcomponent_a_qty", "subcomponent_b_qty"}}
	for _, s := range supply {
		rows = append(rows, []string{
			s.Period.String(),
			strconv.FormatInt(s.SubcomponentA, 10),
			strconv.FormatInt(s.SubcomponentB, 10),
		})
	}
	return writeCSV(path, rows)
}

func writeDemandCSV(path string, orders []*alloc.DemandOrder) error {
	rows := [][]string{{"order_id", "customer_id", "week_requested", "qty_ordered"}}
	for _, o := range orders {
		rows = append(rows, []string{
			string(o.OrderID),
			string(o.CustomerID),
			o.PeriodRequested.String(),
			strconv.FormatInt(o.QtyOrdered, 10),
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mockgen: %w", err)
	}

	// WriteAll flushes; the close error still matters for short writes.
	if err := csv.NewWriter(file).WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("mockgen: write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("mockgen: write %s: %w", path, err)
	}
	return nil
}
