package mockgen_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/alloc"
	"github.com/warp/allocation-engine/ingest"
	"github.com/warp/allocation-engine/mockgen"
)

// =============================================================================
// DETERMINISM
// =============================================================================

func TestGenerate_SameSeed_SameDataset(t *testing.T) {
	// GIVEN: Two generators with identical configs
	// WHEN: Generating
	// THEN: Supply series and order books are identical

	cfg := mockgen.Config{Seed: 42, Weeks: 8, Orders: 40}

	g1, err := mockgen.New(cfg)
	require.NoError(t, err)
	g2, err := mockgen.New(cfg)
	require.NoError(t, err)

	ds1, err := g1.Generate()
	require.NoError(t, err)
	ds2, err := g2.Generate()
	require.NoError(t, err)

	require.Equal(t, len(ds1.Supply), len(ds2.Supply))
	for i := range ds1.Supply {
		assert.Equal(t, ds1.Supply[i], ds2.Supply[i])
	}

	require.Equal(t, len(ds1.Orders), len(ds2.Orders))
	for i := range ds1.Orders {
		assert.Equal(t, ds1.Orders[i].OrderID, ds2.Orders[i].OrderID)
		assert.Equal(t, ds1.Orders[i].CustomerID, ds2.Orders[i].CustomerID)
		assert.Equal(t, ds1.Orders[i].PeriodRequested, ds2.Orders[i].PeriodRequested)
		assert.Equal(t, ds1.Orders[i].QtyOrdered, ds2.Orders[i].QtyOrdered)
	}
}

func TestGenerate_DifferentSeeds_DifferentOrders(t *testing.T) {
	g1, err := mockgen.New(mockgen.Config{Seed: 1, Orders: 30})
	require.NoError(t, err)
	g2, err := mockgen.New(mockgen.Config{Seed: 2, Orders: 30})
	require.NoError(t, err)

	ds1, err := g1.Generate()
	require.NoError(t, err)
	ds2, err := g2.Generate()
	require.NoError(t, err)

	ids1 := make(map[alloc.OrderID]bool)
	for _, o := range ds1.Orders {
		ids1[o.OrderID] = true
	}
	overlap := 0
	for _, o := range ds2.Orders {
		if ids1[o.OrderID] {
			overlap++
		}
	}
	assert.Less(t, overlap, len(ds2.Orders), "different seeds should not reproduce the same order book")
}

// =============================================================================
// DATASET SHAPE
// =============================================================================

func TestGenerate_RespectsConfig(t *testing.T) {
	start := alloc.Period{Year: 2026, Week: 10}
	cfg := mockgen.Config{
		Start:  start,
		Weeks:  6,
		Orders: 25,
		Seed:   7,
		QtyMin: 20,
		QtyMax: 30,
	}
	g, err := mockgen.New(cfg)
	require.NoError(t, err)

	ds, err := g.Generate()
	require.NoError(t, err)

	require.Len(t, ds.Supply, 6)
	assert.Equal(t, start, ds.Supply[0].Period)
	last := ds.Supply[5].Period
	assert.Equal(t, alloc.Period{Year: 2026, Week: 15}, last)

	require.Len(t, ds.Orders, 25)
	for _, o := range ds.Orders {
		assert.GreaterOrEqual(t, o.QtyOrdered, int64(20))
		assert.LessOrEqual(t, o.QtyOrdered, int64(30))
		assert.False(t, o.PeriodRequested.Before(start), "order inside the horizon")
		assert.False(t, last.Before(o.PeriodRequested), "order inside the horizon")
	}
}

func TestGenerate_OrderIDFormat(t *testing.T) {
	g, err := mockgen.New(mockgen.Config{Seed: 3, Orders: 50})
	require.NoError(t, err)

	ds, err := g.Generate()
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{6}$`)
	seen := make(map[alloc.OrderID]bool)
	for _, o := range ds.Orders {
		assert.Regexp(t, pattern, string(o.OrderID))
		assert.False(t, seen[o.OrderID], "order ids must be unique within a dataset")
		seen[o.OrderID] = true
	}
}

func TestGenerate_OrdersSortedByWeekThenID(t *testing.T) {
	g, err := mockgen.New(mockgen.Config{Seed: 5, Orders: 40})
	require.NoError(t, err)

	ds, err := g.Generate()
	require.NoError(t, err)

	for i := 1; i < len(ds.Orders); i++ {
		prev, curr := ds.Orders[i-1], ds.Orders[i]
		if prev.PeriodRequested.Equal(curr.PeriodRequested) {
			assert.Less(t, string(prev.OrderID), string(curr.OrderID))
		} else {
			assert.True(t, prev.PeriodRequested.Before(curr.PeriodRequested))
		}
	}
}

func TestGenerate_WeightsHighTiers(t *testing.T) {
	// GIVEN: The default roster, which spans P1 through P9
	// WHEN: Generating a large order book
	// THEN: P1 customers land far more orders than the P9 customer

	g, err := mockgen.New(mockgen.Config{Seed: 11, Orders: 600})
	require.NoError(t, err)

	ds, err := g.Generate()
	require.NoError(t, err)

	byTier := make(map[alloc.PriorityTier]int)
	for _, o := range ds.Orders {
		byTier[o.Tier]++
	}
	assert.Greater(t, byTier[alloc.TierP1], byTier[alloc.TierP9],
		"tier weighting should favor P1 customers")
}

func TestDefaultCustomers_SpanTiersAndSegments(t *testing.T) {
	customers := mockgen.DefaultCustomers()
	require.Len(t, customers, 8)

	p1 := 0
	segments := make(map[string]bool)
	for _, c := range customers {
		require.True(t, c.Tier.Valid())
		if c.Tier == alloc.TierP1 {
			p1++
		}
		segments[c.Segment] = true
	}
	assert.Equal(t, 2, p1, "two data center customers share the top tier")
	assert.Len(t, segments, 7)
}

// =============================================================================
// CONFIG VALIDATION
// =============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  mockgen.Config
	}{
		{"inverted qty band", mockgen.Config{QtyMin: 50, QtyMax: 10}},
		{"negative weeks", mockgen.Config{Weeks: -1}},
		{"dip chance above one", mockgen.Config{DipChance: 1.5}},
		{"negative noise", mockgen.Config{Noise: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mockgen.New(tc.cfg)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// SNAPSHOT ROUND TRIP
// =============================================================================

func TestWriteSnapshot_LoadableByIngest(t *testing.T) {
	// GIVEN: A generated snapshot written to a data directory
	// WHEN: Loading the latest snapshot through ingest
	// THEN: The loaded input matches the generated dataset

	dir := t.TempDir()
	g, err := mockgen.New(mockgen.Config{Seed: 9, Weeks: 5, Orders: 20})
	require.NoError(t, err)

	snap, err := g.WriteSnapshot(dir)
	require.NoError(t, err)
	assert.Contains(t, snap.SupplyName(), "supply_data_")
	assert.Contains(t, snap.DemandName(), "demand_data_")

	input, err := ingest.LoadLatest(dir)
	require.NoError(t, err)

	assert.Len(t, input.Supply, 5)
	assert.Len(t, input.Orders, 20)
	assert.Equal(t, 8, input.Roster.Len())

	// A written snapshot must run end to end.
	out, err := alloc.NewEngine().Run(alloc.RunInput{Supply: input.Supply, Orders: input.Orders})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Summaries)
}
