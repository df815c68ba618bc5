package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// SNAPSHOT DISCOVERY - Locate the newest export pair in a data directory
// =============================================================================

// Snapshot files carry the export timestamp in the name, e.g.
// supply_data_20260302_081500.csv. The roster is a single stable file
// replaced in place.
const (
	SupplyPattern = "supply_data_*.csv"
	DemandPattern = "demand_data_*.csv"
	RosterName    = "roster.yaml"
)

// Snapshot is one matched pair of supply and demand exports plus the
// roster they were produced against.
type Snapshot struct {
	SupplyPath string
	DemandPath string
	RosterPath string
}

// SupplyName returns the supply file's base name, used to tell one
// snapshot from the next without comparing full paths.
func (s Snapshot) SupplyName() string {
	return filepath.Base(s.SupplyPath)
}

// DemandName returns the demand file's base name.
func (s Snapshot) DemandName() string {
	return filepath.Base(s.DemandPath)
}

// Input is a fully loaded snapshot, ready to hand to the engine.
type Input struct {
	Snapshot Snapshot
	Roster   *Roster
	Supply   []alloc.SupplyRecord
	Orders   []*alloc.DemandOrder
}

// DiscoverSnapshot finds the newest supply and demand exports in dir.
// Newest means latest modification time; names break ties, which for
// timestamped exports picks the later stamp.
func DiscoverSnapshot(dir string) (Snapshot, error) {
	supplyPath, err := newestMatch(dir, SupplyPattern)
	if err != nil {
		return Snapshot{}, err
	}
	demandPath, err := newestMatch(dir, DemandPattern)
	if err != nil {
		return Snapshot{}, err
	}

	rosterPath := filepath.Join(dir, RosterName)
	if _, err := os.Stat(rosterPath); err != nil {
		return Snapshot{}, fmt.Errorf("roster %s: %w", rosterPath, err)
	}

	return Snapshot{
		SupplyPath: supplyPath,
		DemandPath: demandPath,
		RosterPath: rosterPath,
	}, nil
}

// LoadSnapshot loads an already discovered snapshot from disk.
func LoadSnapshot(snap Snapshot) (*Input, error) {
	roster, err := LoadRoster(snap.RosterPath)
	if err != nil {
		return nil, err
	}
	supply, err := LoadSupply(snap.SupplyPath)
	if err != nil {
		return nil, err
	}
	orders, err := LoadDemand(snap.DemandPath, roster)
	if err != nil {
		return nil, err
	}

	return &Input{
		Snapshot: snap,
		Roster:   roster,
		Supply:   supply,
		Orders:   orders,
	}, nil
}

// LoadLatest discovers and loads the newest snapshot in dir.
func LoadLatest(dir string) (*Input, error) {
	snap, err := DiscoverSnapshot(dir)
	if err != nil {
		return nil, err
	}
	return LoadSnapshot(snap)
}

func newestMatch(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%s in %s: %w", pattern, dir, ErrNoSnapshot)
	}

	newest := ""
	var newestMod int64
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		mod := info.ModTime().UnixNano()
		if newest == "" || mod > newestMod || (mod == newestMod && path > newest) {
			newest = path
			newestMod = mod
		}
	}
	return newest, nil
}
