/*
watcher.go - Snapshot directory polling

PURPOSE:
  Watches the data directory for new snapshot exports and runs each new
  pair exactly once. Planning exports land as timestamped files, so
  polling base names is enough to notice a new generation without any
  filesystem event plumbing.

DESIGN:
  - Background goroutine with a configurable poll interval; interval
    zero disables the watcher entirely
  - A snapshot pair is identified by its supply+demand base names
  - A pair is marked seen before it runs, so a bad export is attempted
    once and logged, not retried every tick
  - Stop() blocks until the goroutine exits

USAGE:
  watcher := api.NewSnapshotWatcher(handler, time.Minute)
  watcher.Start()
  // ... later
  watcher.Stop()

SEE ALSO:
  - scenarios.go: MarkSeen, so scenario loads don't double-run
  - ingest/discover.go: snapshot discovery
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/warp/allocation-engine/ingest"
)

// SnapshotWatcher polls the data directory and runs new snapshot pairs.
// Start and Stop are meant to be called once each, from the owning
// goroutine; RunNow and MarkSeen are safe to call concurrently.
type SnapshotWatcher struct {
	Handler  *Handler
	Interval time.Duration

	mu         sync.Mutex
	lastSupply string // base names of the pair last run
	lastDemand string

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewSnapshotWatcher creates a watcher polling the handler's data
// directory at the given interval.
func NewSnapshotWatcher(h *Handler, interval time.Duration) *SnapshotWatcher {
	return &SnapshotWatcher{
		Handler:  h,
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins polling. An interval of zero or less disables the
// watcher; Stop stays safe to call either way.
func (sw *SnapshotWatcher) Start() {
	if sw.Interval <= 0 {
		sw.Handler.Log.Info("snapshot watcher disabled")
		return
	}

	sw.ticker = time.NewTicker(sw.Interval)
	sw.wg.Add(1)
	go sw.run()

	sw.Handler.Log.Info("snapshot watcher started", "interval", sw.Interval, "dir", sw.Handler.DataDir)
}

// Stop halts polling and waits for the watcher goroutine to exit.
func (sw *SnapshotWatcher) Stop() {
	if sw.ticker == nil {
		return
	}
	sw.ticker.Stop()
	close(sw.stop)
	sw.wg.Wait()
	sw.Handler.Log.Info("snapshot watcher stopped")
}

func (sw *SnapshotWatcher) run() {
	defer sw.wg.Done()

	// Pick up anything already in the directory on startup.
	sw.poll()

	for {
		select {
		case <-sw.ticker.C:
			sw.poll()
		case <-sw.stop:
			return
		}
	}
}

func (sw *SnapshotWatcher) poll() {
	if _, err := sw.RunNow(context.Background()); err != nil {
		sw.Handler.Log.Error("snapshot run failed", "error", err)
	}
}

// RunNow polls once, reporting whether a new snapshot pair was found.
// An empty data directory is not an error; it means nothing to do yet.
func (sw *SnapshotWatcher) RunNow(ctx context.Context) (bool, error) {
	snap, err := ingest.DiscoverSnapshot(sw.Handler.DataDir)
	if err != nil {
		if errors.Is(err, ingest.ErrNoSnapshot) || errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if !sw.markSeenIfNew(snap) {
		return false, nil
	}

	in, err := ingest.LoadSnapshot(snap)
	if err != nil {
		return true, fmt.Errorf("snapshot %s: %w", snap.SupplyName(), err)
	}

	resp, err := sw.Handler.executeRun(ctx, snap.SupplyName(), snap.DemandName(), in.Supply, in.Orders)
	if err != nil {
		return true, fmt.Errorf("snapshot %s: %w", snap.SupplyName(), err)
	}

	sw.Handler.Log.Info("snapshot run complete",
		"run", resp.Run.ID,
		"supply", snap.SupplyName(),
		"demand", snap.DemandName(),
	)
	return true, nil
}

// MarkSeen records a pair as already run, so the next poll skips it.
func (sw *SnapshotWatcher) MarkSeen(snap ingest.Snapshot) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.lastSupply = snap.SupplyName()
	sw.lastDemand = snap.DemandName()
}

// markSeenIfNew marks the pair seen and reports whether it was new.
func (sw *SnapshotWatcher) markSeenIfNew(snap ingest.Snapshot) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	supply, demand := snap.SupplyName(), snap.DemandName()
	if supply == sw.lastSupply && demand == sw.lastDemand {
		return false
	}
	sw.lastSupply = supply
	sw.lastDemand = demand
	return true
}
