/*
Package sqlite provides a SQLite-backed implementation of alloc.RunStore.

PURPOSE:
  Persists completed allocation runs for the daemon: the run record plus
  its per-order results, weekly summaries, and tier waterfall rows. The
  same schema would port to PostgreSQL with minor dialect changes.

APPEND-ONLY ENFORCEMENT:
  Runs are immutable once saved:
  - SaveRun is the only write, and it rejects an existing run id
  - No UPDATE or DELETE statements exist for run data
  - A corrected run is a new run with a new id

KEY TABLES:
  runs:          One row per run (metadata and totals)
  run_results:   Per-order rows, seq column preserves engine emission order
  run_summaries: One row per run per week
  run_tiers:     One row per run per week per tier (full P1..P9 waterfall)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. Periods are
  stored as their zero-padded labels (2026-W01), which sort correctly as
  text.

USAGE:
  store, err := sqlite.New("./data/alloc.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - alloc/store.go: interface definition and append-only contract
  - alloc/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/allocation-engine/alloc"
)

// Store implements alloc.RunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Runs (one row per completed allocation run)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		supply_source TEXT NOT NULL DEFAULT '',
		demand_source TEXT NOT NULL DEFAULT '',
		first_period TEXT NOT NULL,
		last_period TEXT NOT NULL,
		order_count INTEGER NOT NULL,
		total_demand INTEGER NOT NULL,
		total_allocated INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON runs(created_at DESC);

	-- Per-order allocation rows. seq preserves the engine's emission
	-- order (period, then tier, then backlog age) for stable reads.
	CREATE TABLE IF NOT EXISTS run_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		period TEXT NOT NULL,
		order_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		segment TEXT NOT NULL,
		tier INTEGER NOT NULL,
		qty_ordered INTEGER NOT NULL,
		qty_allocated INTEGER NOT NULL,
		qty_allocated_period INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_results_run_period
		ON run_results(run_id, period);
	CREATE INDEX IF NOT EXISTS idx_results_run_order
		ON run_results(run_id, order_id);

	-- Weekly rollups
	CREATE TABLE IF NOT EXISTS run_summaries (
		run_id TEXT NOT NULL REFERENCES runs(id),
		period TEXT NOT NULL,
		global_limit INTEGER NOT NULL,
		total_demand INTEGER NOT NULL,
		total_allocated INTEGER NOT NULL,
		constraint_source TEXT NOT NULL,
		PRIMARY KEY (run_id, period)
	);

	-- Tier waterfall, every tier every week
	CREATE TABLE IF NOT EXISTS run_tiers (
		run_id TEXT NOT NULL REFERENCES runs(id),
		period TEXT NOT NULL,
		tier INTEGER NOT NULL,
		demand INTEGER NOT NULL,
		allocated INTEGER NOT NULL,
		PRIMARY KEY (run_id, period, tier)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN STORE (alloc.RunStore interface)
// =============================================================================

// SaveRun persists a run and all of its outputs in one transaction.
// Returns alloc.ErrDuplicateRunID if the id has been saved before.
func (s *Store) SaveRun(ctx context.Context, rec alloc.RunRecord, out *alloc.RunOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, supply_source, demand_source, first_period, last_period,
		 order_count, total_demand, total_allocated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.SupplySource,
		rec.DemandSource,
		rec.FirstPeriod.String(),
		rec.LastPeriod.String(),
		rec.OrderCount,
		rec.TotalDemand,
		rec.TotalAllocated,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("run %s: %w", rec.ID, alloc.ErrDuplicateRunID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for seq, r := range out.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_results
			(run_id, seq, period, order_id, customer_id, segment, tier,
			 qty_ordered, qty_allocated, qty_allocated_period, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, seq, r.Period.String(), r.OrderID, r.CustomerID, r.Segment,
			int(r.Tier), r.QtyOrdered, r.QtyAllocated, r.QtyAllocatedThisPeriod,
			string(r.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	for _, sum := range out.Summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_summaries
			(run_id, period, global_limit, total_demand, total_allocated, constraint_source)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, sum.Period.String(), sum.GlobalLimit, sum.TotalDemand,
			sum.TotalAllocated, string(sum.ConstrainingSubcomponent),
		)
		if err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
	}

	for _, t := range out.Tiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_tiers (run_id, period, tier, demand, allocated)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, t.Period.String(), int(t.Tier), t.Demand, t.Allocated,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tier row: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun returns one run's metadata.
func (s *Store) GetRun(ctx context.Context, id alloc.RunID) (*alloc.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, supply_source, demand_source, first_period,
		       last_period, order_count, total_demand, total_allocated
		FROM runs WHERE id = ?`, id)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, alloc.ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]alloc.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, supply_source, demand_source, first_period,
		       last_period, order_count, total_demand, total_allocated
		FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []alloc.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}

// Results returns a run's allocation rows in engine order, filtered.
func (s *Store) Results(ctx context.Context, id alloc.RunID, filter alloc.ResultFilter) ([]alloc.AllocationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.runExists(ctx, id); err != nil {
		return nil, err
	}

	query := `
		SELECT period, order_id, customer_id, segment, tier,
		       qty_ordered, qty_allocated, qty_allocated_period, status
		FROM run_results WHERE run_id = ?`
	args := []any{id}

	if filter.Period != nil {
		query += " AND period = ?"
		args = append(args, filter.Period.String())
	}
	if filter.Tier != nil {
		query += " AND tier = ?"
		args = append(args, int(*filter.Tier))
	}
	if filter.OrderID != nil {
		query += " AND order_id = ?"
		args = append(args, *filter.OrderID)
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]alloc.AllocationResult, 0)
	for rows.Next() {
		var (
			r      alloc.AllocationResult
			period string
			tier   int
			status string
		)
		if err := rows.Scan(&period, &r.OrderID, &r.CustomerID, &r.Segment, &tier,
			&r.QtyOrdered, &r.QtyAllocated, &r.QtyAllocatedThisPeriod, &status); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Period, err = alloc.ParsePeriod(period)
		if err != nil {
			return nil, err
		}
		r.Tier = alloc.PriorityTier(tier)
		r.Status = alloc.OrderStatus(status)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Summaries returns a run's weekly summaries in period order.
func (s *Store) Summaries(ctx context.Context, id alloc.RunID) ([]alloc.PeriodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.runExists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT period, global_limit, total_demand, total_allocated, constraint_source
		FROM run_summaries WHERE run_id = ? ORDER BY period ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]alloc.PeriodSummary, 0)
	for rows.Next() {
		var (
			sum    alloc.PeriodSummary
			period string
			source string
		)
		if err := rows.Scan(&period, &sum.GlobalLimit, &sum.TotalDemand,
			&sum.TotalAllocated, &source); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		sum.Period, err = alloc.ParsePeriod(period)
		if err != nil {
			return nil, err
		}
		sum.ConstrainingSubcomponent = alloc.ConstraintSource(source)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// TierAllocations returns a run's waterfall rows in period then tier order.
func (s *Store) TierAllocations(ctx context.Context, id alloc.RunID) ([]alloc.TierAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.runExists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT period, tier, demand, allocated
		FROM run_tiers WHERE run_id = ? ORDER BY period ASC, tier ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier rows: %w", err)
	}
	defer rows.Close()

	tiers := make([]alloc.TierAllocation, 0)
	for rows.Next() {
		var (
			t      alloc.TierAllocation
			period string
			tier   int
		)
		if err := rows.Scan(&period, &tier, &t.Demand, &t.Allocated); err != nil {
			return nil, fmt.Errorf("failed to scan tier row: %w", err)
		}
		t.Period, err = alloc.ParsePeriod(period)
		if err != nil {
			return nil, err
		}
		t.Tier = alloc.PriorityTier(tier)
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"run_results", "run_summaries", "run_tiers", "runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) runExists(ctx context.Context, id alloc.RunID) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("run %s: %w", id, alloc.ErrRunNotFound)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*alloc.RunRecord, error) {
	var (
		rec         alloc.RunRecord
		createdAt   string
		firstPeriod string
		lastPeriod  string
	)
	err := row.Scan(&rec.ID, &createdAt, &rec.SupplySource, &rec.DemandSource,
		&firstPeriod, &lastPeriod, &rec.OrderCount, &rec.TotalDemand, &rec.TotalAllocated)
	if err != nil {
		return nil, err
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run created_at: %w", err)
	}
	rec.FirstPeriod, err = alloc.ParsePeriod(firstPeriod)
	if err != nil {
		return nil, err
	}
	rec.LastPeriod, err = alloc.ParsePeriod(lastPeriod)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
