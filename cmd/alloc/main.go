/*
main.go - Batch CLI for the allocation engine

PURPOSE:
  One-shot companion to the allocd daemon, for pipelines and local work:
  generate mock snapshot data, or run the engine over the newest snapshot
  and write the report CSVs.

COMMANDS:
  generate  Generate a seeded snapshot pair (plus roster) into a data
            directory. Same seed, same dataset.
  run       Ingest the newest snapshot, run the engine, write the three
            report CSVs, and optionally persist the run to history.

COMMAND-LINE FLAGS:
  generate:
    -out     output data directory (default: ./data_inputs)
    -weeks   horizon length in weeks (default: 12)
    -orders  number of demand orders (default: 60)
    -seed    rng seed (default: 1)
    -roster  roster YAML to generate against (default: built-in demo roster)

  run:
    -data    snapshot data directory (default: ./data_inputs)
    -out     report output directory (default: ./data_outputs)
    -db      SQLite history database; empty skips persistence

EXAMPLES:
  # Produce a demo dataset and run it end to end
  ./alloc generate -out ./data_inputs -seed 7
  ./alloc run -data ./data_inputs -out ./data_outputs -db ./history.db

SEE ALSO:
  - mockgen/mockgen.go: dataset generation
  - ingest/discover.go: snapshot discovery
  - report/csv.go: report files
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/warp/allocation-engine/alloc"
	"github.com/warp/allocation-engine/ingest"
	"github.com/warp/allocation-engine/mockgen"
	"github.com/warp/allocation-engine/report"
	"github.com/warp/allocation-engine/store/sqlite"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "alloc")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:], log)
	case "run":
		err = runRun(os.Args[2:], log)
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: alloc <command> [flags]

Commands:
  generate   Generate a mock snapshot pair into a data directory
  run        Run the engine on the newest snapshot and write reports

Run 'alloc <command> -h' for command flags.
`)
}

// =============================================================================
// GENERATE
// =============================================================================

func runGenerate(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("out", "./data_inputs", "output data directory")
	weeks := fs.Int("weeks", 12, "horizon length in weeks")
	orders := fs.Int("orders", 60, "number of demand orders")
	seed := fs.Int64("seed", 1, "rng seed")
	rosterPath := fs.String("roster", "", "roster YAML to generate against (default: built-in demo roster)")
	fs.Parse(args)

	cfg := mockgen.DemoConfig()
	cfg.Weeks = *weeks
	cfg.Orders = *orders
	cfg.Seed = *seed

	if *rosterPath != "" {
		roster, err := ingest.LoadRoster(*rosterPath)
		if err != nil {
			return err
		}
		cfg.Customers = roster.Customers()
	}

	gen, err := mockgen.New(cfg)
	if err != nil {
		return err
	}
	snap, err := gen.WriteSnapshot(*out)
	if err != nil {
		return err
	}

	log.Info("snapshot written",
		"supply", snap.SupplyPath,
		"demand", snap.DemandPath,
		"roster", snap.RosterPath,
		"weeks", *weeks,
		"orders", *orders,
		"seed", *seed,
	)
	return nil
}

// =============================================================================
// RUN
// =============================================================================

func runRun(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dataDir := fs.String("data", "./data_inputs", "snapshot data directory")
	outDir := fs.String("out", "./data_outputs", "report output directory")
	dbPath := fs.String("db", "", "SQLite history database; empty skips persistence")
	fs.Parse(args)

	in, err := ingest.LoadLatest(*dataDir)
	if err != nil {
		return err
	}
	log.Info("snapshot loaded",
		"supply", in.Snapshot.SupplyName(),
		"demand", in.Snapshot.DemandName(),
		"weeks", len(in.Supply),
		"orders", len(in.Orders),
	)

	out, err := alloc.NewEngine().Run(alloc.RunInput{Supply: in.Supply, Orders: in.Orders})
	if err != nil {
		return err
	}

	rec := alloc.NewRunRecord(alloc.RunID(uuid.NewString()), time.Now().UTC(),
		in.Snapshot.SupplyName(), in.Snapshot.DemandName(), in.Orders, out)

	files, err := report.WriteFiles(*outDir, out)
	if err != nil {
		return err
	}

	if *dbPath != "" {
		store, err := sqlite.New(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SaveRun(context.Background(), rec, out); err != nil {
			return err
		}
		log.Info("run saved", "run", rec.ID, "db", *dbPath)
	}

	log.Info("run complete",
		"run", rec.ID,
		"first_period", rec.FirstPeriod.String(),
		"last_period", rec.LastPeriod.String(),
		"total_demand", rec.TotalDemand,
		"total_allocated", rec.TotalAllocated,
		"open_orders", len(out.Backlog),
		"reports", files,
	)
	return nil
}
