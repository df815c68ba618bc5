/*
main.go - Allocation service entry point

PURPOSE:
  Starts the allocation daemon: the REST API over a SQLite-backed run
  history, plus the snapshot watcher polling the data directory for new
  supply/demand exports.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the SQLite run store
  3. Create the API handler and snapshot watcher
  4. Configure the HTTP router
  5. Serve until SIGINT/SIGTERM, then drain

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: allocation.db)
                   Use ":memory:" for throwaway history
  -data            Snapshot data directory (default: ./data_inputs)
  -watch-interval  Poll interval for new snapshots; 0 disables (default: 1m)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the snapshot watcher and wait for an in-flight run
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database
  5. Exit

EXAMPLES:
  # Watch a shared export directory
  ./allocd -data=/mnt/planning/exports -db=./history.db

  # API only, no polling
  ./allocd -watch-interval=0

SEE ALSO:
  - api/server.go: Router configuration
  - api/watcher.go: Snapshot polling
  - store/sqlite/sqlite.go: Run history
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/allocation-engine/api"
	"github.com/warp/allocation-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "allocation.db", "SQLite database path")
	dataDir := flag.String("data", "./data_inputs", "snapshot data directory")
	watchInterval := flag.Duration("watch-interval", time.Minute, "snapshot poll interval; 0 disables the watcher")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "allocd")
	slog.SetDefault(log)

	if err := run(*port, *dbPath, *dataDir, *watchInterval, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(port int, dbPath, dataDir string, watchInterval time.Duration, log *slog.Logger) error {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, dataDir, log)
	watcher := api.NewSnapshotWatcher(handler, watchInterval)
	handler.Watcher = watcher

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	watcher.Start()
	defer watcher.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "db", dbPath, "data", dataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
