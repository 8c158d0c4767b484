package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fleet_console/internal/api"
	"fleet_console/internal/console"
	"fleet_console/internal/messaging/inproc"
	"fleet_console/internal/metrics"
	sqlitestore "fleet_console/internal/store/sqlite"
	"fleet_console/internal/workflow"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the workflow player",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "http listen address override")
	cmd.Flags().String("db", "", "sqlite journal path override")
	cmd.Flags().String("script", "", "workflow script (YAML) override")
	cmd.Flags().Bool("no-journal", false, "do not record player transitions")
	cmd.Flags().Bool("autostart", false, "start the workflow as soon as the server is up")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addrFlag, _ := cmd.Flags().GetString("addr")
	dbFlag, _ := cmd.Flags().GetString("db")
	scriptFlag, _ := cmd.Flags().GetString("script")
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	autostart, _ := cmd.Flags().GetBool("autostart")

	addr := firstNonEmpty(addrFlag, cfg.Console.Addr, ":8092")
	script, err := loadScript(firstNonEmpty(scriptFlag, cfg.Workflow.ScriptPath))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var journal console.Journal
	if !noJournal && !cfg.Console.DisableJournal {
		dbPath := filepath.Clean(firstNonEmpty(dbFlag, cfg.Console.JournalPath, "data/fleet_console.db"))
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
		store, err := sqlitestore.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open sqlite journal: %w", err)
		}
		defer func() {
			_ = store.Close()
		}()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate sqlite journal: %w", err)
		}
		journal = store
		logger.Info().Str("path", dbPath).Msg("journal enabled")
	}

	bus := inproc.New(cfg.Console.BusBuffer)
	defer bus.Close()

	svc := console.New(script, journal, bus, console.Config{
		Interval:     durationMS(cfg.Workflow.IntervalMS, workflow.DefaultInterval),
		Seed:         cfg.Metrics.Seed,
		JournalLimit: cfg.Console.JournalLimit,
		Sizes: metrics.Sizes{
			Orders:   cfg.Metrics.Orders,
			Clusters: cfg.Metrics.Clusters,
			Routes:   cfg.Metrics.Routes,
			Drivers:  cfg.Metrics.Drivers,
		},
	}, logger)
	svc.Start(ctx)
	defer svc.Close()

	if autostart || cfg.Workflow.AutoStart {
		svc.StartWorkflow()
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.New(svc, cfg, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Str("script", script.Name).Msg("console listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), durationMS(cfg.Console.ShutdownMS, 5*time.Second))
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		logger.Info().Msg("console stopped")
		return nil
	})
	return g.Wait()
}
