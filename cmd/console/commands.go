package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleet_console/internal/domain"
	"fleet_console/internal/messaging/inproc"
	"fleet_console/internal/metrics"
	"fleet_console/internal/workflow"
)

const playSubscriber = "stdout"

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the workflow headless and print each transition until it finishes",
		RunE:  runPlay,
	}
	cmd.Flags().Duration("interval", 0, "stage interval override (default from config)")
	cmd.Flags().String("script", "", "workflow script (YAML) override")
	cmd.Flags().Bool("json", false, "print events as JSON lines")
	return cmd
}

func runPlay(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	intervalFlag, _ := cmd.Flags().GetDuration("interval")
	scriptFlag, _ := cmd.Flags().GetString("script")
	asJSON, _ := cmd.Flags().GetBool("json")

	script, err := loadScript(firstNonEmpty(scriptFlag, cfg.Workflow.ScriptPath))
	if err != nil {
		return err
	}
	interval := intervalFlag
	if interval <= 0 {
		interval = durationMS(cfg.Workflow.IntervalMS, workflow.DefaultInterval)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bus := inproc.New(cfg.Console.BusBuffer)
	defer bus.Close()
	events := bus.Register(playSubscriber)

	player := workflow.New(script, workflow.Config{Interval: interval}, bus, logger)
	defer player.Close()

	out := cmd.OutOrStdout()
	if player.Snapshot().Terminal {
		fmt.Fprintln(out, "script has nothing to play")
		return nil
	}
	player.Start()

	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := printEvent(out, script, ev, asJSON); err != nil {
				return err
			}
			if ev.Kind == domain.PlayerEventCompleted {
				return nil
			}
		}
	}
}

func printEvent(w io.Writer, script domain.Script, ev domain.PlayerEvent, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(ev)
	}
	agent, _ := script.Agent(ev.Agent)
	name := agent.Name
	if name == "" {
		name = ev.Agent
	}
	fmt.Fprintf(w, "%s  %-9s  #%d %-20s %s\n", ev.At.Format(time.TimeOnly), ev.Kind, ev.Cursor, ev.StageID, name)
	if ev.Message != nil {
		fmt.Fprintf(w, "           %s -> %s: %s\n", ev.Message.From, ev.Message.To, ev.Message.Text)
	}
	return nil
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [section]",
		Short: "Print a generated dashboard dataset as JSON",
		Long:  "Sections: stats, orders, clusters, routes, drivers, tracking, charts. Without a section the whole dataset is printed.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshot,
	}
	cmd.Flags().Int64("seed", 0, "generator seed override (0 uses the config seed, or the clock)")
	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetInt64("seed")
	if seed == 0 {
		seed = cfg.Metrics.Seed
	}

	data := metrics.Generate(metrics.NewRand(seed), metrics.Sizes{
		Orders:   cfg.Metrics.Orders,
		Clusters: cfg.Metrics.Clusters,
		Routes:   cfg.Metrics.Routes,
		Drivers:  cfg.Metrics.Drivers,
	}, time.Now().UTC())

	var payload any = data
	if len(args) == 1 {
		switch args[0] {
		case "stats":
			payload = data.Stats
		case "orders":
			payload = data.Orders
		case "clusters":
			payload = data.Clusters
		case "routes":
			payload = data.Routes
		case "drivers":
			payload = data.Drivers
		case "tracking":
			payload = data.Tracking
		case "charts":
			payload = data.Charts
		default:
			return fmt.Errorf("unknown section: %s", args[0])
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the workflow script as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			script, err := loadScript(cfg.Workflow.ScriptPath)
			if err != nil {
				return err
			}
			raw, err := workflow.MarshalScript(script)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a workflow script for broken references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := workflow.LoadScript(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d agents, %d stages, %d exchanges)\n",
				args[0], len(script.Agents), len(script.Stages), len(script.Exchanges))
			return nil
		},
	})
	return cmd
}
