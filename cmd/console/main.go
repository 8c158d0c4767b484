package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fleet_console/internal/config"
	"fleet_console/internal/domain"
	"fleet_console/internal/logging"
	"fleet_console/internal/workflow"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Delivery operations console",
		Long:  "Serves the delivery metrics dashboard and replays the scripted agent workflow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "path to config.toml (default: ~/.fleet_console/config.toml)")
	cmd.PersistentFlags().StringP("log", "l", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newScriptCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "console %s\n", version)
		},
	}
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log"); strings.TrimSpace(level) != "" {
		cfg.Log.Level = level
	}
	return cfg, logging.New(cfg.Log, os.Stderr, "console"), nil
}

func loadScript(path string) (domain.Script, error) {
	if strings.TrimSpace(path) == "" {
		return workflow.DefaultScript(), nil
	}
	return workflow.LoadScript(path)
}

func main() {
	root := newRootCmd()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func durationMS(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}
