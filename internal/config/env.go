package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides sit between the config file and command-line flags.
const (
	EnvAddr        = "FLEET_CONSOLE_ADDR"
	EnvJournalPath = "FLEET_CONSOLE_JOURNAL"
	EnvScriptPath  = "FLEET_CONSOLE_SCRIPT"
	EnvIntervalMS  = "FLEET_CONSOLE_INTERVAL_MS"
	EnvSeed        = "FLEET_CONSOLE_SEED"
	EnvLogLevel    = "FLEET_CONSOLE_LOG_LEVEL"
	EnvMonitorAddr = "FLEET_CONSOLE_MONITOR_ADDR"
)

// LoadDotEnv copies .env files into the process environment without
// overwriting variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func (c Config) applyEnv() (Config, error) {
	if v := env(EnvAddr); v != "" {
		c.Console.Addr = v
	}
	if v := env(EnvJournalPath); v != "" {
		c.Console.JournalPath = v
	}
	if v := env(EnvScriptPath); v != "" {
		c.Workflow.ScriptPath = v
	}
	if v := env(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := env(EnvMonitorAddr); v != "" {
		c.Monitor.Addr = v
	}
	if v := env(EnvIntervalMS); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvIntervalMS, v)
		}
		c.Workflow.IntervalMS = ms
	}
	if v := env(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", EnvSeed, err)
		}
		c.Metrics.Seed = seed
	}
	return c, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
