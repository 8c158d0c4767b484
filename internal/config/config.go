package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Console  ConsoleConfig  `toml:"console"`
	Workflow WorkflowConfig `toml:"workflow"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Log      LogConfig      `toml:"log"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Raw      map[string]any `toml:"-"`
	Path     string         `toml:"-"`
}

type ConsoleConfig struct {
	Addr           string `toml:"addr"`
	JournalPath    string `toml:"journal_path"`
	BusBuffer      int    `toml:"bus_buffer"`
	JournalLimit   int    `toml:"journal_limit"`
	ShutdownMS     int    `toml:"shutdown_ms"`
	DisableJournal bool   `toml:"disable_journal"`
}

type WorkflowConfig struct {
	ScriptPath string `toml:"script_path"`
	IntervalMS int    `toml:"interval_ms"`
	AutoStart  bool   `toml:"auto_start"`
}

type MetricsConfig struct {
	Seed     int64 `toml:"seed"`
	Orders   int   `toml:"orders"`
	Clusters int   `toml:"clusters"`
	Routes   int   `toml:"routes"`
	Drivers  int   `toml:"drivers"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type MonitorConfig struct {
	Addr       string `toml:"addr"`
	IntervalMS int    `toml:"interval_ms"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Console: ConsoleConfig{
			Addr:         ":8092",
			JournalPath:  "data/fleet_console.db",
			BusBuffer:    64,
			JournalLimit: 200,
			ShutdownMS:   5000,
		},
		Workflow: WorkflowConfig{
			IntervalMS: 3000,
		},
		Metrics: MetricsConfig{
			Orders:   50,
			Clusters: 8,
			Routes:   6,
			Drivers:  10,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Monitor: MonitorConfig{
			Addr:       "http://localhost:8092",
			IntervalMS: 1000,
		},
	}
}

// Load reads a TOML file on top of Default, then applies FLEET_CONSOLE_*
// environment overrides. A missing file is only an error when the path was
// given explicitly.
func Load(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	resolved := path
	if !explicit {
		resolved = defaultConfigPath()
	}
	resolved, err := expandHome(resolved)
	if err != nil {
		return Config{}, err
	}
	resolved = filepath.Clean(resolved)

	cfg := Default()
	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg.applyEnv()
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	var raw map[string]any
	if _, err := toml.Decode(string(bytes), &raw); err != nil {
		return Config{}, fmt.Errorf("decode raw config: %w", err)
	}
	cfg.Raw = raw
	cfg.Path = resolved
	return cfg.withDefaults().applyEnv()
}

func (c Config) withDefaults() Config {
	def := Default()
	if strings.TrimSpace(c.Console.Addr) == "" {
		c.Console.Addr = def.Console.Addr
	}
	if c.Console.BusBuffer <= 0 {
		c.Console.BusBuffer = def.Console.BusBuffer
	}
	if c.Console.JournalLimit <= 0 {
		c.Console.JournalLimit = def.Console.JournalLimit
	}
	if c.Console.ShutdownMS <= 0 {
		c.Console.ShutdownMS = def.Console.ShutdownMS
	}
	if c.Workflow.IntervalMS <= 0 {
		c.Workflow.IntervalMS = def.Workflow.IntervalMS
	}
	if c.Metrics.Orders <= 0 {
		c.Metrics.Orders = def.Metrics.Orders
	}
	if c.Metrics.Clusters <= 0 {
		c.Metrics.Clusters = def.Metrics.Clusters
	}
	if c.Metrics.Routes <= 0 {
		c.Metrics.Routes = def.Metrics.Routes
	}
	if c.Metrics.Drivers <= 0 {
		c.Metrics.Drivers = def.Metrics.Drivers
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = def.Log.Level
	}
	if strings.TrimSpace(c.Log.Format) == "" {
		c.Log.Format = def.Log.Format
	}
	if strings.TrimSpace(c.Monitor.Addr) == "" {
		c.Monitor.Addr = def.Monitor.Addr
	}
	if c.Monitor.IntervalMS <= 0 {
		c.Monitor.IntervalMS = def.Monitor.IntervalMS
	}
	return c
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	trimmed := strings.TrimPrefix(p, "~")
	trimmed = strings.TrimPrefix(trimmed, "\\")
	trimmed = strings.TrimPrefix(trimmed, "/")
	return filepath.Join(home, trimmed), nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fleet_console/config.toml"
	}
	return filepath.Join(home, ".fleet_console", "config.toml")
}
