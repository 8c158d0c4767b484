package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fleet_console/internal/config"
)

func TestNewJSONWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "debug", Format: "json"}, &buf, "console")
	logger.Debug().Str("run_id", "r1").Msg("tick")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["service"] != "console" || line["run_id"] != "r1" || line["message"] != "tick" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "loud", Format: "json"}, &buf, "")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("info line missing: %s", out)
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "console", File: path, MaxSizeMB: 1}, &buf, "console")
	logger.Info().Msg("to file")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), `"message":"to file"`) {
		t.Fatalf("file sink missing json line: %s", raw)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Fatalf("console sink missing line: %s", buf.String())
	}
}
