package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/speedr/internal/config"
	"github.com/verte-zerg/speedr/internal/model"
)

func validConfig() model.Config {
	return model.Config{
		BaseMillis:      defaultRate,
		MinMillis:       defaultMin,
		MaxMillis:       defaultMax,
		WindowSize:      10,
		Countdown:       defaultCountdown,
		CountdownMillis: defaultCountdownMs,
		AckTimeoutMs:    defaultAckTimeoutMs,
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cases := map[string]func(*model.Config){
		"--rate":           func(c *model.Config) { c.BaseMillis = 0 },
		"--min":            func(c *model.Config) { c.MinMillis = 5000 },
		"--avg-len":        func(c *model.Config) { c.AverageLength = -1 },
		"--window":         func(c *model.Config) { c.WindowSize = -1 },
		"--countdown":      func(c *model.Config) { c.Countdown = -1 },
		"--countdown-ms":   func(c *model.Config) { c.CountdownMillis = 0 },
		"--ack-timeout-ms": func(c *model.Config) { c.AckTimeoutMs = 0 },
	}
	for flag, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		err := validateConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), flag) {
			t.Fatalf("%s: expected flag error, got %v", flag, err)
		}
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("template should decode: %v", err)
	}

	uncommented := strings.ReplaceAll(defaultConfigTemplate(), "# rate", "rate")
	if err := os.WriteFile(path, []byte(uncommented), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("uncommented template should decode: %v", err)
	}
	if cfg.Reader.Rate == nil || *cfg.Reader.Rate != defaultRate {
		t.Fatalf("expected rate %d, got %v", defaultRate, cfg.Reader.Rate)
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("debug")
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("unexpected level %v, %v", level, err)
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSetupLoggingWritesToWriter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if err := setupLogging(&buf, "warn"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	slog.Info("hidden")
	slog.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestHistoryConfig(t *testing.T) {
	cfg, err := historyConfig("2026-03-01", 5, 3)
	if err != nil {
		t.Fatalf("history config: %v", err)
	}
	if cfg.Since == nil || cfg.Since.Day() != 1 || cfg.Last != 5 || cfg.CurveWindow != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := historyConfig("March", 0, 3); err == nil {
		t.Fatalf("expected error for bad date")
	}
	if _, err := historyConfig("", -1, 3); err == nil {
		t.Fatalf("expected error for negative --last")
	}
	if _, err := historyConfig("", 0, 0); err == nil {
		t.Fatalf("expected error for zero --curve-window")
	}
}

func TestTokenizeCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("a extraordinary"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"tokenize", "--rate", "100", "--min", "0", "--max", "0", "--avg-len", "4", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "# note.txt: 2 words") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "   100  a\n") || !strings.Contains(got, "   325  extraordinary\n") {
		t.Fatalf("unexpected durations: %q", got)
	}
}
