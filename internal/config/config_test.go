package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ingest.Crop != nil || cfg.Cache.Enabled != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[ingest]
extensions = ["fits", ".fz"]
crop = 0.05
filter = 'Gain > 0'

[plot]
error-scale = 5.0
height = 24

[cache]
enabled = true
path = "/tmp/darkcmp.db"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Ingest.Extensions) != 2 || *cfg.Ingest.Crop != 0.05 || *cfg.Ingest.Filter != "Gain > 0" {
		t.Fatalf("unexpected ingest config %+v", cfg.Ingest)
	}
	if *cfg.Plot.ErrorScale != 5 || *cfg.Plot.Height != 24 || cfg.Plot.PNGWidth != nil {
		t.Fatalf("unexpected plot config %+v", cfg.Plot)
	}
	if !*cfg.Cache.Enabled || *cfg.Cache.Path != "/tmp/darkcmp.db" {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[plot]\nerror_scale = 5.0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "plot.error_scale") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "darkcmp", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "darkcmp", "darkcmp.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := ExpandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Fatalf("expected absolute path unchanged, got %q", got)
	}
}
