package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.OnTrack != 0.70 || cfg.Thresholds.AtRisk != 0.40 {
		t.Fatalf("unexpected default thresholds: %+v", cfg.Thresholds)
	}
	if cfg.Display.Decimals != 1 {
		t.Fatalf("default decimals = %d, want 1", cfg.Display.Decimals)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	contents := []byte("thresholds:\n  on_track: 0.8\n  at_risk: 0.5\ndisplay:\n  decimals: 2\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.OnTrack != 0.8 || cfg.Thresholds.AtRisk != 0.5 {
		t.Fatalf("file override not applied: %+v", cfg.Thresholds)
	}
	if cfg.Display.Decimals != 2 {
		t.Fatalf("decimals = %d, want 2", cfg.Display.Decimals)
	}

	th := cfg.RollupThresholds()
	if th.OnTrack != 0.8 || th.AtRisk != 0.5 {
		t.Fatalf("RollupThresholds = %+v", th)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("display:\n  decimals: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STRATPLAN_DISPLAY__DECIMALS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Display.Decimals != 3 {
		t.Fatalf("decimals = %d, want env override 3", cfg.Display.Decimals)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Thresholds.OnTrack != 0.70 {
		t.Fatalf("expected defaults, got %+v", cfg.Thresholds)
	}
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("thresholds:\n  on_track: 0.3\n  at_risk: 0.6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for at_risk above on_track")
	}
}
