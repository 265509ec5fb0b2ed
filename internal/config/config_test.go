package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/itsmrshow/foreman/internal/planner"
	"github.com/itsmrshow/foreman/internal/world"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foreman.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schedule != "@every 30s" {
		t.Errorf("expected default schedule, got %q", cfg.Schedule)
	}
	if cfg.TTL.Structures != 50 || cfg.TTL.Sites != 20 || cfg.TTL.Occupancy != 100 {
		t.Errorf("unexpected TTLs %+v", cfg.TTL)
	}
	want := []world.Category{world.CategoryLink, world.CategoryRoad}
	if !reflect.DeepEqual(cfg.Categories, want) {
		t.Errorf("expected categories %v, got %v", want, cfg.Categories)
	}
}

func TestLoadFileMergesProfiles(t *testing.T) {
	path := writeConfig(t, `
world: snapshots/world.yaml.zst
state_db: foreman.db
ttl:
  sites: 5
categories: [link]
profiles:
  link:
    strategy: cluster
    storage_band: {min: 1, max: 1}
    spawn_band: {min: 2, max: 3}
    controller_band: {min: 1, max: 2}
    source_band: {min: 1, max: 1}
    caps: [0, 1, 2]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.World != "snapshots/world.yaml.zst" || cfg.StateDB != "foreman.db" {
		t.Errorf("unexpected paths %q %q", cfg.World, cfg.StateDB)
	}
	if cfg.TTL.Sites != 5 || cfg.TTL.Structures != 50 {
		t.Errorf("expected partial TTL override, got %+v", cfg.TTL)
	}
	link := cfg.Profiles[world.CategoryLink]
	if link.StorageBand != (planner.Band{Min: 1, Max: 1}) || link.Cap(5) != 2 {
		t.Errorf("expected configured link profile, got %+v", link)
	}
	if _, ok := cfg.Profiles[world.CategoryRoad]; !ok {
		t.Error("expected built-in road profile to be kept")
	}
	if !reflect.DeepEqual(cfg.Categories, []world.Category{world.CategoryLink}) {
		t.Errorf("unexpected categories %v", cfg.Categories)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FOREMAN_WORLD", "/data/world.yaml")
	t.Setenv("FOREMAN_REPLAN", "yes")
	t.Setenv("FOREMAN_TTL_OCCUPANCY", "40")
	t.Setenv("FOREMAN_WRITE_BURST", "not-a-number")
	t.Setenv("FOREMAN_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.World != "/data/world.yaml" {
		t.Errorf("expected env world path, got %q", cfg.World)
	}
	if !cfg.Replan {
		t.Error("expected replan from env")
	}
	if cfg.TTL.Occupancy != 40 {
		t.Errorf("expected occupancy TTL 40, got %d", cfg.TTL.Occupancy)
	}
	if cfg.WriteRateBurst != 3 {
		t.Errorf("expected invalid int to fall back to 3, got %d", cfg.WriteRateBurst)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.Log.Level)
	}
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	path := writeConfig(t, "categories: [tower]\n")
	if _, err := Load(path); !errors.Is(err, planner.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	path := writeConfig(t, `
profiles:
  link:
    strategy: cluster
    storage_band: {min: 3, max: 1}
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid band error")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "wrold: typo.yaml\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FOREMAN_TEST_BOOL", "off")
	if getEnvBool("FOREMAN_TEST_BOOL", true) {
		t.Error("expected off to parse as false")
	}
	t.Setenv("FOREMAN_TEST_BOOL", "maybe")
	if !getEnvBool("FOREMAN_TEST_BOOL", true) {
		t.Error("expected unknown value to keep default")
	}
	t.Setenv("FOREMAN_TEST_FLOAT", "2.5")
	if got := getEnvFloat("FOREMAN_TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
	if got := getEnv("FOREMAN_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "foreman.yaml"))
	if err != nil {
		t.Fatalf("example config should load: %v", err)
	}
	want := []world.Category{world.CategoryLink, world.CategoryRoad}
	if !reflect.DeepEqual(cfg.Categories, want) {
		t.Fatalf("expected %v, got %v", want, cfg.Categories)
	}
	if cfg.Profiles[world.CategoryRoad].Strategy != planner.StrategyRoute {
		t.Errorf("expected built-in road profile to survive the merge")
	}
}
