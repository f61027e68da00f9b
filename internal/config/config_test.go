package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Window.Days() != 730 {
		t.Errorf("window days = %d, want 730", cfg.Window.Days())
	}
}

func TestResolveDerivesPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/run"
	cfg.Resolve()

	want := map[string]string{
		"output":    filepath.Join("/tmp/run", "raw"),
		"warehouse": filepath.Join("/tmp/run", "warehouse.db"),
		"export":    filepath.Join("/tmp/run", "powerbi"),
		"metrics":   filepath.Join("/tmp/run", "metrics.prom"),
		"storage":   filepath.Join("/tmp/run", "storage"),
	}
	got := map[string]string{
		"output":    cfg.OutputDir,
		"warehouse": cfg.WarehousePath,
		"export":    cfg.ExportDir,
		"metrics":   cfg.MetricsPath,
		"storage":   cfg.Storage.Path,
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %q, want %q", k, got[k], w)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"zero users", func(c *Config) { c.Population.Users = 0 }, errors.CodeInvalidConfig},
		{"negative products", func(c *Config) { c.Population.Products = -1 }, errors.CodeInvalidConfig},
		{"bot fraction above 1", func(c *Config) { c.Population.BotFraction = 1.5 }, errors.CodeInvalidConfig},
		{"unknown bot selection", func(c *Config) { c.Population.BotSelection = "coin" }, errors.CodeInvalidConfig},
		{"inverted range", func(c *Config) { c.Funnel.Checkout = Range{Min: 0.6, Max: 0.5} }, errors.CodeInvalidConfig},
		{"range above 1", func(c *Config) { c.Funnel.ProductView.Max = 1.2 }, errors.CodeInvalidConfig},
		{"window reversed", func(c *Config) { c.Window.Start, c.Window.End = "2024-12-31", "2023-01-01" }, errors.CodeInvalidConfig},
		{"bad date", func(c *Config) { c.Window.Start = "01/01/2023" }, errors.CodeInvalidConfig},
		{"ceiling below floor", func(c *Config) { c.Orders.PriceCeiling = 5 }, errors.CodeInvalidConfig},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, errors.CodeInvalidConfig},
		{"noise saturates", func(c *Config) { c.Noise.Missing, c.Noise.Duplicate = 0.6, 0.5 }, errors.CodeInvalidConfig},
		{"loyalty over 1", func(c *Config) { c.Population.SilverShare = 0.9 }, errors.CodeInvalidConfig},
		{"device sum", func(c *Config) { c.Population.DeviceWeights[types.DeviceTablet] = 0.5 }, errors.CodeInvalidWeights},
		{"unknown country", func(c *Config) { c.Population.CountryWeights["FR"] = 0 }, errors.CodeInvalidWeights},
		{"empty sources", func(c *Config) { c.Sessions.SourceWeights = nil }, errors.CodeInvalidWeights},
		{"negative weight", func(c *Config) {
			c.Sessions.SourceWeights[types.SourceOrganic] = -0.1
			c.Sessions.SourceWeights[types.SourcePaid] = 0.9
		}, errors.CodeInvalidWeights},
		{"quantity sum", func(c *Config) { c.Orders.QuantityWeights = []float64{0.5, 0.2} }, errors.CodeInvalidWeights},
		{"missing tier rate", func(c *Config) { delete(c.Sessions.TierRates, types.TierGold) }, errors.CodeInvalidWeights},
		{"zero tier rate", func(c *Config) { c.Sessions.TierRates[types.TierBronze] = 0 }, errors.CodeInvalidWeights},
		{"purchase above 1", func(c *Config) { c.Funnel.Purchase[types.VariantTest] = 1.1 }, errors.CodeInvalidWeights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if errors.GetCategory(err) != errors.ErrCategoryConfig {
				t.Errorf("category = %q, want CONFIG", errors.GetCategory(err))
			}
			if errors.GetCode(err) != tt.code {
				t.Errorf("code = %q, want %q (%v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "cfg.yaml")
	yamlBody := `
seed: 7
population:
  users: 500
  bot_selection: bernoulli
window:
  start: "2023-06-01"
  end: "2023-12-31"
noise:
  missing: 0.05
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFromFile yaml: %v", err)
	}
	if cfg.Seed != 7 || cfg.Population.Users != 500 || cfg.Noise.Missing != 0.05 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Population.BotSelection != BotSelectionBernoulli {
		t.Errorf("bot selection = %q", cfg.Population.BotSelection)
	}
	// Unset fields keep their defaults.
	if cfg.Population.Products != 2000 || cfg.Noise.Duplicate != 0.01 {
		t.Errorf("defaults lost: products=%d duplicate=%v", cfg.Population.Products, cfg.Noise.Duplicate)
	}

	jsonPath := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(jsonPath, []byte(`{"workers": 4, "sessions": {"target": 1000}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFromFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFromFile json: %v", err)
	}
	if cfg.Workers != 4 || cfg.Sessions.Target != 1000 {
		t.Errorf("json values not applied: workers=%d target=%d", cfg.Workers, cfg.Sessions.Target)
	}

	if _, err := LoadFromFile(filepath.Join(dir, "cfg.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	tomlPath := filepath.Join(dir, "cfg.toml")
	_ = os.WriteFile(tomlPath, []byte("seed = 1"), 0644)
	if _, err := LoadFromFile(tomlPath); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ECOMSIM_SEED", "99")
	t.Setenv("ECOMSIM_USERS", "250")
	t.Setenv("ECOMSIM_BOT_FRACTION", "0.1")
	t.Setenv("ECOMSIM_COMPRESS", "true")
	t.Setenv("ECOMSIM_STORAGE_TYPE", "s3")
	t.Setenv("ECOMSIM_S3_BUCKET", "datasets")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Seed != 99 {
		t.Errorf("seed = %d", cfg.Seed)
	}
	if cfg.Population.Users != 250 {
		t.Errorf("users = %d", cfg.Population.Users)
	}
	if cfg.Population.BotFraction != 0.1 {
		t.Errorf("bot fraction = %v", cfg.Population.BotFraction)
	}
	if !cfg.Compress {
		t.Error("compress not set")
	}
	if cfg.Storage.Type != "s3" || cfg.Storage.S3.Bucket != "datasets" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")
	cfg.Resolve()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.OutputDir, cfg.ExportDir, cfg.Storage.Path} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}
