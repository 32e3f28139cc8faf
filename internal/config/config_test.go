package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://api.keepa.com", cfg.Harvest.BaseURL)
	assert.Equal(t, 30, cfg.Harvest.TimeoutSecs)
	assert.Equal(t, "amazon_fr", cfg.Harvest.Marketplace)
	assert.Equal(t, "config/categories.yml", cfg.Harvest.CategoriesPath)
	assert.False(t, cfg.Pricing.Enabled)
	assert.Equal(t, "A13V1IB3VIYZZH", cfg.Pricing.MarketplaceID)
	assert.Equal(t, "config/suppliers.yml", cfg.Sourcing.SuppliersPath)
	assert.Equal(t, "config/scoring_rules.yml", cfg.Scoring.RulesPath)
	assert.Equal(t, "YOUR_BRAND", cfg.Listing.BrandName)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentPairs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: resale.db
log:
  level: debug
  format: console
batch:
  max_concurrent_pairs: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "resale.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentPairs)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/resale"}}
	assert.NoError(t, cfg.Validate())

	cfg = &Config{Store: StoreConfig{Driver: "postgres"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Store: StoreConfig{Driver: "mysql", DatabaseURL: "x"}}
	assert.Error(t, cfg.Validate())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	require.Error(t, err)
}
