// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Harvest  HarvestConfig  `yaml:"harvest" mapstructure:"harvest"`
	Pricing  PricingConfig  `yaml:"pricing" mapstructure:"pricing"`
	Sourcing SourcingConfig `yaml:"sourcing" mapstructure:"sourcing"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Listing  ListingConfig  `yaml:"listing" mapstructure:"listing"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// HarvestConfig configures the market-data harvester client and the
// category list that drives discovery.
type HarvestConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Key            string  `yaml:"key" mapstructure:"key"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CategoriesPath string  `yaml:"categories_path" mapstructure:"categories_path"`
	Marketplace    string  `yaml:"marketplace" mapstructure:"marketplace"`
}

// PricingConfig configures the live pricing / fee-estimate client.
// When disabled (or when a lookup fails) the scoring engine falls back to
// observed prices and the fee model from the scoring rules.
type PricingConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ClientID      string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret  string `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken  string `yaml:"refresh_token" mapstructure:"refresh_token"`
	MarketplaceID string `yaml:"marketplace_id" mapstructure:"marketplace_id"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Configured reports whether the pricing client has usable credentials.
func (p PricingConfig) Configured() bool {
	return p.Enabled && p.ClientID != "" && p.ClientSecret != "" && p.RefreshToken != ""
}

// SourcingConfig configures the supplier catalog registry.
type SourcingConfig struct {
	SuppliersPath string `yaml:"suppliers_path" mapstructure:"suppliers_path"`
}

// ScoringConfig points at the scoring rules file.
type ScoringConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ListingConfig configures listing generation.
type ListingConfig struct {
	BrandName string `yaml:"brand_name" mapstructure:"brand_name"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentPairs int `yaml:"max_concurrent_pairs" mapstructure:"max_concurrent_pairs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("harvest.base_url", "https://api.keepa.com")
	v.SetDefault("harvest.timeout_secs", 30)
	v.SetDefault("harvest.rate_per_sec", 1)
	v.SetDefault("harvest.categories_path", "config/categories.yml")
	v.SetDefault("harvest.marketplace", "amazon_fr")
	v.SetDefault("pricing.enabled", false)
	v.SetDefault("pricing.base_url", "https://sellingpartnerapi-eu.amazon.com")
	v.SetDefault("pricing.marketplace_id", "A13V1IB3VIYZZH")
	v.SetDefault("pricing.timeout_secs", 15)
	v.SetDefault("sourcing.suppliers_path", "config/suppliers.yml")
	v.SetDefault("scoring.rules_path", "config/scoring_rules.yml")
	v.SetDefault("listing.brand_name", "YOUR_BRAND")
	v.SetDefault("batch.max_concurrent_pairs", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for database-backed
// commands is present.
func (c *Config) Validate() error {
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: no store.database_url configured")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
