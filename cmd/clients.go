package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/catalog"
	"github.com/margincraft/resale-cli/internal/job"
	"github.com/margincraft/resale-cli/internal/listing"
	"github.com/margincraft/resale-cli/internal/match"
	"github.com/margincraft/resale-cli/internal/scoring"
	"github.com/margincraft/resale-cli/internal/store"
	"github.com/margincraft/resale-cli/pkg/keepa"
	"github.com/margincraft/resale-cli/pkg/spapi"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "resale.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("no store.database_url configured (RESALE_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initHarvester builds the discover data source. Without an API key the
// sample client stands in so the pipeline stays runnable end to end.
func initHarvester(limit int) job.Harvester {
	var client keepa.Client
	if cfg.Harvest.Key == "" {
		zap.L().Warn("no harvest API key configured, using sample products")
		client = keepa.SampleClient{}
	} else {
		client = keepa.NewClient(cfg.Harvest.Key,
			keepa.WithBaseURL(cfg.Harvest.BaseURL),
			keepa.WithDomain(keepa.DomainFor(cfg.Harvest.Marketplace)),
			keepa.WithRateLimit(cfg.Harvest.RatePerSec),
			keepa.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Harvest.TimeoutSecs) * time.Second,
			}),
		)
	}
	return job.KeepaHarvester{Client: client, Limit: limit}
}

func initMatcher() *match.Matcher {
	suppliers := catalog.LoadSuppliers(cfg.Sourcing.SuppliersPath)
	return match.NewMatcher(suppliers, catalog.New(), match.DefaultConfig())
}

// initEngine builds the scoring engine. The pricing client is wired in
// only with full credentials; the engine degrades to observed prices and
// the commission fee model otherwise.
func initEngine() (*scoring.Engine, error) {
	rules := scoring.LoadRules(cfg.Scoring.RulesPath)
	if err := scoring.ValidateRules(rules); err != nil {
		return nil, eris.Wrap(err, "validate scoring rules")
	}

	var pricing scoring.PricingProvider
	var fees scoring.FeeEstimator
	if cfg.Pricing.Configured() {
		client := spapi.NewClient(
			spapi.Credentials{
				ClientID:     cfg.Pricing.ClientID,
				ClientSecret: cfg.Pricing.ClientSecret,
				RefreshToken: cfg.Pricing.RefreshToken,
			},
			cfg.Pricing.MarketplaceID,
			spapi.WithBaseURL(cfg.Pricing.BaseURL),
			spapi.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Pricing.TimeoutSecs) * time.Second,
			}),
		)
		pricing, fees = client, client
	}

	return scoring.NewEngine(rules, pricing, fees), nil
}

func initGenerator() listing.Generator {
	return listing.NewTemplateGenerator(cfg.Listing.BrandName)
}
