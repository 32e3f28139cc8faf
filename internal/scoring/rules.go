// Package scoring turns (candidate, option) pairs into profitability
// scores and launch decisions.
package scoring

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// MarketRules holds the per-market profit model settings.
type MarketRules struct {
	Enabled                 bool    `yaml:"enabled"`
	TaxFactor               float64 `yaml:"tax_factor"`
	DefaultShippingCostUnit float64 `yaml:"default_shipping_cost_per_unit"`
}

// Rules holds every tunable the scoring engine consumes. All values are
// externally configured; DefaultRules documents the built-in fallbacks.
type Rules struct {
	CommissionRate         float64                `yaml:"commission_rate"`
	FulfillmentFee         float64                `yaml:"fulfillment_fee"`
	DefaultShippingPerUnit float64                `yaml:"default_shipping_per_unit"`
	MinMarginPercent       float64                `yaml:"min_margin_percent"`
	LaunchScore            float64                `yaml:"launch_score"`
	ReviewScore            float64                `yaml:"review_score"`
	DefaultRiskFactor      float64                `yaml:"default_risk_factor"`
	CategoryRiskFactors    map[string]float64     `yaml:"category_risk_factors"`
	Markets                map[string]MarketRules `yaml:"markets"`
}

// DefaultRules returns the built-in scoring defaults used when no rules
// file is available.
func DefaultRules() Rules {
	return Rules{
		CommissionRate:         0.15,
		FulfillmentFee:         4.50,
		DefaultShippingPerUnit: 2.00,
		MinMarginPercent:       20,
		LaunchScore:            100,
		ReviewScore:            20,
		DefaultRiskFactor:      0.1,
	}
}

// LoadRules reads scoring rules from a yaml file. A missing or corrupt
// file is logged and replaced with DefaultRules so a batch can always run.
func LoadRules(path string) Rules {
	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("scoring: rules file unavailable, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return DefaultRules()
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		zap.L().Error("scoring: rules file unparsable, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return DefaultRules()
	}

	if err := ValidateRules(rules); err != nil {
		zap.L().Error("scoring: rules file invalid, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return DefaultRules()
	}

	return rules
}

// ValidateRules checks that a Rules value is internally consistent.
func ValidateRules(r Rules) error {
	var errs []string

	if r.CommissionRate < 0 || r.CommissionRate >= 1 {
		errs = append(errs, "commission_rate must be in [0, 1)")
	}
	if r.FulfillmentFee < 0 {
		errs = append(errs, "fulfillment_fee must be >= 0")
	}
	if r.DefaultShippingPerUnit < 0 {
		errs = append(errs, "default_shipping_per_unit must be >= 0")
	}
	if r.DefaultRiskFactor < 0 || r.DefaultRiskFactor > 1 {
		errs = append(errs, "default_risk_factor must be in [0, 1]")
	}
	for cat, risk := range r.CategoryRiskFactors {
		if risk < 0 || risk > 1 {
			errs = append(errs, fmt.Sprintf("category_risk_factors[%s] must be in [0, 1]", cat))
		}
	}
	if r.ReviewScore > r.LaunchScore {
		errs = append(errs, "review_score must be <= launch_score")
	}
	for code, m := range r.Markets {
		if m.TaxFactor < 0 || m.TaxFactor > 1 {
			errs = append(errs, fmt.Sprintf("markets[%s].tax_factor must be in [0, 1]", code))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MarketFor returns the profit model for a marketplace code such as
// "amazon_fr". Unknown markets get a disabled model with default factors.
func (r Rules) MarketFor(marketplace string) MarketRules {
	code := strings.TrimPrefix(marketplace, "amazon_")
	if m, ok := r.Markets[code]; ok {
		return m
	}
	return MarketRules{Enabled: false, TaxFactor: 0.7, DefaultShippingCostUnit: 5.0}
}

// RiskFor returns the risk factor for a category, falling back to the
// configured default.
func (r Rules) RiskFor(category string) float64 {
	if risk, ok := r.CategoryRiskFactors[category]; ok {
		return risk
	}
	return r.DefaultRiskFactor
}
