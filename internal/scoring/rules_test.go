package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	assert.InDelta(t, 0.15, r.CommissionRate, 0.001)
	assert.InDelta(t, 4.50, r.FulfillmentFee, 0.001)
	assert.InDelta(t, 2.00, r.DefaultShippingPerUnit, 0.001)
	assert.InDelta(t, 20, r.MinMarginPercent, 0.001)
	assert.InDelta(t, 100, r.LaunchScore, 0.001)
	assert.InDelta(t, 20, r.ReviewScore, 0.001)
	assert.InDelta(t, 0.1, r.DefaultRiskFactor, 0.001)
	assert.NoError(t, ValidateRules(r))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring_rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
commission_rate: 0.12
fulfillment_fee: 3.90
min_margin_percent: 25
launch_score: 150
review_score: 30
default_risk_factor: 0.2
category_risk_factors:
  "Toys & Games": 0.35
markets:
  fr:
    enabled: true
    tax_factor: 0.7
    default_shipping_cost_per_unit: 5.0
`), 0o600))

	r := LoadRules(path)
	assert.InDelta(t, 0.12, r.CommissionRate, 0.001)
	assert.InDelta(t, 3.90, r.FulfillmentFee, 0.001)
	assert.InDelta(t, 25, r.MinMarginPercent, 0.001)
	assert.InDelta(t, 0.35, r.RiskFor("Toys & Games"), 0.001)
	assert.InDelta(t, 0.2, r.RiskFor("Home & Kitchen"), 0.001)

	fr := r.MarketFor("amazon_fr")
	assert.True(t, fr.Enabled)
	assert.InDelta(t, 0.7, fr.TaxFactor, 0.001)
}

func TestLoadRules_MissingFileFallsBack(t *testing.T) {
	r := LoadRules(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Equal(t, DefaultRules(), r)
}

func TestLoadRules_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("commission_rate: [oops"), 0o600))
	r := LoadRules(path)
	assert.Equal(t, DefaultRules(), r)
}

func TestLoadRules_InvalidValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yml")
	require.NoError(t, os.WriteFile(path, []byte("commission_rate: 1.5"), 0o600))
	r := LoadRules(path)
	assert.Equal(t, DefaultRules(), r)
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
		ok     bool
	}{
		{"defaults", func(r *Rules) {}, true},
		{"negative fee", func(r *Rules) { r.FulfillmentFee = -1 }, false},
		{"risk above one", func(r *Rules) { r.DefaultRiskFactor = 1.1 }, false},
		{"review above launch", func(r *Rules) { r.ReviewScore = 200 }, false},
		{"bad category risk", func(r *Rules) {
			r.CategoryRiskFactors = map[string]float64{"X": -0.2}
		}, false},
		{"bad market tax", func(r *Rules) {
			r.Markets = map[string]MarketRules{"fr": {TaxFactor: 2}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mutate(&r)
			err := ValidateRules(r)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMarketForUnknown(t *testing.T) {
	r := DefaultRules()
	m := r.MarketFor("amazon_jp")
	assert.False(t, m.Enabled)
}
