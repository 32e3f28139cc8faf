package model

import "time"

// Decision is the ternary outcome of scoring a (candidate, option) pair.
type Decision string

const (
	DecisionLaunch Decision = "A_launch"
	DecisionReview Decision = "B_review"
	DecisionDrop   Decision = "C_drop"
)

// Valid reports whether d is a known decision value.
func (d Decision) Valid() bool {
	switch d {
	case DecisionLaunch, DecisionReview, DecisionDrop:
		return true
	}
	return false
}

// Score is the profitability evaluation of exactly one (candidate, option)
// pair. At most one score exists per pair; recomputation deletes the prior
// row before inserting a new one.
type Score struct {
	ID                    string    `json:"id"`
	CandidateID           string    `json:"candidate_id"`
	OptionID              string    `json:"option_id"`
	SellingPriceTarget    float64   `json:"selling_price_target"`
	FeesEstimate          *float64  `json:"fees_estimate,omitempty"`
	LogisticsCostEstimate *float64  `json:"logistics_cost_estimate,omitempty"`
	MarginAbsolute        *float64  `json:"margin_absolute,omitempty"`
	MarginPercent         *float64  `json:"margin_percent,omitempty"`
	GrossProfit           *float64  `json:"gross_profit,omitempty"`
	NetProfitEstimated    *float64  `json:"net_profit_estimated,omitempty"`
	EstimatedSalesPerDay  *float64  `json:"estimated_sales_per_day,omitempty"`
	RiskFactor            float64   `json:"risk_factor"`
	GlobalScore           *float64  `json:"global_score,omitempty"`
	Decision              Decision  `json:"decision"`
	CreatedAt             time.Time `json:"created_at"`
}
