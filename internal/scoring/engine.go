package scoring

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/model"
)

// PricingProvider supplies a live selling price for an ASIN. A nil price
// with a nil error means "unavailable"; the engine falls back to the
// candidate's observed average price.
type PricingProvider interface {
	GetPrice(ctx context.Context, asin string) (*float64, error)
}

// FeeEstimator supplies a marketplace fee estimate for an ASIN at a given
// price. A nil result with a nil error means "unavailable".
type FeeEstimator interface {
	GetFees(ctx context.Context, asin string, price float64) (*float64, error)
}

// Engine computes profitability scores. It is stateless apart from its
// configuration and collaborators; Score never persists anything.
type Engine struct {
	rules   Rules
	pricing PricingProvider
	fees    FeeEstimator
}

// NewEngine creates a scoring engine. pricing and fees may be nil, in
// which case the engine always uses its configured fallbacks.
func NewEngine(rules Rules, pricing PricingProvider, fees FeeEstimator) *Engine {
	return &Engine{rules: rules, pricing: pricing, fees: fees}
}

// Score evaluates one (candidate, option) pair and returns an unpersisted
// Score. Collaborator failures degrade to fallback computation and never
// propagate as errors.
func (e *Engine) Score(ctx context.Context, candidate model.Candidate, option model.SourcingOption) model.Score {
	market := e.rules.MarketFor(candidate.SourceMarketplace)

	// 1. Target selling price: live price, else observed average, else
	// 2x unit cost, else zero.
	target := e.targetPrice(ctx, candidate, option)

	// 2. Marketplace fees: external estimate, else commission model.
	fees := e.feesEstimate(ctx, candidate.ASIN, target)

	// 3. Logistics cost per unit.
	logistics := e.logisticsCost(option, market)

	// 4. Unit cost and gross margin.
	unitCost := 0.0
	if option.UnitCost != nil {
		unitCost = *option.UnitCost
	}

	var marginAbs, marginPct, netProfit *float64
	if target > 0 {
		m := target - fees - logistics - unitCost
		pct := m / target * 100
		marginAbs, marginPct = &m, &pct

		// 5. Net profit after the per-market tax factor, when enabled.
		if market.Enabled {
			np := m * market.TaxFactor
			netProfit = &np
		}
	}

	// 6. Risk factor in [0, 1].
	risk := e.rules.RiskFor(candidate.Category)

	sales := 1.0
	if candidate.EstimatedSalesPerDay != nil {
		sales = *candidate.EstimatedSalesPerDay
	}

	// 7. Global score with a bounded bonus for positive net profit.
	var globalScore *float64
	if marginPct != nil {
		base := *marginPct * sales * (1 - risk)
		if netProfit != nil && *netProfit > 0 {
			profitPerDay := *netProfit * sales
			bonus := math.Min(1.5, 1.0+profitPerDay/10)
			base *= bonus
		}
		globalScore = &base
	}

	// 8. Decision.
	decision := e.decide(marginPct, globalScore)

	score := model.Score{
		CandidateID:           candidate.ID,
		OptionID:              option.ID,
		SellingPriceTarget:    target,
		FeesEstimate:          &fees,
		LogisticsCostEstimate: &logistics,
		MarginAbsolute:        marginAbs,
		MarginPercent:         marginPct,
		GrossProfit:           marginAbs,
		NetProfitEstimated:    netProfit,
		EstimatedSalesPerDay:  &sales,
		RiskFactor:            risk,
		GlobalScore:           globalScore,
		Decision:              decision,
	}

	zap.L().Debug("scoring: pair scored",
		zap.String("asin", candidate.ASIN),
		zap.String("supplier", option.SupplierName),
		zap.String("decision", string(decision)),
		zap.Float64p("margin_percent", marginPct),
		zap.Float64p("global_score", globalScore),
	)

	return score
}

func (e *Engine) targetPrice(ctx context.Context, candidate model.Candidate, option model.SourcingOption) float64 {
	if e.pricing != nil {
		price, err := e.pricing.GetPrice(ctx, candidate.ASIN)
		if err != nil {
			zap.L().Warn("scoring: pricing provider failed, falling back",
				zap.String("asin", candidate.ASIN),
				zap.Error(err),
			)
		} else if price != nil && *price > 0 {
			return *price
		}
	}

	if candidate.AvgPrice != nil && *candidate.AvgPrice > 0 {
		return *candidate.AvgPrice
	}
	if option.UnitCost != nil && *option.UnitCost > 0 {
		return *option.UnitCost * 2
	}
	return 0
}

func (e *Engine) feesEstimate(ctx context.Context, asin string, target float64) float64 {
	if e.fees != nil && target > 0 {
		fees, err := e.fees.GetFees(ctx, asin, target)
		if err != nil {
			zap.L().Warn("scoring: fee estimator failed, falling back",
				zap.String("asin", asin),
				zap.Error(err),
			)
		} else if fees != nil {
			return *fees
		}
	}

	commission := 0.0
	if target > 0 {
		commission = target * e.rules.CommissionRate
	}
	return commission + e.rules.FulfillmentFee
}

func (e *Engine) logisticsCost(option model.SourcingOption, market MarketRules) float64 {
	if option.ShippingCostUnit != nil && *option.ShippingCostUnit > 0 {
		return *option.ShippingCostUnit
	}
	if market.Enabled {
		return market.DefaultShippingCostUnit
	}
	return e.rules.DefaultShippingPerUnit
}

func (e *Engine) decide(marginPct, globalScore *float64) model.Decision {
	if marginPct == nil || *marginPct < e.rules.MinMarginPercent {
		return model.DecisionDrop
	}
	if globalScore != nil && *globalScore >= e.rules.LaunchScore {
		return model.DecisionLaunch
	}
	if globalScore != nil && *globalScore >= e.rules.ReviewScore {
		return model.DecisionReview
	}
	return model.DecisionDrop
}
