// Package hedge sizes a hedge position from a contract's yes-price and a
// loss assumption. The calculator is a pure function with no persisted state.
package hedge

import (
	"math"

	"github.com/shopspring/decimal"
)

// Error codes surfaced to the human-facing boundary.
const (
	CodeInvalidPriceYes       = "invalid_price_yes"
	CodeInvalidExpectedProfit = "invalid_expected_profit"
	CodeInvalidLossIfEvent    = "invalid_loss_if_event"
)

// maxProfitMagnitude bounds the expected-profit input.
const maxProfitMagnitude = 1e12

// QuoteError is a coded validation error.
type QuoteError struct {
	Code    string
	Message string
}

func (e *QuoteError) Error() string {
	return e.Code + ": " + e.Message
}

// QuoteInput are the hedge sizing parameters.
type QuoteInput struct {
	MarketID       string   `json:"marketId"`
	PriceYes       float64  `json:"priceYes"`       // strictly in (0,1)
	ExpectedProfit float64  `json:"expectedProfit"` // finite, |x| <= 1e12
	LossIfEvent    float64  `json:"lossIfEvent"`    // finite, > 0
	Coverage       *float64 `json:"coverage,omitempty"`     // [0,1], default 1
	MaxHedgeCost   *float64 `json:"maxHedgeCost,omitempty"` // optional budget cap
}

// QuoteOutput is the sizing result. Each contract pays exactly 1 unit on the
// yes outcome, so contract counts are integral.
type QuoteOutput struct {
	MarketID         string          `json:"marketId"`
	ContractsNeeded  int64           `json:"contractsNeeded"`
	ContractsToBuy   int64           `json:"contractsToBuy"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	Payout           decimal.Decimal `json:"payout"`
	ProfitIfEvent    decimal.Decimal `json:"profitIfEvent"`
	ProfitIfNoEvent  decimal.Decimal `json:"profitIfNoEvent"`
	CoverageAchieved decimal.Decimal `json:"coverageAchieved"`
	// ExpectedValue blends both branches weighted by the yes-price as an
	// implied event probability. A documented simplification, not a
	// general-purpose probability estimate.
	ExpectedValue decimal.Decimal `json:"expectedValue"`
}

// ComputeQuote sizes a hedge. The budget cap always wins over desired
// coverage.
func ComputeQuote(in QuoteInput) (*QuoteOutput, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	coverage := 1.0
	if in.Coverage != nil {
		coverage = clamp01(*in.Coverage)
	}

	price := decimal.NewFromFloat(in.PriceYes)
	loss := decimal.NewFromFloat(in.LossIfEvent)
	expectedProfit := decimal.NewFromFloat(in.ExpectedProfit)

	targetPayout := loss.Mul(decimal.NewFromFloat(coverage))
	contractsNeeded := targetPayout.Ceil().IntPart()

	contractsToBuy := contractsNeeded
	if in.MaxHedgeCost != nil && *in.MaxHedgeCost >= 0 {
		budget := decimal.NewFromFloat(*in.MaxHedgeCost)
		affordable := budget.Div(price).Floor().IntPart()
		if affordable < contractsToBuy {
			contractsToBuy = affordable
		}
	}

	buy := decimal.NewFromInt(contractsToBuy)
	totalCost := buy.Mul(price)
	payout := buy // 1 unit per contract

	profitIfEvent := expectedProfit.Sub(loss).Add(payout).Sub(totalCost)
	profitIfNoEvent := expectedProfit.Sub(totalCost)
	coverageAchieved := payout.Div(loss)

	one := decimal.NewFromInt(1)
	expectedValue := price.Mul(profitIfEvent).Add(one.Sub(price).Mul(profitIfNoEvent))

	return &QuoteOutput{
		MarketID:         in.MarketID,
		ContractsNeeded:  contractsNeeded,
		ContractsToBuy:   contractsToBuy,
		TotalCost:        totalCost,
		Payout:           payout,
		ProfitIfEvent:    profitIfEvent,
		ProfitIfNoEvent:  profitIfNoEvent,
		CoverageAchieved: coverageAchieved,
		ExpectedValue:    expectedValue,
	}, nil
}

// PercentInput sizes the loss as a percent of a baseline instead of an
// absolute amount.
type PercentInput struct {
	MarketID string  `json:"marketId"`
	PriceYes float64 `json:"priceYes"`
	// LossIfEventPercent > 1 is treated as already-percent (50 means 50%);
	// values <= 1 are treated as a fraction.
	LossIfEventPercent float64  `json:"lossIfEventPercent"`
	BaselineLoss       float64  `json:"baselineLoss,omitempty"` // default 100
	Coverage           *float64 `json:"coverage,omitempty"`
	MaxHedgeCost       *float64 `json:"maxHedgeCost,omitempty"`
}

// ComputeQuotePercent converts the percent figure into an absolute loss and
// delegates to ComputeQuote with expected profit fixed at zero.
func ComputeQuotePercent(in PercentInput) (*QuoteOutput, error) {
	fraction := in.LossIfEventPercent
	if fraction > 1 {
		fraction /= 100
	}

	baseline := in.BaselineLoss
	if baseline <= 0 || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		baseline = 100
	}

	return ComputeQuote(QuoteInput{
		MarketID:       in.MarketID,
		PriceYes:       in.PriceYes,
		ExpectedProfit: 0,
		LossIfEvent:    baseline * fraction,
		Coverage:       in.Coverage,
		MaxHedgeCost:   in.MaxHedgeCost,
	})
}

func validate(in QuoteInput) error {
	if math.IsNaN(in.PriceYes) || in.PriceYes <= 0 || in.PriceYes >= 1 {
		return &QuoteError{Code: CodeInvalidPriceYes, Message: "yes-price must be strictly between 0 and 1"}
	}
	if math.IsNaN(in.ExpectedProfit) || math.IsInf(in.ExpectedProfit, 0) || math.Abs(in.ExpectedProfit) > maxProfitMagnitude {
		return &QuoteError{Code: CodeInvalidExpectedProfit, Message: "expected profit must be finite and within bounds"}
	}
	if math.IsNaN(in.LossIfEvent) || math.IsInf(in.LossIfEvent, 0) || in.LossIfEvent <= 0 {
		return &QuoteError{Code: CodeInvalidLossIfEvent, Message: "loss-if-event must be finite and positive"}
	}
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
