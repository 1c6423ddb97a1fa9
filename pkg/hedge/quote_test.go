package hedge

import (
	"errors"
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: got %v, want %v", name, got, want)
	}
}

func TestComputeQuoteFullCoverage(t *testing.T) {
	out, err := ComputeQuote(QuoteInput{
		MarketID:       "mkt-1",
		PriceYes:       0.2,
		ExpectedProfit: 1000,
		LossIfEvent:    500,
	})
	if err != nil {
		t.Fatalf("ComputeQuote failed: %v", err)
	}

	if out.ContractsNeeded != 500 {
		t.Errorf("ContractsNeeded: got %d, want 500", out.ContractsNeeded)
	}
	if out.ContractsToBuy != 500 {
		t.Errorf("ContractsToBuy: got %d, want 500", out.ContractsToBuy)
	}
	approx(t, "TotalCost", out.TotalCost.InexactFloat64(), 100)
	approx(t, "ProfitIfEvent", out.ProfitIfEvent.InexactFloat64(), 900)
	approx(t, "ProfitIfNoEvent", out.ProfitIfNoEvent.InexactFloat64(), 900)
	approx(t, "CoverageAchieved", out.CoverageAchieved.InexactFloat64(), 1)
}

func TestComputeQuoteBudgetCapWins(t *testing.T) {
	out, err := ComputeQuote(QuoteInput{
		MarketID:       "mkt-2",
		PriceYes:       0.5,
		ExpectedProfit: 2000,
		LossIfEvent:    1000,
		MaxHedgeCost:   f64(200),
	})
	if err != nil {
		t.Fatalf("ComputeQuote failed: %v", err)
	}

	if out.ContractsNeeded != 1000 {
		t.Errorf("ContractsNeeded: got %d, want 1000", out.ContractsNeeded)
	}
	if out.ContractsToBuy != 400 {
		t.Errorf("ContractsToBuy: got %d, want 400", out.ContractsToBuy)
	}
	approx(t, "TotalCost", out.TotalCost.InexactFloat64(), 200)
	approx(t, "CoverageAchieved", out.CoverageAchieved.InexactFloat64(), 0.4)
}

func TestComputeQuotePartialCoverage(t *testing.T) {
	out, err := ComputeQuote(QuoteInput{
		MarketID:       "mkt-3",
		PriceYes:       0.25,
		ExpectedProfit: 1000,
		LossIfEvent:    100,
		Coverage:       f64(0.5),
	})
	if err != nil {
		t.Fatalf("ComputeQuote failed: %v", err)
	}

	if out.ContractsNeeded != 50 {
		t.Errorf("ContractsNeeded: got %d, want 50", out.ContractsNeeded)
	}
	approx(t, "TotalCost", out.TotalCost.InexactFloat64(), 12.5)
	approx(t, "CoverageAchieved", out.CoverageAchieved.InexactFloat64(), 0.5)
}

func TestComputeQuoteInvalidInputs(t *testing.T) {
	tests := []struct {
		name     string
		input    QuoteInput
		wantCode string
	}{
		{
			name:     "price of exactly 1",
			input:    QuoteInput{PriceYes: 1, ExpectedProfit: 100, LossIfEvent: 50},
			wantCode: CodeInvalidPriceYes,
		},
		{
			name:     "price of exactly 0",
			input:    QuoteInput{PriceYes: 0, ExpectedProfit: 100, LossIfEvent: 50},
			wantCode: CodeInvalidPriceYes,
		},
		{
			name:     "NaN price",
			input:    QuoteInput{PriceYes: math.NaN(), ExpectedProfit: 100, LossIfEvent: 50},
			wantCode: CodeInvalidPriceYes,
		},
		{
			name:     "infinite expected profit",
			input:    QuoteInput{PriceYes: 0.5, ExpectedProfit: math.Inf(1), LossIfEvent: 50},
			wantCode: CodeInvalidExpectedProfit,
		},
		{
			name:     "expected profit beyond bound",
			input:    QuoteInput{PriceYes: 0.5, ExpectedProfit: 2e12, LossIfEvent: 50},
			wantCode: CodeInvalidExpectedProfit,
		},
		{
			name:     "zero loss",
			input:    QuoteInput{PriceYes: 0.5, ExpectedProfit: 100, LossIfEvent: 0},
			wantCode: CodeInvalidLossIfEvent,
		},
		{
			name:     "negative loss",
			input:    QuoteInput{PriceYes: 0.5, ExpectedProfit: 100, LossIfEvent: -10},
			wantCode: CodeInvalidLossIfEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeQuote(tt.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			var qe *QuoteError
			if !errors.As(err, &qe) {
				t.Fatalf("expected QuoteError, got %T", err)
			}
			if qe.Code != tt.wantCode {
				t.Errorf("code: got %s, want %s", qe.Code, tt.wantCode)
			}
		})
	}
}

func TestComputeQuoteCoverageBudgetProperty(t *testing.T) {
	// contracts_to_buy must be min(contracts_needed, floor(budget/price))
	// across a sweep of inputs.
	prices := []float64{0.1, 0.25, 0.5, 0.8}
	losses := []float64{100, 333, 1000}
	budgets := []float64{10, 100, 10000}

	for _, price := range prices {
		for _, loss := range losses {
			for _, budget := range budgets {
				out, err := ComputeQuote(QuoteInput{
					PriceYes:     price,
					LossIfEvent:  loss,
					MaxHedgeCost: f64(budget),
				})
				if err != nil {
					t.Fatalf("price=%v loss=%v budget=%v: %v", price, loss, budget, err)
				}
				needed := int64(math.Ceil(loss))
				affordable := int64(math.Floor(budget / price))
				want := needed
				if affordable < want {
					want = affordable
				}
				if out.ContractsToBuy != want {
					t.Errorf("price=%v loss=%v budget=%v: ContractsToBuy got %d, want %d",
						price, loss, budget, out.ContractsToBuy, want)
				}
				if out.TotalCost.InexactFloat64() > budget+1e-9 {
					t.Errorf("price=%v loss=%v budget=%v: cost %v exceeds budget",
						price, loss, budget, out.TotalCost)
				}
			}
		}
	}
}

func TestComputeQuotePercent(t *testing.T) {
	out, err := ComputeQuotePercent(PercentInput{
		MarketID:           "mkt-4",
		PriceYes:           0.25,
		LossIfEventPercent: 50,
		Coverage:           f64(0.5),
	})
	if err != nil {
		t.Fatalf("ComputeQuotePercent failed: %v", err)
	}

	// loss = 100 * 0.5 = 50, target payout = 50 * 0.5 = 25
	if out.ContractsNeeded != 25 {
		t.Errorf("ContractsNeeded: got %d, want 25", out.ContractsNeeded)
	}
}

func TestComputeQuotePercentFraction(t *testing.T) {
	// 0.5 and 50 must mean the same thing.
	a, err := ComputeQuotePercent(PercentInput{PriceYes: 0.25, LossIfEventPercent: 0.5})
	if err != nil {
		t.Fatalf("fraction form failed: %v", err)
	}
	b, err := ComputeQuotePercent(PercentInput{PriceYes: 0.25, LossIfEventPercent: 50})
	if err != nil {
		t.Fatalf("percent form failed: %v", err)
	}
	if a.ContractsNeeded != b.ContractsNeeded {
		t.Errorf("fraction vs percent: %d != %d", a.ContractsNeeded, b.ContractsNeeded)
	}
}

func TestComputeQuoteExpectedValue(t *testing.T) {
	out, err := ComputeQuote(QuoteInput{
		PriceYes:       0.2,
		ExpectedProfit: 1000,
		LossIfEvent:    500,
	})
	if err != nil {
		t.Fatalf("ComputeQuote failed: %v", err)
	}

	pie := out.ProfitIfEvent.InexactFloat64()
	pine := out.ProfitIfNoEvent.InexactFloat64()
	want := 0.2*pie + 0.8*pine
	approx(t, "ExpectedValue", out.ExpectedValue.InexactFloat64(), want)
}

func TestComputeQuoteCoverageClamped(t *testing.T) {
	out, err := ComputeQuote(QuoteInput{
		PriceYes:    0.5,
		LossIfEvent: 100,
		Coverage:    f64(2.5), // clamped to 1
	})
	if err != nil {
		t.Fatalf("ComputeQuote failed: %v", err)
	}
	if out.ContractsNeeded != 100 {
		t.Errorf("ContractsNeeded: got %d, want 100", out.ContractsNeeded)
	}
}
