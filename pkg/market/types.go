// Package market defines the venue-independent contract shape and the
// aggregation pipeline that gathers, filters, and deduplicates candidate
// contracts from venue adapters.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/smbrisk/hedgescout/pkg/category"
)

// ErrRateLimited signals that a venue exhausted its retry budget on 429s.
// Adapters return it alongside whatever partial results they collected.
var ErrRateLimited = errors.New("venue rate limited")

// Outcome is one side of a contract.
type Outcome struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Price *float64 `json:"price,omitempty"` // 0-1 when known
}

// Market is a candidate prediction-market contract in the common shape all
// venue adapters normalize into.
type Market struct {
	ID          string      `json:"id"` // unique within a venue
	Venue       string      `json:"venue"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    category.ID `json:"category"`
	CloseTime   time.Time   `json:"closeTime"`
	Outcomes    []Outcome   `json:"outcomes"`
	Liquidity   *float64    `json:"liquidity,omitempty"`
	Volume      *float64    `json:"volume,omitempty"`
	URL         string      `json:"url,omitempty"`
}

// YesPrice returns the price of the first outcome, when present.
func (m *Market) YesPrice() (float64, bool) {
	if len(m.Outcomes) > 0 && m.Outcomes[0].Price != nil {
		return *m.Outcomes[0].Price, true
	}
	return 0, false
}

// Adapter fetches candidate markets for a category set. An empty category
// list means all markets. Adapters tag every returned market with one of the
// requested categories.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, categories []category.ID) ([]Market, error)
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 {
	return &f
}
