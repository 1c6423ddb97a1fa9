// Package kalshi provides a client and market adapter for the Kalshi trade
// API. It is a read-only consumer: series discovery, market listing, and
// normalization into the common market shape.
package kalshi

import (
	"encoding/json"
	"strconv"
	"time"
)

// Series is a venue grouping of related markets.
type Series struct {
	Ticker    string   `json:"ticker"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Frequency string   `json:"frequency"`
}

// Market is a single Kalshi contract. Prices are in cents (0-100).
type Market struct {
	Ticker       string    `json:"ticker"`
	EventTicker  string    `json:"event_ticker"`
	SeriesTicker string    `json:"series_ticker"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle"`
	Category     string    `json:"category"`
	Status       string    `json:"status"`
	OpenTime     time.Time `json:"open_time"`
	CloseTime    time.Time `json:"close_time"`
	YesBid       JSONFloat `json:"yes_bid"`
	YesAsk       JSONFloat `json:"yes_ask"`
	LastPrice    JSONFloat `json:"last_price"`
	Liquidity    JSONFloat `json:"liquidity"`
	Volume       JSONFloat `json:"volume"`
	RulesPrimary string    `json:"rules_primary"`
}

// YesPrice returns the implied yes probability in [0,1], preferring the last
// trade and falling back to the bid/ask midpoint.
func (m *Market) YesPrice() (float64, bool) {
	if m.LastPrice > 0 {
		return m.LastPrice.Float64() / 100, true
	}
	if m.YesBid > 0 || m.YesAsk > 0 {
		return (m.YesBid.Float64() + m.YesAsk.Float64()) / 200, true
	}
	return 0, false
}

// IsOpen reports whether the market is accepting trades.
func (m *Market) IsOpen() bool {
	return m.Status == "open" || m.Status == "active"
}

// seriesResponse is the /series list envelope.
type seriesResponse struct {
	Series []Series `json:"series"`
}

// marketsResponse is the /markets list envelope.
type marketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// eventsResponse is the /events list envelope used by the cache sync job.
type eventsResponse struct {
	Events []Event `json:"events"`
	Cursor string  `json:"cursor"`
}

// Event groups markets under a single venue event.
type Event struct {
	EventTicker  string   `json:"event_ticker"`
	SeriesTicker string   `json:"series_ticker"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Markets      []Market `json:"markets"`
}

// JSONFloat handles both numeric and string JSON values.
type JSONFloat float64

func (j *JSONFloat) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*j = JSONFloat(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*j = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*j = JSONFloat(f)
	return nil
}

// Float64 returns the plain float value.
func (j JSONFloat) Float64() float64 {
	return float64(j)
}
