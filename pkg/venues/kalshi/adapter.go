package kalshi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smbrisk/hedgescout/pkg/category"
	"github.com/smbrisk/hedgescout/pkg/market"
)

const (
	// defaultSeriesPerCategory caps how many series one category may select.
	defaultSeriesPerCategory = 5
	// defaultSeriesGlobalCap caps the total series fetched per request.
	defaultSeriesGlobalCap = 10
	// defaultCloseHorizon stands in for a missing close time.
	defaultCloseHorizon = 30 * 24 * time.Hour

	tagScore   = 3
	titleScore = 2
)

// Adapter turns risk categories into Kalshi contracts via discovery plans.
type Adapter struct {
	client            *Client
	seriesPerCategory int
	seriesGlobalCap   int
	now               func() time.Time
}

// AdapterOption configures the adapter.
type AdapterOption func(*Adapter)

// WithSeriesCaps overrides the per-category and global series caps.
func WithSeriesCaps(perCategory, global int) AdapterOption {
	return func(a *Adapter) {
		a.seriesPerCategory = perCategory
		a.seriesGlobalCap = global
	}
}

// NewAdapter creates a market adapter over a Kalshi client.
func NewAdapter(client *Client, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		client:            client,
		seriesPerCategory: defaultSeriesPerCategory,
		seriesGlobalCap:   defaultSeriesGlobalCap,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements market.Adapter.
func (a *Adapter) Name() string {
	return "kalshi"
}

// candidate is a series scored against one requesting category.
type candidate struct {
	series   Series
	category category.ID
	score    int
}

// Fetch implements market.Adapter. On a rate-limit failure it returns the
// markets collected so far together with market.ErrRateLimited so the
// aggregator can flag a partial result instead of failing the request.
func (a *Adapter) Fetch(ctx context.Context, categories []category.ID) ([]market.Market, error) {
	if len(categories) == 0 {
		for _, cat := range category.Catalog {
			categories = append(categories, cat.ID)
		}
	}

	series, err := a.client.ListSeries(ctx, tagUnion(categories))
	if err != nil {
		if errors.Is(err, market.ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("list series: %w", err)
	}

	selected := a.selectSeries(series, categories)

	var out []market.Market
	for _, cand := range selected {
		markets, err := a.client.ListOpenMarkets(ctx, cand.series.Ticker)
		if err != nil {
			if errors.Is(err, market.ErrRateLimited) {
				return out, err
			}
			return out, fmt.Errorf("list markets for %s: %w", cand.series.Ticker, err)
		}
		for _, km := range markets {
			if !km.IsOpen() {
				continue
			}
			out = append(out, a.normalize(km, cand))
		}
	}
	return out, nil
}

// tagUnion collects the union of configured tags across the requested
// categories, preserving first-seen order.
func tagUnion(categories []category.ID) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, id := range categories {
		plan, ok := PlanFor(id)
		if !ok {
			continue
		}
		for _, tag := range plan.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// selectSeries scores every returned series against every requested
// category's plan, keeps the per-category winners, and then applies the
// global cap. All tie-breaks are alphabetical by series ticker so the
// selection is deterministic.
func (a *Adapter) selectSeries(series []Series, categories []category.ID) []candidate {
	perCategory := make(map[category.ID][]candidate)
	for _, id := range categories {
		plan, ok := PlanFor(id)
		if !ok {
			continue
		}
		for _, s := range series {
			if plan.VenueCategory != "" && s.Category != plan.VenueCategory {
				continue
			}
			score := 0
			if len(plan.Tags) > 0 {
				score += tagScore
			}
			if titleContainsAny(s.Title, plan.TitleKeywords) {
				score += titleScore
			}
			if score == 0 {
				continue
			}
			perCategory[id] = append(perCategory[id], candidate{series: s, category: id, score: score})
		}
	}

	var kept []candidate
	for _, id := range categories {
		cands := perCategory[id]
		sortCandidates(cands)
		if len(cands) > a.seriesPerCategory {
			cands = cands[:a.seriesPerCategory]
		}
		kept = append(kept, cands...)
	}

	// Global cap: best scores first, one entry per series ticker.
	sortCandidates(kept)
	seen := make(map[string]bool)
	var final []candidate
	for _, cand := range kept {
		if seen[cand.series.Ticker] {
			continue
		}
		seen[cand.series.Ticker] = true
		final = append(final, cand)
		if len(final) >= a.seriesGlobalCap {
			break
		}
	}
	return final
}

func sortCandidates(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].series.Ticker < cands[j].series.Ticker
	})
}

func titleContainsAny(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// normalize converts a Kalshi market into the common shape. Outcomes default
// to a binary Yes/No pair; a missing close time defaults 30 days out.
func (a *Adapter) normalize(km Market, cand candidate) market.Market {
	closeTime := km.CloseTime
	if closeTime.IsZero() {
		closeTime = a.now().Add(defaultCloseHorizon)
	}

	var yesPrice, noPrice *float64
	if price, ok := km.YesPrice(); ok {
		yesPrice = market.Float64Ptr(price)
		noPrice = market.Float64Ptr(1 - price)
	}

	m := market.Market{
		ID:          km.Ticker,
		Venue:       a.Name(),
		Title:       km.Title,
		Description: km.RulesPrimary,
		Category:    cand.category,
		CloseTime:   closeTime,
		URL:         "https://kalshi.com/markets/" + strings.ToLower(cand.series.Ticker),
		Outcomes: []market.Outcome{
			{ID: km.Ticker + "-yes", Label: "Yes", Price: yesPrice},
			{ID: km.Ticker + "-no", Label: "No", Price: noPrice},
		},
	}
	if km.Liquidity > 0 {
		m.Liquidity = market.Float64Ptr(km.Liquidity.Float64())
	}
	if km.Volume > 0 {
		m.Volume = market.Float64Ptr(km.Volume.Float64())
	}
	return m
}
