package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smbrisk/hedgescout/internal/logger"
	"github.com/smbrisk/hedgescout/pkg/venues/kalshi"
)

const (
	syncPageSize = 200
	// Open markets closing sooner than this are not worth caching.
	minOpenRunway = 48 * time.Hour
	// Unopened markets must open within this window to be cached.
	maxOpenDelay = 365 * 24 * time.Hour
)

// EventLister is the slice of the venue client the syncer needs.
type EventLister interface {
	ListEvents(ctx context.Context, status string, pageSize int, cursor string) ([]kalshi.Event, string, error)
}

// Syncer refreshes the market cache from the venue's event feed.
type Syncer struct {
	client       EventLister
	store        *Store
	platform     string
	allowed      map[string]bool
	excludedTags []string
	now          func() time.Time
}

// NewSyncer builds a syncer restricted to the given venue categories.
// excludedTags are matched case-insensitively against event and market titles.
func NewSyncer(client EventLister, st *Store, allowedCategories, excludedTags []string) *Syncer {
	allowed := make(map[string]bool, len(allowedCategories))
	for _, c := range allowedCategories {
		allowed[strings.ToLower(c)] = true
	}
	return &Syncer{
		client:       client,
		store:        st,
		platform:     "kalshi",
		allowed:      allowed,
		excludedTags: excludedTags,
		now:          time.Now,
	}
}

// Run performs one full sync pass: paginate events, filter to eligible
// markets, upsert, then prune rows untouched by this pass.
func (s *Syncer) Run(ctx context.Context) error {
	start := s.now().UTC()
	var total, kept int

	cursor := ""
	for {
		events, next, err := s.client.ListEvents(ctx, "open,unopened", syncPageSize, cursor)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		var batch []CachedMarket
		for _, ev := range events {
			for _, m := range ev.Markets {
				total++
				if !s.eligible(ev, m) {
					continue
				}
				row := CachedMarket{
					Ticker:       m.Ticker,
					Title:        marketTitle(ev, m),
					Platform:     s.platform,
					MarketTicker: m.Ticker,
					LastUpdated:  start,
				}
				if price, ok := m.YesPrice(); ok {
					row.PriceYes = &price
				}
				batch = append(batch, row)
				kept++
			}
		}

		if err := s.store.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}

		if next == "" {
			break
		}
		cursor = next
	}

	pruned, err := s.store.Prune(ctx, start)
	if err != nil {
		return fmt.Errorf("prune stale: %w", err)
	}

	logger.Info("market cache sync complete: scanned=%d kept=%d pruned=%d", total, kept, pruned)
	return nil
}

// eligible applies the cache admission rules: tradeable status, an allowed
// venue category, no excluded tag in the title, and a sane time window.
func (s *Syncer) eligible(ev kalshi.Event, m kalshi.Market) bool {
	now := s.now()

	switch m.Status {
	case "open", "active":
		if m.CloseTime.Before(now.Add(minOpenRunway)) {
			return false
		}
	case "unopened", "initialized":
		if m.OpenTime.IsZero() || m.OpenTime.After(now.Add(maxOpenDelay)) {
			return false
		}
	default:
		return false
	}

	category := strings.ToLower(m.Category)
	if category == "" {
		category = strings.ToLower(ev.Category)
	}
	if len(s.allowed) > 0 && !s.allowed[category] {
		return false
	}

	title := strings.ToLower(marketTitle(ev, m))
	for _, tag := range s.excludedTags {
		if tag != "" && strings.Contains(title, strings.ToLower(tag)) {
			return false
		}
	}

	return true
}

// marketTitle joins event title and market subtitle so the cached title
// carries enough context for keyword search.
func marketTitle(ev kalshi.Event, m kalshi.Market) string {
	title := m.Title
	if title == "" {
		title = ev.Title
	}
	if m.Subtitle != "" && !strings.Contains(title, m.Subtitle) {
		title = title + " " + m.Subtitle
	}
	return strings.TrimSpace(title)
}
