package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smbrisk/hedgescout/pkg/venues/kalshi"
)

type fakeLister struct {
	pages [][]kalshi.Event
	calls int
	err   error
}

func (f *fakeLister) ListEvents(ctx context.Context, status string, pageSize int, cursor string) ([]kalshi.Event, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if f.calls >= len(f.pages) {
		return nil, "", nil
	}
	page := f.pages[f.calls]
	f.calls++
	next := ""
	if f.calls < len(f.pages) {
		next = "next"
	}
	return page, next, nil
}

func testSyncer(t *testing.T, lister EventLister, now time.Time) (*Syncer, *Store) {
	t.Helper()
	st := testStore(t)
	s := NewSyncer(lister, st, []string{"Climate and Weather", "Economics"}, []string{"Politics"})
	s.now = func() time.Time { return now }
	return s, st
}

func TestSyncEligibility(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	events := []kalshi.Event{
		{
			EventTicker: "WEATHER",
			Title:       "Summer weather outlooks",
			Category:    "Climate and Weather",
			Markets: []kalshi.Market{
				// Open with plenty of runway: kept.
				{Ticker: "DROUGHT-26", Title: "Drought declared", Status: "open", CloseTime: now.Add(30 * 24 * time.Hour), LastPrice: 35},
				// Open but closing within 48h: skipped.
				{Ticker: "HEAT-TODAY", Title: "Heat advisory today", Status: "open", CloseTime: now.Add(12 * time.Hour)},
				// Unopened with a known open time: kept.
				{Ticker: "RAIN-27", Title: "Rainfall record next year", Status: "unopened", OpenTime: now.Add(90 * 24 * time.Hour), CloseTime: now.Add(400 * 24 * time.Hour)},
				// Unopened with no open time: skipped.
				{Ticker: "FOG-??", Title: "Fog days", Status: "unopened"},
				// Settled: skipped.
				{Ticker: "OLD-25", Title: "Last year's drought", Status: "settled", CloseTime: now.Add(-time.Hour)},
			},
		},
		{
			EventTicker: "SPORTS",
			Title:       "Championship winners",
			Category:    "Sports",
			Markets: []kalshi.Market{
				// Disallowed category: skipped.
				{Ticker: "NBA-26", Title: "Hawks win", Status: "open", CloseTime: now.Add(60 * 24 * time.Hour)},
			},
		},
		{
			EventTicker: "ECON",
			Title:       "Economics",
			Category:    "Economics",
			Markets: []kalshi.Market{
				// Excluded tag in the title: skipped.
				{Ticker: "POL-26", Title: "Politics shapes rate policy", Status: "open", CloseTime: now.Add(60 * 24 * time.Hour)},
				// Clean economics market: kept.
				{Ticker: "CPI-26", Title: "CPI above 3 percent", Status: "active", CloseTime: now.Add(60 * 24 * time.Hour), YesBid: 40, YesAsk: 50},
			},
		},
	}

	lister := &fakeLister{pages: [][]kalshi.Event{events}}
	s, st := testSyncer(t, lister, now)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Expected sync to succeed, got %v", err)
	}

	n, err := st.Count(context.Background())
	if err != nil {
		t.Fatalf("Expected count to succeed, got %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 cached markets, got %d", n)
	}

	got, err := st.SearchByKeywords(context.Background(), []string{"drought"}, 10)
	if err != nil {
		t.Fatalf("Expected search to succeed, got %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "DROUGHT-26" {
		t.Fatalf("Expected DROUGHT-26 cached, got %+v", got)
	}
	if got[0].Platform != "kalshi" {
		t.Errorf("Expected platform kalshi, got %s", got[0].Platform)
	}
	if got[0].PriceYes == nil || *got[0].PriceYes != 0.35 {
		t.Errorf("Expected yes price 0.35, got %v", got[0].PriceYes)
	}
}

func TestSyncMidpointPrice(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	events := []kalshi.Event{{
		EventTicker: "ECON",
		Title:       "Economics",
		Category:    "Economics",
		Markets: []kalshi.Market{
			{Ticker: "CPI-26", Title: "CPI above 3 percent", Status: "open", CloseTime: now.Add(60 * 24 * time.Hour), YesBid: 40, YesAsk: 50},
		},
	}}
	s, st := testSyncer(t, &fakeLister{pages: [][]kalshi.Event{events}}, now)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Expected sync to succeed, got %v", err)
	}
	got, _ := st.SearchByKeywords(context.Background(), []string{"cpi"}, 10)
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	if got[0].PriceYes == nil || *got[0].PriceYes != 0.45 {
		t.Errorf("Expected midpoint 0.45, got %v", got[0].PriceYes)
	}
}

func TestSyncPaginatesAndPrunes(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mk := func(ticker string) kalshi.Market {
		return kalshi.Market{Ticker: ticker, Title: ticker + " drought", Status: "open", CloseTime: now.Add(60 * 24 * time.Hour)}
	}
	pages := [][]kalshi.Event{
		{{EventTicker: "A", Category: "Climate and Weather", Markets: []kalshi.Market{mk("A-1")}}},
		{{EventTicker: "B", Category: "Climate and Weather", Markets: []kalshi.Market{mk("B-1")}}},
	}
	lister := &fakeLister{pages: pages}
	s, st := testSyncer(t, lister, now)

	// A row from an earlier pass that this pass does not touch.
	stale := []CachedMarket{{Ticker: "GONE", Title: "delisted drought", Platform: "kalshi", LastUpdated: now.Add(-24 * time.Hour)}}
	if err := st.Upsert(context.Background(), stale); err != nil {
		t.Fatalf("Expected seed upsert to succeed, got %v", err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Expected sync to succeed, got %v", err)
	}
	if lister.calls != 2 {
		t.Errorf("Expected 2 pages fetched, got %d", lister.calls)
	}

	got, _ := st.SearchByKeywords(context.Background(), []string{"drought"}, 10)
	if len(got) != 2 {
		t.Fatalf("Expected stale row pruned, got %d rows", len(got))
	}
	for _, m := range got {
		if m.Ticker == "GONE" {
			t.Error("Expected delisted market to be pruned")
		}
	}
}

func TestSyncListError(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s, _ := testSyncer(t, &fakeLister{err: errors.New("venue down")}, now)
	if err := s.Run(context.Background()); err == nil {
		t.Error("Expected error when the venue listing fails")
	}
}

func TestMarketTitle(t *testing.T) {
	ev := kalshi.Event{Title: "Summer outlook"}
	cases := []struct {
		m    kalshi.Market
		want string
	}{
		{kalshi.Market{Title: "Drought declared", Subtitle: "Georgia"}, "Drought declared Georgia"},
		{kalshi.Market{Title: "Drought in Georgia", Subtitle: "Georgia"}, "Drought in Georgia"},
		{kalshi.Market{Subtitle: "July"}, "Summer outlook July"},
		{kalshi.Market{}, "Summer outlook"},
	}
	for _, c := range cases {
		if got := marketTitle(ev, c.m); got != c.want {
			t.Errorf("Expected %q, got %q", c.want, got)
		}
	}
}
