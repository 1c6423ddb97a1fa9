package market

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smbrisk/hedgescout/pkg/category"
	"github.com/smbrisk/hedgescout/pkg/metrics"
)

// fakeAdapter returns canned markets or a canned error.
type fakeAdapter struct {
	name    string
	markets []Market
	err     error
	delay   time.Duration
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, _ []category.ID) ([]Market, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.markets, f.err
}

func futureMarket(id string) Market {
	return Market{
		ID:        id,
		Title:     "market " + id,
		CloseTime: time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestAggregateJoinsInDeclaredOrder(t *testing.T) {
	// The second adapter is slower; its markets must still come second.
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "one", markets: []Market{futureMarket("a1"), futureMarket("a2")}, delay: 20 * time.Millisecond},
		&fakeAdapter{name: "two", markets: []Market{futureMarket("b1")}},
	)

	res, err := a.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	want := []string{"a1", "a2", "b1"}
	if len(res.Markets) != len(want) {
		t.Fatalf("expected %d markets, got %d", len(want), len(res.Markets))
	}
	for i, id := range want {
		if res.Markets[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, res.Markets[i].ID, id)
		}
	}
	if res.Partial {
		t.Error("no adapter failed, result must not be partial")
	}
}

func TestAggregatePartialOnAdapterError(t *testing.T) {
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "good", markets: []Market{futureMarket("g1")}},
		&fakeAdapter{name: "bad", err: fmt.Errorf("connection refused")},
	)

	res, err := a.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if !res.Partial {
		t.Error("expected a partial result")
	}
	if res.RateLimited {
		t.Error("a plain failure is not a rate limit")
	}
	if len(res.Markets) != 1 {
		t.Errorf("the healthy adapter's markets must survive, got %d", len(res.Markets))
	}
}

func TestAggregateRateLimited(t *testing.T) {
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "throttled", err: fmt.Errorf("venue: %w", ErrRateLimited)},
		&fakeAdapter{name: "good", markets: []Market{futureMarket("g1")}},
	)

	res, err := a.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if !res.Partial || !res.RateLimited {
		t.Errorf("expected partial+rateLimited, got partial=%v rateLimited=%v", res.Partial, res.RateLimited)
	}
}

func TestAggregatePartialWithMarkets(t *testing.T) {
	// An adapter may return what it got before failing; those markets count.
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "flaky", markets: []Market{futureMarket("f1")}, err: ErrRateLimited},
	)

	res, err := a.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res.Markets) != 1 {
		t.Errorf("partial markets dropped: got %d", len(res.Markets))
	}
	if !res.RateLimited {
		t.Error("expected rateLimited")
	}
}

func TestAggregateCancelled(t *testing.T) {
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "slow", markets: []Market{futureMarket("s1")}, delay: 5 * time.Second},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.Aggregate(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestAggregateFilterRuns(t *testing.T) {
	expired := Market{ID: "old", Title: "expired", CloseTime: time.Now().Add(-time.Hour)}
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "one", markets: []Market{expired, futureMarket("live")}},
	)

	res, err := a.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res.Markets) != 1 || res.Markets[0].ID != "live" {
		t.Errorf("hygiene filter did not run: %+v", res.Markets)
	}
}

func TestCacheTTL(t *testing.T) {
	c := NewCache[string, int](30 * time.Millisecond)

	c.Set("k", 42)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("fresh entry: got %v %v", v, ok)
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("stale entry must miss")
	}

	// A new Set replaces the stale entry.
	c.Set("k", 7)
	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Errorf("replaced entry: got %v %v", v, ok)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache[string, []Market](time.Minute)
	if v, ok := c.Get("absent"); ok || v != nil {
		t.Errorf("expected a miss, got %v %v", v, ok)
	}
}

func TestAggregateRecordsVenueMetrics(t *testing.T) {
	pm := metrics.NewPipelineMetrics()
	a := NewAggregator(NewHygieneFilter(0),
		&fakeAdapter{name: "live", markets: []Market{futureMarket("a1")}},
		&fakeAdapter{name: "throttled", err: fmt.Errorf("list series: %w", ErrRateLimited)},
		&fakeAdapter{name: "flaky", err: errors.New("boom")},
	)
	a.SetRecorder(pm)

	if _, err := a.Aggregate(context.Background(), nil); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	counts := []struct {
		venue, status string
		want          float64
	}{
		{"live", "ok", 1},
		{"throttled", "rate_limited", 1},
		{"flaky", "error", 1},
	}
	for _, c := range counts {
		if got := testutil.ToFloat64(pm.VenueRequests.WithLabelValues(c.venue, c.status)); got != c.want {
			t.Errorf("venue requests %s/%s: got %v, want %v", c.venue, c.status, got, c.want)
		}
	}
	if got := testutil.ToFloat64(pm.RateLimitsTotal.WithLabelValues("throttled")); got != 1 {
		t.Errorf("rate limits for throttled: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.RateLimitsTotal.WithLabelValues("flaky")); got != 0 {
		t.Errorf("rate limits for flaky: got %v, want 0", got)
	}
}
