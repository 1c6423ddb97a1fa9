package market

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smbrisk/hedgescout/internal/logger"
	"github.com/smbrisk/hedgescout/pkg/category"
)

// FetchRecorder receives per-adapter fetch outcomes. metrics.PipelineMetrics
// satisfies it.
type FetchRecorder interface {
	RecordVenueFetch(venue, status string, duration time.Duration, markets int)
	RecordRateLimit(venue string)
}

// Result is the aggregated, filtered candidate set. Partial is set when any
// adapter failed; RateLimited additionally when the failure was a venue
// throttle after retries.
type Result struct {
	Markets     []Market `json:"markets"`
	Partial     bool     `json:"partial"`
	RateLimited bool     `json:"rateLimited"`
}

// Aggregator fans out to its adapters in parallel and joins the results in
// the declared adapter order before hygiene filtering, so which duplicate
// survives dedup is deterministic.
type Aggregator struct {
	adapters []Adapter
	filter   *HygieneFilter
	recorder FetchRecorder
}

// NewAggregator creates an aggregator over a fixed adapter sequence.
func NewAggregator(filter *HygieneFilter, adapters ...Adapter) *Aggregator {
	return &Aggregator{
		adapters: adapters,
		filter:   filter,
	}
}

// SetRecorder attaches a metrics sink for per-adapter fetch outcomes.
func (a *Aggregator) SetRecorder(r FetchRecorder) {
	a.recorder = r
}

// Aggregate fetches candidates for the category set from every adapter, then
// runs the combined output through the hygiene filter. A single adapter
// failure degrades the result to partial instead of failing the request.
func (a *Aggregator) Aggregate(ctx context.Context, categories []category.ID) (*Result, error) {
	results := make([][]Market, len(a.adapters))
	errs := make([]error, len(a.adapters))

	var wg sync.WaitGroup
	for i, adapter := range a.adapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			start := time.Now()
			results[i], errs[i] = adapter.Fetch(ctx, categories)
			a.recordFetch(adapter.Name(), time.Since(start), len(results[i]), errs[i])
		}(i, adapter)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// Cancellation is silent: the caller went away.
		return nil, err
	}

	res := &Result{}
	var combined []Market
	for i, adapter := range a.adapters {
		combined = append(combined, results[i]...)
		if errs[i] == nil {
			continue
		}
		res.Partial = true
		if errors.Is(errs[i], ErrRateLimited) {
			res.RateLimited = true
		} else {
			logger.Warn("adapter %s failed: %v", adapter.Name(), errs[i])
		}
	}

	res.Markets = a.filter.Apply(combined)
	return res, nil
}

// recordFetch reports one adapter fetch to the attached recorder, if any.
func (a *Aggregator) recordFetch(venue string, duration time.Duration, markets int, err error) {
	if a.recorder == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
		a.recorder.RecordRateLimit(venue)
	case err != nil:
		status = "error"
	}
	a.recorder.RecordVenueFetch(venue, status, duration, markets)
}
