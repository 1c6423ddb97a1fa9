// Package scout wires the full analysis pipeline: profile extraction,
// category matching, market aggregation, and signal ranking.
package scout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smbrisk/hedgescout/internal/logger"
	"github.com/smbrisk/hedgescout/pkg/category"
	"github.com/smbrisk/hedgescout/pkg/market"
	"github.com/smbrisk/hedgescout/pkg/metrics"
	"github.com/smbrisk/hedgescout/pkg/profile"
	"github.com/smbrisk/hedgescout/pkg/rank"
)

// ErrMissingDescription is returned when the request carries no text.
var ErrMissingDescription = errors.New("missing_business_description")

const defaultTopCategories = 3

// Extractor produces a business profile from free text.
type Extractor interface {
	ExtractContext(ctx context.Context, rawText string) *profile.BusinessProfile
}

// ruleOnly lifts the context-free rule extractor into the pipeline interface.
type ruleOnly struct {
	inner profile.Extractor
}

func (r ruleOnly) ExtractContext(_ context.Context, rawText string) *profile.BusinessProfile {
	return r.inner.Extract(rawText)
}

// WrapExtractor adapts a context-free extractor for pipeline use.
func WrapExtractor(e profile.Extractor) Extractor {
	return ruleOnly{inner: e}
}

// Report is the full output of one analysis run.
type Report struct {
	RequestID   string                   `json:"request_id"`
	Profile     *profile.BusinessProfile `json:"profile"`
	Matches     []category.Match         `json:"matches"`
	Signals     []rank.Signal            `json:"signals"`
	Partial     bool                     `json:"partial"`
	RateLimited bool                     `json:"rate_limited"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// Pipeline runs analysis end to end. The LLM ranker is optional; when it is
// absent or fails, local scoring stands alone.
type Pipeline struct {
	extractor     Extractor
	aggregator    *market.Aggregator
	engine        *rank.Engine
	ranker        *rank.LLMRanker
	metrics       *metrics.PipelineMetrics
	topCategories int
}

// Options configures a pipeline. Extractor, Aggregator, and Engine are
// required; the rest are optional.
type Options struct {
	Extractor     Extractor
	Aggregator    *market.Aggregator
	Engine        *rank.Engine
	Ranker        *rank.LLMRanker
	Metrics       *metrics.PipelineMetrics
	TopCategories int
}

// NewPipeline builds a pipeline from options.
func NewPipeline(opts Options) *Pipeline {
	top := opts.TopCategories
	if top <= 0 {
		top = defaultTopCategories
	}
	return &Pipeline{
		extractor:     opts.Extractor,
		aggregator:    opts.Aggregator,
		engine:        opts.Engine,
		ranker:        opts.Ranker,
		metrics:       opts.Metrics,
		topCategories: top,
	}
}

// Analyze runs the full pipeline over a business description.
func (p *Pipeline) Analyze(ctx context.Context, rawText string) (*Report, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrMissingDescription
	}

	start := time.Now()
	report := &Report{
		RequestID:   uuid.NewString(),
		GeneratedAt: start.UTC(),
	}

	stageStart := time.Now()
	report.Profile = p.extractor.ExtractContext(ctx, rawText)
	p.recordStage("extract", stageStart)

	stageStart = time.Now()
	report.Matches = category.MatchProfile(report.Profile)
	p.recordStage("match", stageStart)

	if len(report.Matches) == 0 {
		logger.Info("analysis %s: no category matched, returning empty report", report.RequestID)
		p.recordAnalysis("no_match", start, 0)
		return report, nil
	}

	stageStart = time.Now()
	result, err := p.aggregator.Aggregate(ctx, topCategoryIDs(report.Matches, p.topCategories))
	p.recordStage("aggregate", stageStart)
	if err != nil {
		p.recordAnalysis("error", start, 0)
		return nil, err
	}
	report.Partial = result.Partial
	report.RateLimited = result.RateLimited

	overrides := p.scoreWithLLM(ctx, report, result.Markets)

	stageStart = time.Now()
	report.Signals = p.engine.Rank(report.Profile, report.Matches, result.Markets, overrides)
	p.recordStage("rank", stageStart)

	status := "ok"
	if report.Partial {
		status = "partial"
	}
	p.recordAnalysis(status, start, len(report.Signals))
	logger.Info("analysis %s: %d matches, %d markets, %d signals (partial=%v)",
		report.RequestID, len(report.Matches), len(result.Markets), len(report.Signals), report.Partial)

	return report, nil
}

// scoreWithLLM asks the optional ranker for score overrides. Failures are
// logged and swallowed; local ranking proceeds without overrides.
func (p *Pipeline) scoreWithLLM(ctx context.Context, report *Report, markets []market.Market) map[string]rank.Override {
	if p.ranker == nil || len(markets) == 0 {
		return nil
	}

	stageStart := time.Now()
	overrides, err := p.ranker.Score(ctx, report.Profile, report.Matches, markets)
	p.recordStage("llm_rank", stageStart)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("analysis %s: LLM ranking unavailable, using local scores: %v", report.RequestID, err)
			if p.metrics != nil {
				p.metrics.RecordLLMError("rank")
			}
		}
		return nil
	}
	return overrides
}

func (p *Pipeline) recordStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStage(stage, time.Since(start))
	}
}

func (p *Pipeline) recordAnalysis(status string, start time.Time, signals int) {
	if p.metrics != nil {
		p.metrics.RecordAnalysis(status, time.Since(start), signals)
	}
}

// topCategoryIDs returns the IDs of the n strongest matches. Matches arrive
// already sorted by confidence.
func topCategoryIDs(matches []category.Match, n int) []category.ID {
	if n > len(matches) {
		n = len(matches)
	}
	ids := make([]category.ID, 0, n)
	for _, m := range matches[:n] {
		ids = append(ids, m.Category)
	}
	return ids
}
