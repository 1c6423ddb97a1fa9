// Package scorer implements the database-backed keyword scoring flow: a
// business description is turned into search keywords, matched against the
// cached market table, and the matches are scored by an LLM on three axes.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smbrisk/hedgescout/internal/store"
	"github.com/smbrisk/hedgescout/pkg/llm"
)

// Error codes returned to API callers.
const (
	CodeMissingDescription = "missing_business_description"
	CodeMissingAPIKey      = "missing_api_key"
	CodeEmptyKeywords      = "empty_keyword_response"
	CodeEmptyScores        = "empty_score_response"
	CodeInvalidJSON        = "invalid_json"
)

const (
	maxKeywords    = 20
	maxMarkets     = 50
	scoreFloor     = 0.0
	scoreCeiling   = 10.0
	scorePrecision = 2
)

// Error is a coded scorer failure.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the scorer error code, or "" for other errors.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ScoredMarket is a cached market with LLM-assigned scores. Sub-scores are
// clamped to [0,10]; Overall is always the arithmetic mean of the three.
type ScoredMarket struct {
	store.CachedMarket
	Relevance     float64 `json:"relevance"`
	ProxyQuality  float64 `json:"proxy_quality"`
	Actionability float64 `json:"actionability"`
	Overall       float64 `json:"overall_score"`
	Rationale     string  `json:"rationale,omitempty"`
}

// Result is the full scoring response.
type Result struct {
	Keywords      []string             `json:"keywords"`
	Markets       []store.CachedMarket `json:"markets"`
	ScoredMarkets []ScoredMarket       `json:"scored_markets"`
	Inputs        Inputs               `json:"inputs"`
}

// Inputs echoes what the scorer actually worked from.
type Inputs struct {
	Description string `json:"description"`
	Model       string `json:"model,omitempty"`
}

// Scorer wires the LLM and the market cache together.
type Scorer struct {
	client llm.Client
	store  *store.Store
	model  string
}

// New builds a scorer. client may be nil, in which case Score fails with
// missing_api_key.
func New(client llm.Client, st *store.Store, model string) *Scorer {
	return &Scorer{client: client, store: st, model: model}
}

const keywordSystemPrompt = `You extract search keywords from a business description.
Return ONLY a JSON array of lowercase single-word or short-phrase strings that
describe risks, weather exposure, commodities, regions, and industry terms
relevant to the business. No prose.`

const scoreSystemPrompt = `You score prediction markets as hedging proxies for a business.
For each market return a JSON object with fields:
  "ticker": the market ticker, unchanged
  "relevance": 0-10, how directly the market tracks the business's risk
  "proxy_quality": 0-10, how cleanly a payout offsets the business's loss
  "actionability": 0-10, how practical the hedge is (pricing, horizon)
  "rationale": one short sentence
Return ONLY a JSON array of these objects. No prose.`

// Score runs the full keyword -> lookup -> score flow.
func (s *Scorer) Score(ctx context.Context, description string) (*Result, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &Error{Code: CodeMissingDescription, Message: "business description is required"}
	}
	if s.client == nil {
		return nil, &Error{Code: CodeMissingAPIKey, Message: "no LLM API key configured"}
	}

	keywords, err := s.keywords(ctx, description)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Keywords: keywords,
		Inputs:   Inputs{Description: description, Model: s.model},
	}

	markets, err := s.store.SearchByKeywords(ctx, keywords, maxMarkets)
	if err != nil {
		return nil, fmt.Errorf("search market cache: %w", err)
	}
	result.Markets = markets
	if len(markets) == 0 {
		return result, nil
	}

	scored, err := s.scoreMarkets(ctx, description, markets)
	if err != nil {
		return nil, err
	}
	result.ScoredMarkets = scored
	return result, nil
}

func (s *Scorer) keywords(ctx context.Context, description string) ([]string, error) {
	raw, err := s.client.Complete(ctx, "Business description:\n"+description, keywordSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("keyword completion: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Code: CodeEmptyKeywords, Message: "model returned no keywords"}
	}

	var keywords []string
	if err := llm.DecodeLenient(raw, &keywords); err != nil {
		return nil, &Error{Code: CodeInvalidJSON, Message: "keyword response was not a JSON array", Err: err}
	}

	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if len(out) >= maxKeywords {
			break
		}
	}
	if len(out) == 0 {
		return nil, &Error{Code: CodeEmptyKeywords, Message: "model returned no usable keywords"}
	}
	return out, nil
}

// scoreEntry is the raw per-market judgment from the model.
type scoreEntry struct {
	Ticker        string  `json:"ticker"`
	Relevance     float64 `json:"relevance"`
	ProxyQuality  float64 `json:"proxy_quality"`
	Actionability float64 `json:"actionability"`
	Rationale     string  `json:"rationale"`
}

func (s *Scorer) scoreMarkets(ctx context.Context, description string, markets []store.CachedMarket) ([]ScoredMarket, error) {
	var sb strings.Builder
	sb.WriteString("Business description:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nMarkets:\n")
	for _, m := range markets {
		fmt.Fprintf(&sb, "- ticker=%s title=%q", m.Ticker, m.Title)
		if m.PriceYes != nil {
			fmt.Fprintf(&sb, " yes_price=%.2f", *m.PriceYes)
		}
		sb.WriteString("\n")
	}

	raw, err := s.client.Complete(ctx, sb.String(), scoreSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("score completion: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Code: CodeEmptyScores, Message: "model returned no scores"}
	}

	var entries []scoreEntry
	if err := llm.DecodeLenient(raw, &entries); err != nil {
		return nil, &Error{Code: CodeInvalidJSON, Message: "score response was not a JSON array", Err: err}
	}
	if len(entries) == 0 {
		return nil, &Error{Code: CodeEmptyScores, Message: "model returned an empty score array"}
	}

	byTicker := make(map[string]store.CachedMarket, len(markets))
	for _, m := range markets {
		byTicker[m.Ticker] = m
	}

	var out []ScoredMarket
	for _, e := range entries {
		m, ok := byTicker[strings.TrimSpace(e.Ticker)]
		if !ok {
			continue
		}
		out = append(out, buildScored(m, e))
	}
	if len(out) == 0 {
		return nil, &Error{Code: CodeEmptyScores, Message: "no score entry matched a known ticker"}
	}
	return out, nil
}

// buildScored clamps sub-scores and recomputes the overall score locally.
// The model's own overall figure, if any, is never trusted.
func buildScored(m store.CachedMarket, e scoreEntry) ScoredMarket {
	rel := clampScore(e.Relevance)
	proxy := clampScore(e.ProxyQuality)
	action := clampScore(e.Actionability)

	mean := rel.Add(proxy).Add(action).Div(decimal.NewFromInt(3)).Round(scorePrecision)

	return ScoredMarket{
		CachedMarket:  m,
		Relevance:     rel.InexactFloat64(),
		ProxyQuality:  proxy.InexactFloat64(),
		Actionability: action.InexactFloat64(),
		Overall:       mean.InexactFloat64(),
		Rationale:     strings.TrimSpace(e.Rationale),
	}
}

func clampScore(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		return decimal.Zero
	}
	if ceiling := decimal.NewFromFloat(scoreCeiling); d.GreaterThan(ceiling) {
		return ceiling
	}
	return d.Round(scorePrecision)
}
