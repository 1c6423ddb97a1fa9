package rank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smbrisk/hedgescout/pkg/category"
	"github.com/smbrisk/hedgescout/pkg/llm"
	"github.com/smbrisk/hedgescout/pkg/market"
	"github.com/smbrisk/hedgescout/pkg/profile"
)

// Errors the scoring integrity of a ranking call depends on distinguishing.
var (
	// ErrEmptyResponse means the collaborator returned nothing usable.
	ErrEmptyResponse = errors.New("empty_score_response")
	// ErrInvalidJSON means recovery could not extract a valid payload.
	ErrInvalidJSON = errors.New("invalid_json")
)

const maxRationaleLen = 140

const rankSystemPrompt = `You judge how well prediction-market contracts hedge a specific business risk.

For every market in the list, emit one entry. Output format (JSON array only, no prose):
[{"id": "...", "relevanceScore": 0-100, "proxyStrength": "strong"|"partial"|"weak", "mappedRisk": "...", "rationale": "max 140 chars"}]`

// LLMRanker asks the text-generation collaborator for semantic relevance
// judgments. Its output only ever overrides relevance; market-quality signals
// stay local.
type LLMRanker struct {
	client llm.Client
}

// NewLLMRanker creates a ranker over an LLM client.
func NewLLMRanker(client llm.Client) *LLMRanker {
	return &LLMRanker{client: client}
}

// rankEntry is the expected per-market payload shape.
type rankEntry struct {
	ID             string `json:"id"`
	RelevanceScore any    `json:"relevanceScore"`
	ProxyStrength  string `json:"proxyStrength"`
	MappedRisk     string `json:"mappedRisk"`
	Rationale      string `json:"rationale"`
}

// Score returns relevance overrides keyed by market ID. A failed or
// unparsable call returns a coded error; the caller decides whether to
// proceed with purely local scoring.
func (r *LLMRanker) Score(ctx context.Context, p *profile.BusinessProfile, matches []category.Match, markets []market.Market) (map[string]Override, error) {
	if len(markets) == 0 {
		return map[string]Override{}, nil
	}

	content, err := r.client.Complete(ctx, buildRankPrompt(p, matches, markets), rankSystemPrompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}

	var entries []rankEntry
	if err := llm.DecodeLenient(content, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	known := make(map[string]bool, len(markets))
	for _, m := range markets {
		known[m.ID] = true
	}

	overrides := make(map[string]Override)
	for _, entry := range entries {
		if entry.ID == "" || !known[entry.ID] {
			continue
		}
		overrides[entry.ID] = sanitizeEntry(entry)
	}
	if len(overrides) == 0 {
		return nil, ErrEmptyResponse
	}
	return overrides, nil
}

// sanitizeEntry never trusts the payload: the score is clamped to 0-100 and
// rescaled, the strength bucket must be one of the known values, and the
// rationale is truncated to its budget.
func sanitizeEntry(entry rankEntry) Override {
	score := numberValue(entry.RelevanceScore)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	ov := Override{
		Relevance:  score / 100,
		MappedRisk: strings.TrimSpace(entry.MappedRisk),
	}

	switch ProxyStrength(strings.ToLower(entry.ProxyStrength)) {
	case ProxyStrong, ProxyPartial, ProxyWeak:
		ov.ProxyStrength = ProxyStrength(strings.ToLower(entry.ProxyStrength))
	}

	rationale := strings.TrimSpace(entry.Rationale)
	if runes := []rune(rationale); len(runes) > maxRationaleLen {
		rationale = string(runes[:maxRationaleLen])
	}
	ov.Rationale = rationale

	return ov
}

func numberValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

func buildRankPrompt(p *profile.BusinessProfile, matches []category.Match, markets []market.Market) string {
	var b strings.Builder

	b.WriteString("Business profile:\n")
	if p.Industry != "" {
		fmt.Fprintf(&b, "- Industry: %s\n", p.Industry)
	}
	if p.Region != "" {
		fmt.Fprintf(&b, "- Region: %s\n", p.Region)
	}
	if len(p.Exposures) > 0 {
		fmt.Fprintf(&b, "- Exposures: %s\n", strings.Join(p.Exposures, ", "))
	}
	if len(p.Keywords) > 0 {
		fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(p.Keywords, ", "))
	}
	if len(matches) > 0 {
		var labels []string
		for _, m := range matches {
			labels = append(labels, m.Label)
		}
		fmt.Fprintf(&b, "- Risk categories: %s\n", strings.Join(labels, ", "))
	}

	b.WriteString("\nMarkets:\n")
	for _, m := range markets {
		fmt.Fprintf(&b, "- id=%s title=%q closes=%s\n", m.ID, m.Title, m.CloseTime.Format("2006-01-02"))
	}

	b.WriteString("\nScore every market as a hedge proxy for this business.")
	return b.String()
}
