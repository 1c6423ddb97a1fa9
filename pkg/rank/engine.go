// Package rank scores candidate contracts against a business profile and
// produces the ordered hedge-signal list. Relevance may be overridden by the
// LLM collaborator; liquidity and time quality are always computed locally.
package rank

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/smbrisk/hedgescout/pkg/category"
	"github.com/smbrisk/hedgescout/pkg/market"
	"github.com/smbrisk/hedgescout/pkg/profile"
)

// ProxyStrength is the qualitative hedge-proxy confidence bucket.
type ProxyStrength string

const (
	ProxyStrong  ProxyStrength = "strong"
	ProxyPartial ProxyStrength = "partial"
	ProxyWeak    ProxyStrength = "weak"
)

// Signal is a market with its scores. Ordering is the externally observed
// property; signals are never mutated after creation.
type Signal struct {
	Market        market.Market `json:"market"`
	Relevance     float64       `json:"relevance"` // 0-1
	ProxyStrength ProxyStrength `json:"proxyStrength"`
	Score         float64       `json:"score"` // weighted blend
	MappedRisk    string        `json:"mappedRisk"`
	Rationale     string        `json:"rationale"`
}

// Weights carries the empirical blend constants. Defaults preserved from the
// original tuning; treat as configuration, not invariants.
type Weights struct {
	Relevance        float64
	Liquidity        float64
	Time             float64
	TopCategoryBoost float64
	StrongMin        float64
	PartialMin       float64
}

// DefaultWeights returns the standard blend.
func DefaultWeights() Weights {
	return Weights{
		Relevance:        0.6,
		Liquidity:        0.25,
		Time:             0.15,
		TopCategoryBoost: 0.15,
		StrongMin:        0.7,
		PartialMin:       0.45,
	}
}

// Override carries the LLM collaborator's judgment for one market. The local
// engine keeps liquidity/time and the final blend.
type Override struct {
	Relevance     float64 // already rescaled to 0-1
	ProxyStrength ProxyStrength
	MappedRisk    string
	Rationale     string
}

// Engine ranks markets for a profile.
type Engine struct {
	weights Weights
	now     func() time.Time
}

// NewEngine creates a ranking engine.
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights, now: time.Now}
}

// Rank scores every market and returns signals sorted descending by combined
// score, ties broken by market ID so the ordering is reproducible.
func (e *Engine) Rank(p *profile.BusinessProfile, matches []category.Match, markets []market.Market, overrides map[string]Override) []Signal {
	keywords := rankingKeywords(p, matches)
	var topCategory category.ID
	if len(matches) > 0 {
		topCategory = matches[0].Category
	}

	signals := make([]Signal, 0, len(markets))
	for _, m := range markets {
		sig := e.score(p, m, keywords, topCategory)
		if ov, ok := overrides[m.ID]; ok {
			sig.Relevance = clamp01(ov.Relevance)
			if ov.ProxyStrength != "" {
				sig.ProxyStrength = ov.ProxyStrength
			}
			if ov.MappedRisk != "" {
				sig.MappedRisk = ov.MappedRisk
			}
			if ov.Rationale != "" {
				sig.Rationale = ov.Rationale
			}
			// Re-blend with the overridden relevance.
			sig.Score = e.blend(sig.Relevance, e.liquidityScore(m), e.timeScore(m))
		}
		signals = append(signals, sig)
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].Market.ID < signals[j].Market.ID
	})

	return signals
}

func (e *Engine) score(p *profile.BusinessProfile, m market.Market, keywords []string, topCategory category.ID) Signal {
	relevance := e.relevance(m, keywords)
	if topCategory != "" && m.Category == topCategory {
		relevance += e.weights.TopCategoryBoost
	}
	relevance = clamp01(relevance)

	liquidity := e.liquidityScore(m)
	timeScore := e.timeScore(m)

	sig := Signal{
		Market:        m,
		Relevance:     relevance,
		ProxyStrength: e.proxyStrength(relevance),
		Score:         e.blend(relevance, liquidity, timeScore),
		MappedRisk:    mappedRisk(p, m),
	}
	sig.Rationale = fmt.Sprintf("relevance %.2f, liquidity %.2f, timing %.2f", relevance, liquidity, timeScore)
	return sig
}

var titleToken = regexp.MustCompile(`[a-z0-9][a-z0-9\-]*`)

// relevance is the overlap ratio between title tokens and the keyword set,
// with the denominator floored at 4 so one-word titles don't score 1.0.
func (e *Engine) relevance(m market.Market, keywords []string) float64 {
	tokens := titleToken.FindAllString(strings.ToLower(m.Title), -1)
	if len(tokens) == 0 {
		return 0
	}

	hits := 0
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
				hits++
				break
			}
		}
	}

	return float64(hits) / math.Max(4, float64(len(tokens)))
}

// liquidityScore maps raw liquidity onto [0,1] on a log scale; a market with
// no reported liquidity gets the neutral 0.5.
func (e *Engine) liquidityScore(m market.Market) float64 {
	if m.Liquidity == nil {
		return 0.5
	}
	return clamp01(math.Log10(math.Max(1, *m.Liquidity)) / 6)
}

// timeScore is the step function over days until close.
func (e *Engine) timeScore(m market.Market) float64 {
	days := m.CloseTime.Sub(e.now()).Hours() / 24
	switch {
	case days <= 0:
		return 0
	case days <= 30:
		return 1.0
	case days <= 90:
		return 0.7
	case days <= 180:
		return 0.5
	default:
		return 0.3
	}
}

func (e *Engine) blend(relevance, liquidity, timeScore float64) float64 {
	return e.weights.Relevance*relevance + e.weights.Liquidity*liquidity + e.weights.Time*timeScore
}

func (e *Engine) proxyStrength(relevance float64) ProxyStrength {
	switch {
	case relevance >= e.weights.StrongMin:
		return ProxyStrong
	case relevance >= e.weights.PartialMin:
		return ProxyPartial
	default:
		return ProxyWeak
	}
}

// mappedRisk labels the business risk a market proxies: the profile's first
// exposure when one exists, else the category's display label.
func mappedRisk(p *profile.BusinessProfile, m market.Market) string {
	if len(p.Exposures) > 0 {
		return p.Exposures[0]
	}
	if cat := category.ByID(m.Category); cat != nil {
		return cat.Label
	}
	return string(m.Category)
}

// rankingKeywords unions the matched categories' keywords with the profile's
// own keywords and exposures, normalized lowercase.
func rankingKeywords(p *profile.BusinessProfile, matches []category.Match) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, match := range matches {
		if cat := category.ByID(match.Category); cat != nil {
			for _, kw := range cat.Keywords {
				add(kw)
			}
		}
	}
	for _, kw := range p.Keywords {
		add(kw)
	}
	for _, exp := range p.Exposures {
		add(exp)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
