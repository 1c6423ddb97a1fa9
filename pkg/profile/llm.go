package profile

import (
	"context"
	"strings"

	"github.com/smbrisk/hedgescout/pkg/llm"
)

const extractSystemPrompt = `You analyze small-business descriptions and emit a JSON profile.

Output format (JSON only, no prose):
{
  "industry": "short label or null",
  "location": "place mentioned or null",
  "seasonality": {"startMonth": 1-12, "endMonth": 1-12, "notes": "..."} or null,
  "revenueDrivers": ["..."],
  "keyCosts": ["..."],
  "assumptions": [{"field": "...", "value": "...", "confidence": 0.0-1.0, "basis": "..."}]
}`

// LLMExtractor asks the text-generation collaborator for a structured profile
// and overlays it on the rule-based result. Any failure, from the network to
// unparsable output, silently degrades to the rule-based profile: the
// collaborator must never be a single point of failure for producing one.
type LLMExtractor struct {
	client llm.Client
	rules  *RuleExtractor
}

// NewLLMExtractor creates an LLM-backed extractor with a rule-based fallback.
func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{
		client: client,
		rules:  NewRuleExtractor(),
	}
}

// Extract implements Extractor without a caller-supplied context.
func (e *LLMExtractor) Extract(rawText string) *BusinessProfile {
	return e.ExtractContext(context.Background(), rawText)
}

// ExtractContext builds a profile, consulting the LLM when possible.
func (e *LLMExtractor) ExtractContext(ctx context.Context, rawText string) *BusinessProfile {
	base := e.rules.Extract(rawText)

	overlay, err := e.extractLLM(ctx, rawText)
	if err != nil {
		return base
	}
	merge(base, overlay)
	return base
}

// extractLLM is the fallible half: the caller decides what to do on error.
func (e *LLMExtractor) extractLLM(ctx context.Context, rawText string) (*BusinessProfile, error) {
	content, err := e.client.Complete(ctx, "Business description:\n\n"+rawText, extractSystemPrompt)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := llm.DecodeLenient(content, &raw); err != nil {
		return nil, err
	}

	return sanitizeProfile(raw), nil
}

// sanitizeProfile keeps only fields of the expected shape; everything else is
// dropped. The collaborator's output is never trusted as-is.
func sanitizeProfile(raw map[string]any) *BusinessProfile {
	p := &BusinessProfile{
		Industry:       cleanString(raw["industry"]),
		Location:       cleanString(raw["location"]),
		RevenueDrivers: cleanStringSlice(raw["revenueDrivers"]),
		KeyCosts:       cleanStringSlice(raw["keyCosts"]),
	}

	if season, ok := raw["seasonality"].(map[string]any); ok {
		start := int(cleanNumber(season["startMonth"]))
		end := int(cleanNumber(season["endMonth"]))
		if start >= 1 && start <= 12 && end >= 1 && end <= 12 {
			p.Season = &Season{
				StartMonth: start,
				EndMonth:   end,
				Notes:      cleanString(season["notes"]),
			}
		}
	}

	if assumptions, ok := raw["assumptions"].([]any); ok {
		for _, a := range assumptions {
			entry, ok := a.(map[string]any)
			if !ok {
				continue
			}
			assumption := Assumption{
				Field:      cleanString(entry["field"]),
				Value:      cleanString(entry["value"]),
				Confidence: 0.5,
				Basis:      cleanString(entry["basis"]),
			}
			if conf, ok := entry["confidence"].(float64); ok && conf >= 0 && conf <= 1 {
				assumption.Confidence = conf
			}
			if assumption.Field != "" {
				p.Assumptions = append(p.Assumptions, assumption)
			}
		}
	}

	return p
}

// merge overlays the LLM-derived fields onto the rule-based base profile.
// Keywords and exposures always come from the deterministic tokenizer.
func merge(base, overlay *BusinessProfile) {
	if overlay.Industry != "" {
		base.Industry = overlay.Industry
	}
	if overlay.Location != "" {
		base.Location = overlay.Location
		if base.Region == "" {
			lower := strings.ToLower(overlay.Location)
			for _, sr := range stateRegions {
				if strings.Contains(lower, sr.state) {
					base.Region = sr.region
					break
				}
			}
		}
	}
	if overlay.Season != nil {
		base.Season = overlay.Season
	}
	if len(overlay.RevenueDrivers) > 0 {
		base.RevenueDrivers = overlay.RevenueDrivers
	}
	if len(overlay.KeyCosts) > 0 {
		base.KeyCosts = overlay.KeyCosts
	}
	base.Assumptions = append(base.Assumptions, overlay.Assumptions...)
}

func cleanString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func cleanNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		// Months sometimes come back as "6".
		var f float64
		for _, c := range n {
			if c < '0' || c > '9' {
				return 0
			}
			f = f*10 + float64(c-'0')
		}
		return f
	}
	return 0
}

func cleanStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
