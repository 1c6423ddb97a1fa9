package category

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smbrisk/hedgescout/pkg/profile"
)

// Match is one category's fit against a profile.
type Match struct {
	Category   ID      `json:"category"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0-1
	Rationale  string  `json:"rationale"`
}

// Confidence formula constants. Empirical tuning, not invariants.
const (
	confidenceBase = 0.15
	coverageWeight = 0.75
	regionBoost    = 0.05
)

// MatchProfile scores the profile against every catalog category and returns
// the categories with at least one keyword hit, sorted by confidence
// descending with ties broken by category ID.
func MatchProfile(p *profile.BusinessProfile) []Match {
	candidates := candidateKeywords(p)
	industry := strings.ToLower(p.Industry)

	var matches []Match
	for _, cat := range Catalog {
		var hitKeywords []string
		for _, kw := range cat.Keywords {
			for _, cand := range candidates {
				if containsEither(kw, cand) {
					hitKeywords = append(hitKeywords, kw)
					break
				}
			}
		}

		hits := len(hitKeywords)
		industryHit := false
		if industry != "" {
			for _, kw := range cat.Keywords {
				if containsEither(kw, industry) {
					industryHit = true
					break
				}
			}
		}
		if industryHit {
			hits++
		}
		if hits == 0 {
			continue
		}

		coverage := float64(hits) / float64(clamp(len(cat.Keywords), 4, 8))
		confidence := confidenceBase + coverage*coverageWeight
		if p.Region != "" && cat.Region != "national" {
			confidence += regionBoost
		}
		if confidence > 1 {
			confidence = 1
		}

		matches = append(matches, Match{
			Category:   cat.ID,
			Label:      cat.Label,
			Confidence: confidence,
			Rationale:  rationale(hitKeywords, industryHit, industry, p.Region),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Category < matches[j].Category
	})

	return matches
}

// candidateKeywords collects the profile's industry, location, keywords, and
// exposures into one normalized lowercase set.
func candidateKeywords(p *profile.BusinessProfile) []string {
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

	add(p.Industry)
	add(p.Location)
	for _, kw := range p.Keywords {
		add(kw)
	}
	for _, exp := range p.Exposures {
		add(exp)
	}
	return out
}

// containsEither tests bidirectional substring containment.
func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func rationale(hitKeywords []string, industryHit bool, industry, region string) string {
	parts := []string{}
	if len(hitKeywords) > 0 {
		parts = append(parts, "matched "+strings.Join(hitKeywords, ", "))
	}
	if industryHit {
		parts = append(parts, fmt.Sprintf("industry %q fits", industry))
	}
	if region != "" {
		parts = append(parts, "region "+region)
	}
	return strings.Join(parts, "; ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
