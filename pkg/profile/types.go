// Package profile turns free-text business descriptions into structured
// business profiles. Two extractors are provided: a deterministic rule-based
// one and an LLM-backed one that falls back to the rules on any failure.
package profile

// Season describes a revenue season as a start/end month range.
type Season struct {
	StartMonth int    `json:"startMonth"` // 1-12
	EndMonth   int    `json:"endMonth"`   // 1-12
	Notes      string `json:"notes,omitempty"`
}

// Assumption records an inferred field together with how sure we are about it.
type Assumption struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"` // 0-1
	Basis      string  `json:"basis"`
}

// BusinessProfile is the normalized view of one business description.
// It is created once per analysis request and never mutated afterwards.
type BusinessProfile struct {
	RawInput       string       `json:"-"`
	Industry       string       `json:"industry,omitempty"`
	Location       string       `json:"location,omitempty"`
	Region         string       `json:"region,omitempty"`
	Season         *Season      `json:"seasonality,omitempty"`
	RevenueDrivers []string     `json:"revenueDrivers,omitempty"`
	KeyCosts       []string     `json:"keyCosts,omitempty"`
	Exposures      []string     `json:"exposures,omitempty"`
	Keywords       []string     `json:"keywords,omitempty"`
	Assumptions    []Assumption `json:"assumptions,omitempty"`
}

// Extractor produces a profile from raw text.
type Extractor interface {
	Extract(rawText string) *BusinessProfile
}
