package market

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLiquidityFloor is the eligibility floor applied when a market
// reports a liquidity measure.
const DefaultLiquidityFloor = 20_000.0

// HygieneFilter removes expired, illiquid, and duplicate-titled contracts.
// Running it twice on its own output yields the same set.
type HygieneFilter struct {
	liquidityFloor float64
	now            func() time.Time
}

// NewHygieneFilter creates a filter with the given liquidity floor.
func NewHygieneFilter(liquidityFloor float64) *HygieneFilter {
	return &HygieneFilter{
		liquidityFloor: liquidityFloor,
		now:            time.Now,
	}
}

// Apply filters the input in order: markets whose close time is not strictly
// in the future are dropped, markets reporting liquidity below the floor are
// dropped, and duplicate normalized titles keep only the first occurrence.
func (f *HygieneFilter) Apply(markets []Market) []Market {
	now := f.now()
	seen := make(map[string]bool)

	out := make([]Market, 0, len(markets))
	for _, m := range markets {
		if m.CloseTime.IsZero() || !m.CloseTime.After(now) {
			continue
		}
		if m.Liquidity != nil && *m.Liquidity < f.liquidityFloor {
			continue
		}
		key := NormalizeTitle(m.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle produces the dedup key for a market title: lowercase,
// accents removed, punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	s := strings.ToLower(title)
	s, _, _ = transform.String(deaccent, s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
