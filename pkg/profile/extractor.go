package profile

import (
	"regexp"
	"strings"
)

const maxKeywords = 20

// stopWords are dropped during tokenization.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "had": true, "his": true, "how": true, "its": true,
	"may": true, "new": true, "now": true, "old": true, "see": true,
	"two": true, "way": true, "who": true, "did": true, "get": true,
	"him": true, "this": true, "that": true, "with": true, "from": true,
	"they": true, "will": true, "would": true, "there": true, "their": true,
	"what": true, "about": true, "which": true, "when": true, "make": true,
	"like": true, "time": true, "just": true, "know": true, "take": true,
	"into": true, "year": true, "your": true, "some": true, "could": true,
	"them": true, "other": true, "than": true, "then": true, "also": true,
	"more": true, "these": true, "want": true, "been": true, "much": true,
	"where": true, "most": true, "over": true, "such": true, "very": true,
}

// exposureVocab is matched as substrings against the lowercased input.
var exposureVocab = []string{
	"hurricane", "drought", "flood", "rain", "storm", "heat", "snow",
	"interest rate", "inflation", "supply chain", "fuel", "energy",
	"pest", "disease",
}

// industryHints map description keywords to an industry label; first match wins.
var industryHints = []struct {
	keyword  string
	industry string
}{
	{"farm", "agriculture"},
	{"crop", "agriculture"},
	{"orchard", "agriculture"},
	{"resort", "tourism"},
	{"hotel", "tourism"},
	{"rental", "tourism"},
	{"logistics", "logistics"},
	{"warehouse", "logistics"},
	{"construction", "real estate"},
	{"software", "technology"},
}

// stateRegions maps US state mentions to region codes; scanned in order,
// first match wins.
var stateRegions = []struct {
	state  string
	region string
}{
	{"florida", "southeast"},
	{"georgia", "southeast"},
	{"louisiana", "southeast"},
	{"texas", "south"},
	{"oklahoma", "south"},
	{"california", "west"},
	{"oregon", "northwest"},
	{"washington", "northwest"},
	{"arizona", "southwest"},
	{"nevada", "southwest"},
	{"new mexico", "southwest"},
	{"colorado", "mountain"},
	{"utah", "mountain"},
	{"montana", "mountain"},
	{"iowa", "midwest"},
	{"kansas", "midwest"},
	{"nebraska", "midwest"},
	{"illinois", "midwest"},
	{"ohio", "midwest"},
	{"michigan", "midwest"},
	{"minnesota", "midwest"},
	{"new york", "northeast"},
	{"massachusetts", "northeast"},
	{"vermont", "northeast"},
	{"maine", "northeast"},
	{"north carolina", "southeast"},
	{"south carolina", "southeast"},
	{"virginia", "southeast"},
	{"tennessee", "southeast"},
	{"alabama", "southeast"},
	{"mississippi", "southeast"},
}

// monthNumbers is scanned in calendar order; abbreviations share the number.
var monthNumbers = []struct {
	name  string
	num   int
	abbrs []string
}{
	{"january", 1, []string{"jan"}},
	{"february", 2, []string{"feb"}},
	{"march", 3, []string{"mar"}},
	{"april", 4, []string{"apr"}},
	{"may", 5, nil},
	{"june", 6, []string{"jun"}},
	{"july", 7, []string{"jul"}},
	{"august", 8, []string{"aug"}},
	{"september", 9, []string{"sep", "sept"}},
	{"october", 10, []string{"oct"}},
	{"november", 11, []string{"nov"}},
	{"december", 12, []string{"dec"}},
}

var (
	nonToken    = regexp.MustCompile(`[^a-z0-9\- ]+`)
	seasonRange = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s*(?:-|–|to|through)\s*(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\b`)

	// One word-boundary pattern per calendar month, in calendar order.
	monthPatterns = func() []*regexp.Regexp {
		pats := make([]*regexp.Regexp, 0, len(monthNumbers))
		for _, m := range monthNumbers {
			alt := m.name
			for _, a := range m.abbrs {
				alt += "|" + a
			}
			pats = append(pats, regexp.MustCompile(`\b(?:`+alt+`)\b`))
		}
		return pats
	}()
)

// RuleExtractor derives a profile from fixed vocabularies and regexes.
// It cannot fail: every branch has a null or empty fallback.
type RuleExtractor struct{}

// NewRuleExtractor creates a rule-based extractor.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// Extract builds a BusinessProfile from raw text.
func (e *RuleExtractor) Extract(rawText string) *BusinessProfile {
	lower := strings.ToLower(rawText)

	p := &BusinessProfile{
		RawInput: rawText,
		Keywords: tokenize(lower),
	}

	for _, term := range exposureVocab {
		if strings.Contains(lower, term) {
			p.Exposures = append(p.Exposures, term)
		}
	}

	for _, hint := range industryHints {
		if strings.Contains(lower, hint.keyword) {
			p.Industry = hint.industry
			p.Assumptions = append(p.Assumptions, Assumption{
				Field:      "industry",
				Value:      hint.industry,
				Confidence: 0.7,
				Basis:      "keyword \"" + hint.keyword + "\"",
			})
			break
		}
	}

	for _, sr := range stateRegions {
		if strings.Contains(lower, sr.state) {
			p.Location = sr.state
			p.Region = sr.region
			p.Assumptions = append(p.Assumptions, Assumption{
				Field:      "region",
				Value:      sr.region,
				Confidence: 0.8,
				Basis:      "state \"" + sr.state + "\"",
			})
			break
		}
	}

	p.Season = detectSeason(lower)

	return p
}

// tokenize lowercases, strips non-alphanumerics (keeping hyphens), and keeps
// the first 20 unique tokens of length > 2 that are not stop words.
func tokenize(lower string) []string {
	cleaned := nonToken.ReplaceAllString(lower, " ")

	seen := make(map[string]bool)
	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		tok = strings.Trim(tok, "-")
		if len(tok) <= 2 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}

func monthNumber(s string) int {
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	for _, m := range monthNumbers {
		if s == m.name {
			return m.num
		}
		for _, a := range m.abbrs {
			if s == a {
				return m.num
			}
		}
	}
	return 0
}

// detectSeason looks for an explicit "<month> to <month>" range first, then
// falls back to the first and last month mentioned anywhere in the text. The
// fallback scans the month dictionary in calendar order, not text order.
func detectSeason(lower string) *Season {
	if m := seasonRange.FindStringSubmatch(lower); m != nil {
		start, end := monthNumber(m[1]), monthNumber(m[2])
		if start > 0 && end > 0 {
			return &Season{StartMonth: start, EndMonth: end, Notes: "detected range"}
		}
	}

	var present []int
	for i, m := range monthNumbers {
		if monthPatterns[i].MatchString(lower) {
			present = append(present, m.num)
		}
	}
	if len(present) >= 2 {
		return &Season{StartMonth: present[0], EndMonth: present[len(present)-1], Notes: "months mentioned"}
	}

	return nil
}
