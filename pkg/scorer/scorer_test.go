package scorer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smbrisk/hedgescout/internal/store"
)

// scriptedClient returns canned completions in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	var resp string
	if i < len(c.responses) {
		resp = c.responses[i]
	}
	return resp, err
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Expected in-memory store to open, got %v", err)
	}
	t.Cleanup(func() { st.Close() })

	price := 0.32
	rows := []store.CachedMarket{
		{Ticker: "DROUGHT-26", Title: "Severe drought declared in Georgia", Platform: "kalshi", PriceYes: &price, LastUpdated: time.Now().UTC()},
		{Ticker: "RAIN-26", Title: "Record rainfall in the Southeast", Platform: "kalshi", LastUpdated: time.Now().UTC()},
		{Ticker: "NBA-26", Title: "Hawks win the championship", Platform: "kalshi", LastUpdated: time.Now().UTC()},
	}
	if err := st.Upsert(context.Background(), rows); err != nil {
		t.Fatalf("Expected seed upsert to succeed, got %v", err)
	}
	return st
}

const orchardDescription = "Peach orchard in Georgia, worried about drought and late frost."

func TestScoreHappyPath(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`["drought", "rainfall", "frost"]`,
		`[
			{"ticker": "DROUGHT-26", "relevance": 9, "proxy_quality": 8, "actionability": 7, "rationale": "direct drought proxy"},
			{"ticker": "RAIN-26", "relevance": 6, "proxy_quality": 5, "actionability": 5, "rationale": "inverse rainfall proxy"}
		]`,
	}}
	s := New(client, seededStore(t), "gpt-4o-mini")

	res, err := s.Score(context.Background(), orchardDescription)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(res.Keywords) != 3 || res.Keywords[0] != "drought" {
		t.Errorf("Expected 3 keywords starting with drought, got %v", res.Keywords)
	}
	if len(res.Markets) != 2 {
		t.Errorf("Expected 2 cache matches, got %d", len(res.Markets))
	}
	if len(res.ScoredMarkets) != 2 {
		t.Fatalf("Expected 2 scored markets, got %d", len(res.ScoredMarkets))
	}

	top := res.ScoredMarkets[0]
	if top.Ticker != "DROUGHT-26" {
		t.Errorf("Expected DROUGHT-26 first, got %s", top.Ticker)
	}
	if top.Overall != 8 {
		t.Errorf("Expected overall mean 8, got %v", top.Overall)
	}
	if top.Rationale != "direct drought proxy" {
		t.Errorf("Expected rationale preserved, got %q", top.Rationale)
	}
	if res.Inputs.Model != "gpt-4o-mini" {
		t.Errorf("Expected model echoed, got %q", res.Inputs.Model)
	}
}

func TestScoreMissingDescription(t *testing.T) {
	s := New(&scriptedClient{}, seededStore(t), "")
	_, err := s.Score(context.Background(), "   ")
	if CodeOf(err) != CodeMissingDescription {
		t.Errorf("Expected %s, got %v", CodeMissingDescription, err)
	}
}

func TestScoreMissingAPIKey(t *testing.T) {
	s := New(nil, seededStore(t), "")
	_, err := s.Score(context.Background(), orchardDescription)
	if CodeOf(err) != CodeMissingAPIKey {
		t.Errorf("Expected %s, got %v", CodeMissingAPIKey, err)
	}
}

func TestScoreEmptyKeywordResponse(t *testing.T) {
	cases := []string{"", "   ", "[]", `["", "  "]`}
	for _, resp := range cases {
		s := New(&scriptedClient{responses: []string{resp}}, seededStore(t), "")
		_, err := s.Score(context.Background(), orchardDescription)
		if CodeOf(err) != CodeEmptyKeywords {
			t.Errorf("Response %q: expected %s, got %v", resp, CodeEmptyKeywords, err)
		}
	}
}

func TestScoreInvalidKeywordJSON(t *testing.T) {
	s := New(&scriptedClient{responses: []string{"drought, rainfall, frost"}}, seededStore(t), "")
	_, err := s.Score(context.Background(), orchardDescription)
	if CodeOf(err) != CodeInvalidJSON {
		t.Errorf("Expected %s, got %v", CodeInvalidJSON, err)
	}
}

func TestScoreKeywordDedupAndCap(t *testing.T) {
	raw := `["Drought", "drought", " DROUGHT ", "a1","a2","a3","a4","a5","a6","a7","a8","a9","a10","a11","a12","a13","a14","a15","a16","a17","a18","a19","a20","a21"]`
	client := &scriptedClient{responses: []string{raw, `[{"ticker": "DROUGHT-26", "relevance": 5, "proxy_quality": 5, "actionability": 5}]`}}
	s := New(client, seededStore(t), "")

	res, err := s.Score(context.Background(), orchardDescription)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Keywords) != 20 {
		t.Errorf("Expected keyword cap at 20, got %d", len(res.Keywords))
	}
	if res.Keywords[0] != "drought" || res.Keywords[1] != "a1" {
		t.Errorf("Expected deduped lowercase keywords, got %v", res.Keywords[:2])
	}
}

func TestScoreNoCacheMatches(t *testing.T) {
	client := &scriptedClient{responses: []string{`["asteroids"]`}}
	s := New(client, seededStore(t), "")

	res, err := s.Score(context.Background(), orchardDescription)
	if err != nil {
		t.Fatalf("Expected no error for zero matches, got %v", err)
	}
	if len(res.Markets) != 0 || len(res.ScoredMarkets) != 0 {
		t.Errorf("Expected empty result, got %d markets", len(res.Markets))
	}
	if client.calls != 1 {
		t.Errorf("Expected no scoring call without matches, got %d calls", client.calls)
	}
}

func TestScoreEmptyScoreResponse(t *testing.T) {
	cases := []string{"", "[]", `[{"ticker": "UNKNOWN-1", "relevance": 5, "proxy_quality": 5, "actionability": 5}]`}
	for _, resp := range cases {
		client := &scriptedClient{responses: []string{`["drought"]`, resp}}
		s := New(client, seededStore(t), "")
		_, err := s.Score(context.Background(), orchardDescription)
		if CodeOf(err) != CodeEmptyScores {
			t.Errorf("Response %q: expected %s, got %v", resp, CodeEmptyScores, err)
		}
	}
}

func TestScoreInvalidScoreJSON(t *testing.T) {
	client := &scriptedClient{responses: []string{`["drought"]`, "the best market is DROUGHT-26"}}
	s := New(client, seededStore(t), "")
	_, err := s.Score(context.Background(), orchardDescription)
	if CodeOf(err) != CodeInvalidJSON {
		t.Errorf("Expected %s, got %v", CodeInvalidJSON, err)
	}
}

func TestScoreClampsSubScores(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`["drought"]`,
		`[{"ticker": "DROUGHT-26", "relevance": 150, "proxy_quality": -3, "actionability": 6.456, "rationale": "x"}]`,
	}}
	s := New(client, seededStore(t), "")

	res, err := s.Score(context.Background(), orchardDescription)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	m := res.ScoredMarkets[0]
	if m.Relevance != 10 {
		t.Errorf("Expected relevance clamped to 10, got %v", m.Relevance)
	}
	if m.ProxyQuality != 0 {
		t.Errorf("Expected negative score clamped to 0, got %v", m.ProxyQuality)
	}
	if m.Actionability != 6.46 {
		t.Errorf("Expected actionability rounded to 6.46, got %v", m.Actionability)
	}
	// Overall is recomputed from the clamped values: (10 + 0 + 6.46) / 3.
	if m.Overall != 5.49 {
		t.Errorf("Expected overall 5.49, got %v", m.Overall)
	}
}

func TestScoreCompletionError(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("provider down")}}
	s := New(client, seededStore(t), "")
	_, err := s.Score(context.Background(), orchardDescription)
	if err == nil {
		t.Fatal("Expected error when the completion fails")
	}
	if CodeOf(err) != "" {
		t.Errorf("Expected transport error without a scorer code, got %v", err)
	}
}

func TestScoreFencedResponses(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"```json\n[\"drought\"]\n```",
		"```json\n[{\"ticker\": \"DROUGHT-26\", \"relevance\": 7, \"proxy_quality\": 7, \"actionability\": 7}]\n```",
	}}
	s := New(client, seededStore(t), "")

	res, err := s.Score(context.Background(), orchardDescription)
	if err != nil {
		t.Fatalf("Expected fenced JSON to be recovered, got %v", err)
	}
	if len(res.ScoredMarkets) != 1 || res.ScoredMarkets[0].Overall != 7 {
		t.Errorf("Expected one scored market with overall 7, got %+v", res.ScoredMarkets)
	}
}
