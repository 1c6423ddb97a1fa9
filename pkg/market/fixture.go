package market

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smbrisk/hedgescout/pkg/category"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// fixtureFile is the on-disk/embedded YAML shape for fixture markets.
type fixtureFile struct {
	Markets []fixtureMarket `yaml:"markets"`
}

type fixtureMarket struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	CloseInDays int      `yaml:"close_in_days"`
	YesPrice    *float64 `yaml:"yes_price"`
	Liquidity   *float64 `yaml:"liquidity"`
	Volume      *float64 `yaml:"volume"`
	URL         string   `yaml:"url"`
}

// FixtureAdapter serves markets from a fixed in-memory table. Close times are
// relative to fetch time so fixtures never expire.
type FixtureAdapter struct {
	markets []fixtureMarket
	now     func() time.Time
}

// NewFixtureAdapter loads the embedded fixture table.
func NewFixtureAdapter() *FixtureAdapter {
	a, err := newFixtureAdapter(defaultFixtures)
	if err != nil {
		// The embedded table is validated by tests; reaching this means a
		// build-time mistake.
		panic(fmt.Sprintf("embedded fixtures invalid: %v", err))
	}
	return a
}

// NewFixtureAdapterFromFile loads a fixture table from a YAML file.
func NewFixtureAdapterFromFile(path string) (*FixtureAdapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return newFixtureAdapter(data)
}

func newFixtureAdapter(data []byte) (*FixtureAdapter, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for _, m := range file.Markets {
		if m.ID == "" || m.Title == "" {
			return nil, fmt.Errorf("fixture market missing id or title")
		}
		if category.ByID(category.ID(m.Category)) == nil {
			return nil, fmt.Errorf("fixture market %s: unknown category %q", m.ID, m.Category)
		}
	}
	return &FixtureAdapter{markets: file.Markets, now: time.Now}, nil
}

// Name implements Adapter.
func (a *FixtureAdapter) Name() string {
	return "fixture"
}

// Fetch returns fixture markets tagged with the requested categories, or all
// markets when the category list is empty.
func (a *FixtureAdapter) Fetch(_ context.Context, categories []category.ID) ([]Market, error) {
	want := make(map[category.ID]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	now := a.now()
	var out []Market
	for _, fm := range a.markets {
		catID := category.ID(fm.Category)
		if len(categories) > 0 && !want[catID] {
			continue
		}

		m := Market{
			ID:          fm.ID,
			Venue:       a.Name(),
			Title:       fm.Title,
			Description: fm.Description,
			Category:    catID,
			CloseTime:   now.AddDate(0, 0, fm.CloseInDays),
			Liquidity:   fm.Liquidity,
			Volume:      fm.Volume,
			URL:         fm.URL,
			Outcomes: []Outcome{
				{ID: fm.ID + "-yes", Label: "Yes", Price: fm.YesPrice},
				{ID: fm.ID + "-no", Label: "No", Price: complementPrice(fm.YesPrice)},
			},
		}
		out = append(out, m)
	}
	return out, nil
}

func complementPrice(yes *float64) *float64 {
	if yes == nil {
		return nil
	}
	no := 1 - *yes
	return &no
}
