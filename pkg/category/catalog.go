// Package category scores business profiles against a fixed catalog of risk
// categories using keyword overlap.
package category

// ID identifies a risk category from the fixed closed set.
type ID string

const (
	Agriculture ID = "agriculture"
	Weather     ID = "weather"
	Energy      ID = "energy"
	Logistics   ID = "logistics"
	Tourism     ID = "tourism"
	Sports      ID = "sports"
	Finance     ID = "finance"
	Health      ID = "health"
	Technology  ID = "technology"
	RealEstate  ID = "real-estate"
)

// Category describes one entry of the risk catalog.
type Category struct {
	ID       ID
	Label    string
	Keywords []string
	Notes    string
	// Region is "national" when contracts in this category are rarely
	// region-specific; anything else earns a small boost for profiles with
	// a known region.
	Region string
}

// Catalog is the fixed set of risk categories, in stable ID order.
var Catalog = []Category{
	{
		ID:       Agriculture,
		Label:    "Agriculture",
		Keywords: []string{"farm", "crop", "harvest", "livestock", "orchard", "grain", "irrigation"},
		Notes:    "Crop yields, growing-season weather, commodity prices.",
		Region:   "regional",
	},
	{
		ID:       Weather,
		Label:    "Weather",
		Keywords: []string{"hurricane", "drought", "flood", "rain", "storm", "snow", "heat", "temperature"},
		Notes:    "Severe-weather and climate contracts.",
		Region:   "regional",
	},
	{
		ID:       Energy,
		Label:    "Energy",
		Keywords: []string{"fuel", "gas", "oil", "electricity", "energy", "power"},
		Notes:    "Fuel and electricity price exposure.",
		Region:   "national",
	},
	{
		ID:       Logistics,
		Label:    "Logistics",
		Keywords: []string{"shipping", "freight", "supply chain", "warehouse", "delivery", "port"},
		Notes:    "Freight rates, port congestion, supply-chain disruption.",
		Region:   "national",
	},
	{
		ID:       Tourism,
		Label:    "Tourism",
		Keywords: []string{"travel", "hotel", "resort", "tourism", "vacation", "airline"},
		Notes:    "Travel demand and seasonal visitor volume.",
		Region:   "regional",
	},
	{
		ID:       Sports,
		Label:    "Sports",
		Keywords: []string{"game", "season", "team", "championship", "playoffs", "stadium"},
		Notes:    "Event outcomes that drive local foot traffic.",
		Region:   "regional",
	},
	{
		ID:       Finance,
		Label:    "Finance",
		Keywords: []string{"interest rate", "inflation", "fed", "recession", "gdp", "unemployment"},
		Notes:    "Macro indicators and central-bank decisions.",
		Region:   "national",
	},
	{
		ID:       Health,
		Label:    "Health",
		Keywords: []string{"flu", "pandemic", "disease", "outbreak", "health", "hospital"},
		Notes:    "Public-health events affecting demand and staffing.",
		Region:   "national",
	},
	{
		ID:       Technology,
		Label:    "Technology",
		Keywords: []string{"software", "cyber", "outage", "cloud", "data", "internet"},
		Notes:    "Platform outages, cyber incidents, tech-sector shifts.",
		Region:   "national",
	},
	{
		ID:       RealEstate,
		Label:    "Real Estate",
		Keywords: []string{"construction", "housing", "mortgage", "property", "rent", "building"},
		Notes:    "Housing starts, mortgage rates, construction activity.",
		Region:   "regional",
	},
}

// ByID returns the catalog entry for id, or nil when unknown.
func ByID(id ID) *Category {
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i]
		}
	}
	return nil
}
