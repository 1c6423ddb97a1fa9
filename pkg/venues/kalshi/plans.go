package kalshi

import "github.com/smbrisk/hedgescout/pkg/category"

// DiscoveryPlan tells the adapter how to find contracts for one risk
// category: venue tags first, then title keywords as a last resort, with an
// optional venue-native category label acting as a hard filter.
type DiscoveryPlan struct {
	// VenueCategory, when set, must match the series' own category label.
	VenueCategory string
	// Tags select series via the venue's tag filter.
	Tags []string
	// TitleKeywords match against series titles when tags come up short.
	TitleKeywords []string
}

// discoveryPlans maps each risk category to its venue discovery plan.
var discoveryPlans = map[category.ID]DiscoveryPlan{
	category.Agriculture: {
		VenueCategory: "Climate and Weather",
		Tags:          []string{"agriculture", "crops"},
		TitleKeywords: []string{"corn", "wheat", "harvest", "crop"},
	},
	category.Weather: {
		VenueCategory: "Climate and Weather",
		Tags:          []string{"weather", "climate", "hurricanes"},
		TitleKeywords: []string{"hurricane", "temperature", "rain", "snow", "drought"},
	},
	category.Energy: {
		Tags:          []string{"energy", "gas-prices"},
		TitleKeywords: []string{"gas price", "oil", "electricity"},
	},
	category.Logistics: {
		Tags:          []string{"transportation", "shipping"},
		TitleKeywords: []string{"port", "freight", "shipping", "supply chain"},
	},
	category.Tourism: {
		Tags:          []string{"travel"},
		TitleKeywords: []string{"travel", "airline", "tsa", "tourism"},
	},
	category.Sports: {
		VenueCategory: "Sports",
		Tags:          []string{"sports"},
		TitleKeywords: []string{"championship", "playoffs", "season"},
	},
	category.Finance: {
		VenueCategory: "Economics",
		Tags:          []string{"economics", "fed", "inflation"},
		TitleKeywords: []string{"fed", "cpi", "inflation", "interest rate", "recession"},
	},
	category.Health: {
		Tags:          []string{"health"},
		TitleKeywords: []string{"flu", "covid", "outbreak", "pandemic"},
	},
	category.Technology: {
		VenueCategory: "Science and Technology",
		Tags:          []string{"tech", "ai"},
		TitleKeywords: []string{"outage", "cyber", "ai", "launch"},
	},
	category.RealEstate: {
		Tags:          []string{"housing"},
		TitleKeywords: []string{"housing", "mortgage", "home price"},
	},
}

// PlanFor returns the discovery plan for a category.
func PlanFor(id category.ID) (DiscoveryPlan, bool) {
	plan, ok := discoveryPlans[id]
	return plan, ok
}
