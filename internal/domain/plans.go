package domain

// Plan represents an annual minisite subscription tier.
type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MaxMinisites int    `json:"maxMinisites"` // published minisites allowed
	MaxVersions  int    `json:"maxVersions"`  // retained content versions per minisite
	CustomDomain bool   `json:"customDomain"`
	PriceUSD     int    `json:"priceUsd"` // annual price in USD cents (9900 = $99)
	Popular      bool   `json:"popular"`  // show "Most Popular" badge
}

// AvailablePlans returns all available plans.
func AvailablePlans() []Plan {
	return []Plan{
		{
			ID:           "standard",
			Name:         "Standard",
			MaxMinisites: 1,
			MaxVersions:  5,
			CustomDomain: false,
			PriceUSD:     9900, // $99/yr
			Popular:      true,
		},
		{
			ID:           "multi",
			Name:         "Multi-Location",
			MaxMinisites: 5,
			MaxVersions:  20,
			CustomDomain: true,
			PriceUSD:     29900, // $299/yr
			Popular:      false,
		},
	}
}

// GetPlan returns the plan for a given ID, or the standard plan if not found.
func GetPlan(id string) Plan {
	for _, p := range AvailablePlans() {
		if p.ID == id {
			return p
		}
	}
	return AvailablePlans()[0]
}
