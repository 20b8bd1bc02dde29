// Package plans holds the subscription plan table. Plan limits are enforced
// at job admission; monthly credits are granted on subscription confirmation.
package plans

// DefaultPlan is assigned to shops that never subscribed.
const DefaultPlan = "FREE"

// Plan describes one subscription tier.
type Plan struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	PriceUSD          float64 `json:"price_usd"`
	CreditsPerMonth   int64   `json:"credits_per_month"`
	MaxProductsPerJob int     `json:"max_products_per_job"`
}

// Order lists plan ids from lowest to highest tier.
var Order = []string{"FREE", "STARTER", "GROWTH", "PRO"}

var table = map[string]Plan{
	"FREE": {
		ID:                "FREE",
		Title:             "FREE",
		PriceUSD:          0,
		CreditsPerMonth:   5,
		MaxProductsPerJob: 5,
	},
	"STARTER": {
		ID:                "STARTER",
		Title:             "STARTER",
		PriceUSD:          12,
		CreditsPerMonth:   2500,
		MaxProductsPerJob: 200,
	},
	"GROWTH": {
		ID:                "GROWTH",
		Title:             "GROWTH",
		PriceUSD:          45,
		CreditsPerMonth:   13000,
		MaxProductsPerJob: 750,
	},
	"PRO": {
		ID:                "PRO",
		Title:             "PRO",
		PriceUSD:          190,
		CreditsPerMonth:   115000,
		MaxProductsPerJob: 3000,
	},
}

// Get returns the plan for id, falling back to the default plan when the id
// is unknown or empty.
func Get(id string) Plan {
	if plan, ok := table[id]; ok {
		return plan
	}
	return table[DefaultPlan]
}

// Known reports whether id names a real plan.
func Known(id string) bool {
	_, ok := table[id]
	return ok
}
