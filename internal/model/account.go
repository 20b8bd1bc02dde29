package model

import "time"

// Account is a shop's credit account. One row per shop domain.
type Account struct {
	ID             int64     `json:"id"`
	ShopDomain     string    `json:"shop_domain"`
	CreditsBalance int64     `json:"credits_balance"`
	CurrentPlan    string    `json:"current_plan"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
