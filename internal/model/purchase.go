package model

import "time"

// PurchaseStatus is the billing state of a credit purchase.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseDeclined  PurchaseStatus = "declined"
	PurchaseError     PurchaseStatus = "error"
)

// PurchaseType distinguishes one-time credit packs from subscription grants.
type PurchaseType string

const (
	PurchaseOneTime      PurchaseType = "one_time"
	PurchaseSubscription PurchaseType = "subscription"
)

// CreditPurchase records a billing charge. The external charge id is the
// idempotency key: finalizing the same charge twice grants credits once.
type CreditPurchase struct {
	ChargeID     string         `json:"charge_id"`
	ShopDomain   string         `json:"shop_domain"`
	CreditsAdded int64          `json:"credits_added"`
	PriceUSD     float64        `json:"price_usd,omitempty"`
	Type         PurchaseType   `json:"type"`
	Status       PurchaseStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
