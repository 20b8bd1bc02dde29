package model

import "time"

// Session is an offline platform session for a shop: the access token the
// job processors use to call the admin API on the merchant's behalf.
type Session struct {
	ID          string    `json:"id"`
	ShopDomain  string    `json:"shop_domain"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// OfflineSessionID returns the canonical session id for a shop's offline session.
func OfflineSessionID(shopDomain string) string {
	return "offline_" + shopDomain
}
