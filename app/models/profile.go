// Package models defines subscription tiers and usage tracking fields.
package models

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

type Profile struct {
	UserID               string `json:"user_id"`
	Email                string `json:"email"`
	Tier                 Tier   `json:"tier"`
	GenerationsUsed      int    `json:"generations_used"`
	GenerationsLimit     int    `json:"generations_limit"`
	StripeCustomerID     string `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string `json:"stripe_subscription_id,omitempty"`
}

// Remaining reports how many generations the profile has left, floored at zero.
func (p Profile) Remaining() int {
	r := p.GenerationsLimit - p.GenerationsUsed
	if r < 0 {
		return 0
	}
	return r
}
