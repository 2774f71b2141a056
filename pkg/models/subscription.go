package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a user's billing state. Rows are created lazily on first
// write; absence of a row means free tier.
type Subscription struct {
	UserID               uuid.UUID  `json:"user_id"`
	Tier                 string     `json:"tier"`
	StripeCustomerID     string     `json:"-"`
	StripeSubscriptionID string     `json:"-"`
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	ScanLimit            *int       `json:"scan_limit"` // nil = unlimited
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// DefaultSubscription synthesizes the free-tier default for a user with no
// stored subscription row. It is not persisted until first write.
func DefaultSubscription(userID uuid.UUID) *Subscription {
	return &Subscription{
		UserID:    userID,
		Tier:      TierFree,
		ScanLimit: ScanLimitForTier(TierFree),
	}
}

// IsActive reports whether the subscription grants paid features right now.
func (s *Subscription) IsActive() bool {
	if !IsPaidTier(s.Tier) {
		return false
	}
	if s.Status != "" && s.Status != "active" && s.Status != "trialing" {
		return false
	}
	return true
}

// EffectiveTier returns the tier the user should be treated as, accounting
// for lapsed paid subscriptions.
func (s *Subscription) EffectiveTier() string {
	if IsPaidTier(s.Tier) && !s.IsActive() {
		return TierFree
	}
	return s.Tier
}
