package models

// Subscription tier constants.
const (
	TierFree    = "free"
	TierPro     = "pro"
	TierPremium = "premium"
)

// ValidTiers contains all valid tier values.
var ValidTiers = []string{TierFree, TierPro, TierPremium}

// IsValidTier checks if the given tier is valid.
func IsValidTier(tier string) bool {
	for _, t := range ValidTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// IsPaidTier reports whether the tier is a paid one.
func IsPaidTier(tier string) bool {
	return tier == TierPro || tier == TierPremium
}

// DefaultFreeScanLimit is the monthly scan allowance for the free tier.
const DefaultFreeScanLimit = 5

// ScanLimitForTier returns the monthly scan limit for a tier.
// nil means unlimited.
func ScanLimitForTier(tier string) *int {
	if IsPaidTier(tier) {
		return nil
	}
	limit := DefaultFreeScanLimit
	return &limit
}

// CanUseCoach reports whether the tier unlocks the career coach.
func CanUseCoach(tier string) bool {
	return IsPaidTier(tier)
}

// CanSaveHistory reports whether the tier unlocks durable scan history.
func CanSaveHistory(tier string) bool {
	return IsPaidTier(tier)
}
