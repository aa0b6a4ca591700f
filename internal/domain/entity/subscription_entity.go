package entity

import "time"

// Subscription tiers
const (
	TierFree    = "free"
	TierPremium = "premium"
	TierElite   = "elite"
)

var dailyInterestLimits = map[string]int{
	TierFree:    5,
	TierPremium: 25,
	TierElite:   100,
}

type Subscription struct {
	ID        string
	UserID    string
	Tier      string
	Status    string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the subscription grants its tier at t.
func (s *Subscription) Active(t time.Time) bool {
	if s == nil || s.Status != "active" {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(t)
}

// DailyInterestLimit returns the number of interests a member on tier may
// send per rolling 24h. Unknown tiers get the free allowance.
func DailyInterestLimit(tier string) int {
	if n, ok := dailyInterestLimits[tier]; ok {
		return n
	}
	return dailyInterestLimits[TierFree]
}
