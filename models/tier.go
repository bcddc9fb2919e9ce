package models

import (
	"math"
	"time"
)

// Tier is one capacity-bounded waitlist bucket conferring priority and a base
// token allocation.
type Tier struct {
	Number     int    `json:"number"`
	Name       string `json:"name"`
	MaxSpots   int64  `json:"max_spots"`
	BaseAmount int64  `json:"base_amount"`
}

// Tiers is the fixed tier table, highest priority first.
var Tiers = []Tier{
	{Number: 1, Name: "OG Founder", MaxSpots: 10, BaseAmount: 50000},
	{Number: 2, Name: "Early Bear", MaxSpots: 100, BaseAmount: 25000},
	{Number: 3, Name: "Beta Crew", MaxSpots: 1000, BaseAmount: 10000},
	{Number: 4, Name: "Community", MaxSpots: 100000, BaseAmount: 5000},
}

// TierByNumber returns the tier config, or false for an unknown tier.
func TierByNumber(n int) (Tier, bool) {
	for _, t := range Tiers {
		if t.Number == n {
			return t, true
		}
	}
	return Tier{}, false
}

// EarlyBirdMultiplier returns the bonus multiplier for a signup at t, decaying
// weekly from the launch date: 1.5 → 1.25 → 1.1 → 1.0. A zero launch date
// (multiplier epoch not configured) keeps the full early-bird bonus.
func EarlyBirdMultiplier(launch, t time.Time) float64 {
	if launch.IsZero() || t.Before(launch) {
		return 1.5
	}
	switch week := int(t.Sub(launch).Hours() / (24 * 7)); {
	case week < 1:
		return 1.5
	case week < 2:
		return 1.25
	case week < 3:
		return 1.1
	default:
		return 1.0
	}
}

// ProjectedAirdrop computes floor((base + referral + action) * multiplier).
func ProjectedAirdrop(base, referral, action int64, multiplier float64) int64 {
	return int64(math.Floor(float64(base+referral+action) * multiplier))
}
