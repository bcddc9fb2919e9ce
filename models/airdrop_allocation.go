package models

// AirdropAllocation is the denormalized leaderboard/airdrop row, one per
// WaitlistEntry. Tier fields are copied at creation; ReferralAmount and
// ActionAmount accumulate later; ReferralCount is a read-model column
// refreshed by the scheduler, never incremented inline.
type AirdropAllocation struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	Email           string  `gorm:"uniqueIndex;not null" json:"email"`
	ReferralCode    string  `gorm:"index;not null" json:"referral_code"`
	TierName        string  `json:"tier_name"`
	TierNumber      int     `json:"tier_number"`
	BaseAmount      int64   `json:"base_amount"`
	ReferralAmount  int64   `gorm:"default:0" json:"referral_amount"`
	ActionAmount    int64   `gorm:"default:0" json:"action_amount"`
	BonusMultiplier float64 `gorm:"default:1" json:"bonus_multiplier"`
	ReferralCount   int64   `gorm:"default:0" json:"referral_count"`
	WalletAddress   *string `gorm:"size:64" json:"wallet_address,omitempty"`

	Timestamps
}

func (AirdropAllocation) TableName() string { return "airdrop_allocations" }

// ProjectedAirdrop applies the early-bird multiplier to the accumulated amounts.
func (a *AirdropAllocation) ProjectedAirdrop() int64 {
	return ProjectedAirdrop(a.BaseAmount, a.ReferralAmount, a.ActionAmount, a.BonusMultiplier)
}
