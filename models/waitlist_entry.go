package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Platform values captured at signup. Only iOS entries are eligible for the
// TestFlight beta program.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformDesktop = "desktop"
	PlatformUnknown = "unknown"
)

// Metadata keys written by the TestFlight invite paths.
const (
	MetaTestFlightInvited        = "testflight_invited"
	MetaTestFlightInvitedAt      = "testflight_invited_at"
	MetaTestFlightError          = "testflight_error"
	MetaTestFlightAlreadyInvited = "testflight_already_invited"
	MetaTestFlightBatchInvited   = "testflight_batch_invited"
	MetaTestFlightRetry          = "testflight_retry"
	MetaPreviousWallet           = "previous_wallet"
)

// WaitlistEntry is the primary signup row. Exactly one per unique email.
// Email is normalized (lowercase, trimmed) before every lookup and write.
type WaitlistEntry struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	Email          string  `gorm:"uniqueIndex;not null" json:"email"`
	TierNumber     int     `gorm:"index;not null" json:"tier_number"`
	TierName       string  `gorm:"not null" json:"tier_name"`
	SignupPosition int64   `gorm:"uniqueIndex;not null" json:"signup_position"`
	ReferralCode   string  `gorm:"uniqueIndex;size:8;not null" json:"referral_code"`
	ReferredBy     *string `gorm:"index" json:"referred_by,omitempty"` // another entry's referral code, set at most once
	Verified       bool    `gorm:"default:false" json:"verified"`
	Platform       string  `gorm:"size:16;default:'unknown'" json:"platform"`
	WalletAddress  *string `gorm:"size:64" json:"wallet_address,omitempty"`
	ThirdwebUserID string  `gorm:"index" json:"thirdweb_user_id,omitempty"` // prior-auth marker from the OTP provider

	// Metadata records beta-invite attempt history so retries and batch runs
	// can tell "never attempted" from "attempted and failed".
	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	Timestamps
}

func (WaitlistEntry) TableName() string { return "waitlist" }

// MetaBool reads a boolean metadata flag, tolerating a missing or non-bool value.
func (e *WaitlistEntry) MetaBool(key string) bool {
	if e.Metadata == nil {
		return false
	}
	v, ok := e.Metadata[key].(bool)
	return ok && v
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
