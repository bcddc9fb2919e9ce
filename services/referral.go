// services/referral.go
package services

import (
	"errors"
	"fmt"
	"log"

	"bearpay-waitlist/models"
	"bearpay-waitlist/utils"

	"gorm.io/gorm"
)

type ReferralService struct {
	DB *gorm.DB
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db}
}

type LinkReferralResult struct {
	Success      bool   `json:"success"`
	ReferrerCode string `json:"referrerCode,omitempty"`
	Message      string `json:"message"`
}

// LinkReferral retroactively attributes an existing signup to a referrer code.
// First writer wins: once referred_by is set it is never replaced. The three
// outcomes — already linked, invalid code, linked — carry distinct messages
// the caller renders differently.
func (s *ReferralService) LinkReferral(email, code string) (*LinkReferralResult, error) {
	email = utils.NormalizeEmail(email)
	code = utils.NormalizeReferralCode(code)

	var entry models.WaitlistEntry
	if err := s.DB.Where("email = ?", email).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("waitlist lookup failed: %w", err)
	}

	if entry.ReferredBy != nil {
		return &LinkReferralResult{Success: false, Message: "already linked to a referrer"}, nil
	}
	if entry.ReferralCode == code {
		// Self-referral reads the same as an unknown code on purpose.
		return &LinkReferralResult{Success: false, Message: "invalid referral code"}, nil
	}

	var referrer models.WaitlistEntry
	if err := s.DB.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LinkReferralResult{Success: false, Message: "invalid referral code"}, nil
		}
		return nil, fmt.Errorf("referral code lookup failed: %w", err)
	}

	// The IS NULL guard keeps first-writer-wins under concurrent links.
	res := s.DB.Model(&models.WaitlistEntry{}).
		Where("email = ? AND referred_by IS NULL", email).
		Update("referred_by", code)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to link referral: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &LinkReferralResult{Success: false, Message: "already linked to a referrer"}, nil
	}

	log.Printf("✅ Linked %s to referrer %s", email, code)
	return &LinkReferralResult{Success: true, ReferrerCode: code, Message: "linked successfully"}, nil
}

// ReferralCount computes how many entries were referred by the given code.
// Counted at read time — no stored counter to race on.
func (s *ReferralService) ReferralCount(code string) (int64, error) {
	code = utils.NormalizeReferralCode(code)
	var count int64
	if err := s.DB.Model(&models.WaitlistEntry{}).Where("referred_by = ?", code).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}
