// services/wallet.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"bearpay-waitlist/models"
	"bearpay-waitlist/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// WalletSelector identifies the entry to link: by email, or by referral code
// when the airdrop claim page only knows the code.
type WalletSelector struct {
	Email        string
	ReferralCode string
}

// LinkWallet validates and persists a payout address. The entry must carry a
// thirdweb user id from a completed OTP flow — without it linking is refused,
// which is what stops address squatting on unverified emails. Re-linking
// overwrites, but the prior address is kept in metadata for audit.
func (s *WalletService) LinkWallet(sel WalletSelector, address string) error {
	address = strings.TrimSpace(address)
	if !utils.IsValidSolanaAddress(address) {
		return ErrInvalidAddress
	}

	var entry models.WaitlistEntry
	var err error
	switch {
	case sel.Email != "":
		err = s.DB.Where("email = ?", utils.NormalizeEmail(sel.Email)).First(&entry).Error
	case sel.ReferralCode != "":
		err = s.DB.Where("referral_code = ?", utils.NormalizeReferralCode(sel.ReferralCode)).First(&entry).Error
	default:
		return ErrNotFound
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("waitlist lookup failed: %w", err)
	}

	if entry.ThirdwebUserID == "" {
		return ErrRequiresAuth
	}

	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}
	if entry.WalletAddress != nil && *entry.WalletAddress != address {
		log.Printf("⚠️  Replacing wallet for %s: %s → %s", entry.Email, *entry.WalletAddress, address)
		entry.Metadata[models.MetaPreviousWallet] = *entry.WalletAddress
	}
	entry.WalletAddress = &address
	if err := s.DB.Save(&entry).Error; err != nil {
		return fmt.Errorf("failed to save wallet address: %w", err)
	}

	// The allocation copy is a read-model convenience — log and move on.
	if err := s.DB.Model(&models.AirdropAllocation{}).
		Where("email = ?", entry.Email).
		Update("wallet_address", address).Error; err != nil {
		log.Printf("❌ Failed to mirror wallet to allocation for %s: %v", entry.Email, err)
	}

	return nil
}
