// services/waitlist.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"bearpay-waitlist/models"
	"bearpay-waitlist/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WaitlistService struct {
	DB         *gorm.DB
	BaseURL    string    // public site base for referral links
	LaunchDate time.Time // early-bird multiplier epoch; zero keeps the full bonus
}

func NewWaitlistService(db *gorm.DB) *WaitlistService {
	base := os.Getenv("WAITLIST_BASE_URL")
	if base == "" {
		base = "https://bearpay.app"
	}
	var launch time.Time
	if raw := os.Getenv("LAUNCH_DATE"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Printf("⚠️  Invalid LAUNCH_DATE %q: %v — early-bird multiplier stays at maximum", raw, err)
		} else {
			launch = parsed
		}
	}
	return &WaitlistService{DB: db, BaseURL: base, LaunchDate: launch}
}

type ClaimTierRequest struct {
	Email          string
	TierNumber     int
	TierName       string
	ThirdwebUserID string
	ReferredBy     string
	Platform       string
}

type ClaimTierResult struct {
	ReferralCode string `json:"referralCode"`
	ReferralLink string `json:"referralLink"`
	Position     int64  `json:"position"`
	SpotsLeft    int64  `json:"spotsLeft"`
	Existing     bool   `json:"-"`
	Platform     string `json:"-"`
}

// ClaimTier registers an email into a tier. Identity proof has already
// happened upstream — the thirdweb user id this service receives is trusted.
// Claiming an already-registered email returns the original code and position
// instead of creating a duplicate row.
//
// The capacity check and the insert run inside one serializable transaction
// (on Postgres), so two concurrent signups cannot both take the last slot.
// The email unique index remains the backstop for duplicate rows.
func (s *WaitlistService) ClaimTier(req ClaimTierRequest) (*ClaimTierResult, error) {
	email := utils.NormalizeEmail(req.Email)
	tier, ok := models.TierByNumber(req.TierNumber)
	if !ok {
		return nil, ErrUnknownTier
	}

	var existing models.WaitlistEntry
	err := s.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return s.existingResult(&existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("waitlist lookup failed: %w", err)
	}

	code, err := utils.GenerateReferralCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate referral code: %w", err)
	}

	var entry models.WaitlistEntry
	var spotsLeft int64
	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		var total int64
		if err := tx.Model(&models.WaitlistEntry{}).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count waitlist: %w", err)
		}
		var claimed int64
		if err := tx.Model(&models.WaitlistEntry{}).Where("tier_number = ?", tier.Number).Count(&claimed).Error; err != nil {
			return fmt.Errorf("failed to count tier claims: %w", err)
		}
		if tier.MaxSpots-claimed <= 0 {
			return ErrTierFull
		}

		// A bad referral code never blocks signup — drop it and move on.
		var referredBy *string
		if req.ReferredBy != "" {
			norm := utils.NormalizeReferralCode(req.ReferredBy)
			if norm == code {
				log.Printf("⚠️  Dropping self-referral code %s on signup for %s", norm, email)
			} else {
				var referrer models.WaitlistEntry
				refErr := tx.Where("referral_code = ?", norm).First(&referrer).Error
				switch {
				case refErr == nil:
					referredBy = &norm
				case errors.Is(refErr, gorm.ErrRecordNotFound):
					log.Printf("⚠️  Unknown referral code %s on signup for %s — ignoring", norm, email)
				default:
					return fmt.Errorf("referral code lookup failed: %w", refErr)
				}
			}
		}

		entry = models.WaitlistEntry{
			ID:             uuid.NewString(),
			Email:          email,
			TierNumber:     tier.Number,
			TierName:       tier.Name,
			SignupPosition: total + 1,
			ReferralCode:   code,
			ReferredBy:     referredBy,
			Verified:       true, // identity proven before this row is written
			Platform:       normalizePlatform(req.Platform),
			ThirdwebUserID: req.ThirdwebUserID,
			Metadata:       datatypes.JSONMap{},
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return gorm.ErrDuplicatedKey
			}
			return fmt.Errorf("failed to persist waitlist entry: %w", err)
		}
		spotsLeft = tier.MaxSpots - claimed - 1
		return nil
	}, s.txOptions())
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			// Lost a race on the email index — hand back the winner's code.
			if err := s.DB.Where("email = ?", email).First(&existing).Error; err == nil {
				return s.existingResult(&existing)
			}
			// The collision was on the referral code index. ~1M code space
			// against a small waitlist makes this rare; surface it as retryable.
			return nil, ErrCodeCollision
		}
		return nil, txErr
	}

	// Leaderboard bookkeeping is best-effort: a failure here must never roll
	// back or fail the signup itself.
	alloc := models.AirdropAllocation{
		ID:              uuid.NewString(),
		Email:           email,
		ReferralCode:    code,
		TierName:        tier.Name,
		TierNumber:      tier.Number,
		BaseAmount:      tier.BaseAmount,
		BonusMultiplier: models.EarlyBirdMultiplier(s.LaunchDate, time.Now()),
	}
	if err := s.DB.Create(&alloc).Error; err != nil {
		log.Printf("❌ Failed to create allocation row for %s: %v", email, err)
	}

	return &ClaimTierResult{
		ReferralCode: code,
		ReferralLink: s.ReferralLink(code),
		Position:     entry.SignupPosition,
		SpotsLeft:    spotsLeft,
		Platform:     entry.Platform,
	}, nil
}

func (s *WaitlistService) existingResult(entry *models.WaitlistEntry) (*ClaimTierResult, error) {
	tier, _ := models.TierByNumber(entry.TierNumber)
	var claimed int64
	if err := s.DB.Model(&models.WaitlistEntry{}).Where("tier_number = ?", entry.TierNumber).Count(&claimed).Error; err != nil {
		return nil, fmt.Errorf("failed to count tier claims: %w", err)
	}
	return &ClaimTierResult{
		ReferralCode: entry.ReferralCode,
		ReferralLink: s.ReferralLink(entry.ReferralCode),
		Position:     entry.SignupPosition,
		SpotsLeft:    tier.MaxSpots - claimed,
		Existing:     true,
		Platform:     entry.Platform,
	}, nil
}

// SQLite (tests) runs serializable by default and its driver rejects explicit
// isolation levels, so the stricter option is set on Postgres only.
func (s *WaitlistService) txOptions() *sql.TxOptions {
	if s.DB.Dialector.Name() == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return &sql.TxOptions{}
}

// ReferralLink builds the public signup link carrying a referral code.
func (s *WaitlistService) ReferralLink(code string) string {
	return fmt.Sprintf("%s/?ref=%s", s.BaseURL, code)
}

// Count returns the total number of waitlist entries.
func (s *WaitlistService) Count() (int64, error) {
	var count int64
	if err := s.DB.Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count waitlist: %w", err)
	}
	return count, nil
}

type TierAvailability struct {
	Name      string `json:"name"`
	MaxSpots  int64  `json:"maxSpots"`
	Claimed   int64  `json:"claimed"`
	Available int64  `json:"available"`
}

// TierAvailability reports claimed and remaining spots per tier.
func (s *WaitlistService) TierAvailability() (map[int]TierAvailability, error) {
	availability := make(map[int]TierAvailability, len(models.Tiers))
	for _, tier := range models.Tiers {
		var claimed int64
		if err := s.DB.Model(&models.WaitlistEntry{}).Where("tier_number = ?", tier.Number).Count(&claimed).Error; err != nil {
			return nil, fmt.Errorf("failed to count tier %d: %w", tier.Number, err)
		}
		available := tier.MaxSpots - claimed
		if available < 0 {
			available = 0
		}
		availability[tier.Number] = TierAvailability{
			Name:      tier.Name,
			MaxSpots:  tier.MaxSpots,
			Claimed:   claimed,
			Available: available,
		}
	}
	return availability, nil
}

type LeaderboardRow struct {
	Rank             int    `json:"rank"`
	ReferralCode     string `json:"referral_code"`
	TierName         string `json:"tier_name"`
	ReferralCount    int64  `json:"referral_count"`
	ProjectedAirdrop int64  `json:"projected_airdrop"`
	HasWallet        bool   `json:"has_wallet"`
}

// Leaderboard returns the top allocations by projected airdrop. Referral
// counts are computed live from referred_by rather than read from the
// refreshed column, so the public board never lags a link.
func (s *WaitlistService) Leaderboard(limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var allocations []models.AirdropAllocation
	if err := s.DB.
		Order("(base_amount + referral_amount + action_amount) * bonus_multiplier DESC").
		Limit(limit).
		Find(&allocations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch allocations: %w", err)
	}

	rows := make([]LeaderboardRow, 0, len(allocations))
	for i, alloc := range allocations {
		var referrals int64
		if err := s.DB.Model(&models.WaitlistEntry{}).Where("referred_by = ?", alloc.ReferralCode).Count(&referrals).Error; err != nil {
			return nil, fmt.Errorf("failed to count referrals for %s: %w", alloc.ReferralCode, err)
		}
		rows = append(rows, LeaderboardRow{
			Rank:             i + 1,
			ReferralCode:     alloc.ReferralCode,
			TierName:         alloc.TierName,
			ReferralCount:    referrals,
			ProjectedAirdrop: alloc.ProjectedAirdrop(),
			HasWallet:        alloc.WalletAddress != nil,
		})
	}
	return rows, nil
}

func normalizePlatform(platform string) string {
	switch platform {
	case models.PlatformIOS, models.PlatformAndroid, models.PlatformDesktop:
		return platform
	default:
		return models.PlatformUnknown
	}
}
