// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReferralCountScheduler refreshes the denormalized referral_count
// column on a fixed cadence. The linking path never increments a stored
// counter; this job is the only writer of that column.
func (s *WaitlistService) StartReferralCountScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := s.RefreshReferralCounts(); err != nil {
				log.Printf("[Scheduler] Referral count refresh failed: %v", err)
			}
		}),
	)
}

// RefreshReferralCounts recomputes referral_count for every allocation from
// the live referred_by links in one statement.
func (s *WaitlistService) RefreshReferralCounts() error {
	return s.DB.Exec(`
		UPDATE airdrop_allocations SET referral_count = (
			SELECT COUNT(*) FROM waitlist w
			WHERE w.referred_by = airdrop_allocations.referral_code
			  AND w.deleted_at IS NULL
		)`).Error
}
