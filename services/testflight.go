// services/testflight.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bearpay-waitlist/models"
	"bearpay-waitlist/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// batchInviteDelay paces batch invites so bursts never trip the provider's
// rate limit. The gap between successive external calls is a correctness
// requirement, not a tuning knob.
const batchInviteDelay = 200 * time.Millisecond

type TestFlightService struct {
	DB     *gorm.DB
	Client BetaClient

	// InviteDelay overrides the batch pacing; tests shrink it.
	InviteDelay time.Duration
}

func NewTestFlightService(db *gorm.DB, client BetaClient) *TestFlightService {
	return &TestFlightService{DB: db, Client: client, InviteDelay: batchInviteDelay}
}

type InviteOptions struct {
	DryRun bool
	Batch  bool // mark testflight_batch_invited instead of a first-attempt record
	Retry  bool // mark testflight_retry to distinguish from first attempts
}

type InviteResult struct {
	Email          string `json:"email"`
	Success        bool   `json:"success"`
	TesterID       string `json:"testerId,omitempty"`
	AlreadyInvited bool   `json:"alreadyInvited,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	DryRun         bool   `json:"dryRun,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Invite runs the eligibility gate and, when it passes, creates the tester.
// Gates, in order and short-circuiting: provider configured, entry exists,
// entry verified, platform is iOS. Only iOS users are ever invited — the beta
// channel is a single-platform program.
func (s *TestFlightService) Invite(ctx context.Context, email string, opts InviteOptions) (*InviteResult, error) {
	email = utils.NormalizeEmail(email)
	result := &InviteResult{Email: email, DryRun: opts.DryRun}

	if s.Client == nil || !s.Client.Configured() {
		result.Skipped = true
		result.Error = "not configured"
		return result, nil
	}

	var entry models.WaitlistEntry
	if err := s.DB.Where("email = ?", email).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("waitlist lookup failed: %w", err)
	}
	if !entry.Verified {
		return nil, ErrNotVerified
	}
	if entry.Platform != models.PlatformIOS {
		result.Skipped = true
		result.Error = fmt.Sprintf("platform %q is not eligible for TestFlight", entry.Platform)
		return result, nil
	}

	if opts.DryRun {
		result.Success = true
		return result, nil
	}

	groups, err := s.Client.ListBetaGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list beta groups: %w", err)
	}
	group, ok := pickBetaGroup(groups)
	if !ok {
		return nil, fmt.Errorf("app has no beta groups")
	}

	testerID, alreadyInvited, err := s.Client.CreateTester(ctx, email, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create tester: %w", err)
	}

	result.Success = true
	result.TesterID = testerID
	result.AlreadyInvited = alreadyInvited
	return result, nil
}

// pickBetaGroup prefers the first external group; with none external the
// first returned group wins. Group choice decides who can see the build, so
// this ordering is fixed.
func pickBetaGroup(groups []BetaGroup) (BetaGroup, bool) {
	for _, g := range groups {
		if !g.IsInternal {
			return g, true
		}
	}
	if len(groups) > 0 {
		return groups[0], true
	}
	return BetaGroup{}, false
}

// InviteAndRecord runs Invite and writes the outcome — success, conflict or
// failure — into the entry's metadata. Recording every attempt is what lets
// retry and batch runs tell "never attempted" from "attempted and failed".
func (s *TestFlightService) InviteAndRecord(ctx context.Context, email string, opts InviteOptions) (*InviteResult, error) {
	result, err := s.Invite(ctx, email, opts)
	if opts.DryRun {
		return result, err
	}
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.recordOutcome(email, &InviteResult{Email: email, Error: err.Error()}, opts)
		}
		return result, err
	}
	if !result.Skipped {
		s.recordOutcome(email, result, opts)
	}
	return result, nil
}

func (s *TestFlightService) recordOutcome(email string, result *InviteResult, opts InviteOptions) {
	var entry models.WaitlistEntry
	if err := s.DB.Where("email = ?", utils.NormalizeEmail(email)).First(&entry).Error; err != nil {
		log.Printf("❌ Failed to load entry for invite metadata %s: %v", email, err)
		return
	}
	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}
	entry.Metadata[models.MetaTestFlightInvited] = result.Success
	entry.Metadata[models.MetaTestFlightInvitedAt] = time.Now().UTC().Format(time.RFC3339)
	if result.Error != "" {
		entry.Metadata[models.MetaTestFlightError] = result.Error
	} else {
		delete(entry.Metadata, models.MetaTestFlightError)
	}
	if result.AlreadyInvited {
		entry.Metadata[models.MetaTestFlightAlreadyInvited] = true
	}
	if opts.Batch {
		entry.Metadata[models.MetaTestFlightBatchInvited] = true
	}
	if opts.Retry {
		entry.Metadata[models.MetaTestFlightRetry] = true
	}

	// Metadata is bookkeeping — a failed write is logged, never escalated.
	if err := s.DB.Save(&entry).Error; err != nil {
		log.Printf("❌ Failed to record invite metadata for %s: %v", email, err)
	}
}

type BatchSummary struct {
	Total          int `json:"total"`
	NewInvites     int `json:"newInvites"`
	AlreadyInvited int `json:"alreadyInvited"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
}

type BatchReport struct {
	Summary BatchSummary   `json:"summary"`
	Results []InviteResult `json:"results"`
	DryRun  bool           `json:"dryRun,omitempty"`
}

// RunBatch backfills invites for verified entries in ascending signup order
// (earliest signups first), skipping entries a previous batch already
// covered. limit caps how many candidates are processed; dryRun returns the
// candidate list without touching the provider or the datastore.
func (s *TestFlightService) RunBatch(ctx context.Context, dryRun bool, limit int) (*BatchReport, error) {
	var entries []models.WaitlistEntry
	if err := s.DB.
		Where("verified = ?", true).
		Order("signup_position ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to scan waitlist: %w", err)
	}

	report := &BatchReport{DryRun: dryRun, Results: []InviteResult{}}
	for _, entry := range entries {
		if limit > 0 && report.Summary.Total >= limit {
			break
		}
		if entry.MetaBool(models.MetaTestFlightBatchInvited) {
			continue
		}
		report.Summary.Total++

		result := s.processCandidate(ctx, entry.Email, InviteOptions{DryRun: dryRun, Batch: true})
		report.Results = append(report.Results, *result)
		s.tally(&report.Summary, result)

		if !dryRun && !result.Skipped {
			time.Sleep(s.delay())
		}
	}
	return report, nil
}

// RunRetry re-invites iOS entries whose metadata does not show a successful
// invite yet. target narrows the sweep to one email.
func (s *TestFlightService) RunRetry(ctx context.Context, dryRun bool, target string) (*BatchReport, error) {
	q := s.DB.
		Where("verified = ? AND platform = ?", true, models.PlatformIOS).
		Order("signup_position ASC")
	if target != "" {
		q = q.Where("email = ?", utils.NormalizeEmail(target))
	}
	var entries []models.WaitlistEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to scan waitlist: %w", err)
	}

	report := &BatchReport{DryRun: dryRun, Results: []InviteResult{}}
	for _, entry := range entries {
		if entry.MetaBool(models.MetaTestFlightInvited) {
			continue
		}
		report.Summary.Total++

		result := s.processCandidate(ctx, entry.Email, InviteOptions{DryRun: dryRun, Retry: true})
		report.Results = append(report.Results, *result)
		s.tally(&report.Summary, result)
	}
	return report, nil
}

func (s *TestFlightService) processCandidate(ctx context.Context, email string, opts InviteOptions) *InviteResult {
	result, err := s.InviteAndRecord(ctx, email, opts)
	if err != nil {
		return &InviteResult{Email: email, DryRun: opts.DryRun, Error: err.Error()}
	}
	return result
}

func (s *TestFlightService) tally(summary *BatchSummary, result *InviteResult) {
	switch {
	case result.Skipped:
		summary.Skipped++
	case result.AlreadyInvited:
		summary.AlreadyInvited++
	case result.Success:
		summary.NewInvites++
	default:
		summary.Failed++
	}
}

func (s *TestFlightService) delay() time.Duration {
	if s.InviteDelay > 0 {
		return s.InviteDelay
	}
	return batchInviteDelay
}
