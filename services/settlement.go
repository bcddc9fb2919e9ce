// services/settlement.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bearpay-waitlist/models"
	"bearpay-waitlist/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxErrorLength bounds provider error text stored for display.
const maxErrorLength = 200

type SettlementService struct {
	DB       *gorm.DB
	Transfer TokenTransferrer
	Notifier ApprovalNotifier
}

func NewSettlementService(db *gorm.DB, transfer TokenTransferrer, notifier ApprovalNotifier) *SettlementService {
	return &SettlementService{DB: db, Transfer: transfer, Notifier: notifier}
}

// Enqueue creates a pending payout for an entry with a linked wallet and
// posts the approval request to the review chat. The notification is
// best-effort: a queued item without a message can still be reviewed later.
func (s *SettlementService) Enqueue(ctx context.Context, email string, amount int64, reason string) (*models.AirdropQueueItem, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	var entry models.WaitlistEntry
	if err := s.DB.Where("email = ?", utils.NormalizeEmail(email)).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("waitlist lookup failed: %w", err)
	}
	if entry.WalletAddress == nil {
		return nil, fmt.Errorf("no wallet linked for %s", entry.Email)
	}

	item := &models.AirdropQueueItem{
		ID:             uuid.NewString(),
		Status:         models.QueueStatusPending,
		ReferrerEmail:  entry.Email,
		ReferrerWallet: *entry.WalletAddress,
		Amount:         amount,
		Reason:         reason,
	}
	if err := s.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to queue airdrop: %w", err)
	}

	if s.Notifier != nil && s.Notifier.NotifierConfigured() {
		messageID, err := s.Notifier.SendApprovalRequest(ctx, item)
		if err != nil {
			log.Printf("❌ Failed to send approval request for %s: %v", item.ID, err)
		} else {
			item.TelegramMessageID = messageID
			if err := s.DB.Model(item).Update("telegram_message_id", messageID).Error; err != nil {
				log.Printf("❌ Failed to store message id for %s: %v", item.ID, err)
			}
		}
	} else {
		log.Printf("⚠️  Approval notifier not configured — item %s queued without a review message", item.ID)
	}

	return item, nil
}

// HandleAction applies one reviewer decision to a queue item and returns the
// short status line shown in the review thread.
//
// Approve marks the item approved *before* attempting the transfer: a crash
// mid-transfer leaves a non-pending item rather than one that silently
// retries — never double pays beats never fails to pay. Any action on a
// non-pending item answers "already: {status}" and changes nothing.
func (s *SettlementService) HandleAction(ctx context.Context, action, id, reviewer string) (string, error) {
	var item models.AirdropQueueItem
	if err := s.DB.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "queue item not found", nil
		}
		return "", fmt.Errorf("queue lookup failed: %w", err)
	}

	if item.Status != models.QueueStatusPending {
		return fmt.Sprintf("already: %s", item.Status), nil
	}

	now := time.Now()
	switch action {
	case "approve":
		item.Status = models.QueueStatusApproved
		item.ReviewedBy = reviewer
		item.ReviewedAt = &now
		if err := s.DB.Save(&item).Error; err != nil {
			return "", fmt.Errorf("failed to mark approved: %w", err)
		}

		if s.Transfer == nil || !s.Transfer.TransferConfigured() {
			return s.markFailed(&item, "transfer provider not configured")
		}
		if err := s.Transfer.TransferTokens(ctx, item.ReferrerWallet, item.Amount); err != nil {
			return s.markFailed(&item, err.Error())
		}

		sentAt := time.Now()
		item.Status = models.QueueStatusSent
		item.SentAt = &sentAt
		if err := s.DB.Save(&item).Error; err != nil {
			return "", fmt.Errorf("failed to mark sent: %w", err)
		}
		log.Printf("✅ Airdrop %s sent: %d BEAR → %s", item.ID, item.Amount, item.ReferrerWallet)
		return fmt.Sprintf("sent: %d BEAR → %s", item.Amount, item.ReferrerEmail), nil

	case "reject":
		item.Status = models.QueueStatusRejected
		item.ReviewedBy = reviewer
		item.ReviewedAt = &now
		item.RejectionReason = fmt.Sprintf("rejected by %s", reviewer)
		if err := s.DB.Save(&item).Error; err != nil {
			return "", fmt.Errorf("failed to mark rejected: %w", err)
		}
		return fmt.Sprintf("rejected: %s", item.ReferrerEmail), nil

	default:
		return fmt.Sprintf("unknown action %q", action), nil
	}
}

func (s *SettlementService) markFailed(item *models.AirdropQueueItem, errText string) (string, error) {
	item.Status = models.QueueStatusFailed
	item.ErrorMessage = truncate(errText, maxErrorLength)
	if err := s.DB.Save(item).Error; err != nil {
		return "", fmt.Errorf("failed to mark failed: %w", err)
	}
	log.Printf("❌ Airdrop %s failed: %s", item.ID, item.ErrorMessage)
	return fmt.Sprintf("failed: %s", item.ErrorMessage), nil
}

// HandleTelegramCallback parses a button press, applies the action, answers
// the callback and edits the original approval message with the final state.
func (s *SettlementService) HandleTelegramCallback(ctx context.Context, update *TelegramUpdate) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	action, id, ok := strings.Cut(cb.Data, ":")
	if !ok {
		log.Printf("⚠️  Malformed callback data %q", cb.Data)
		return
	}
	reviewer := cb.From.Username
	if reviewer == "" {
		reviewer = cb.From.FirstName
	}

	status, err := s.HandleAction(ctx, action, id, reviewer)
	if err != nil {
		log.Printf("❌ Settlement action %s on %s failed: %v", action, id, err)
		status = "internal error — check service logs"
	}

	if s.Notifier == nil || !s.Notifier.NotifierConfigured() {
		return
	}
	if err := s.Notifier.AnswerCallbackQuery(ctx, cb.ID, status); err != nil {
		log.Printf("❌ Failed to answer callback %s: %v", cb.ID, err)
	}
	if cb.Message != nil {
		text := fmt.Sprintf("🪙 Airdrop payout %s\n\nResult: %s\nReviewed by: %s", id, status, reviewer)
		if err := s.Notifier.EditMessageText(ctx, cb.Message.MessageID, text); err != nil {
			log.Printf("❌ Failed to edit approval message %d: %v", cb.Message.MessageID, err)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
