package models

import "time"

// QueueStatus tracks an airdrop payout through manual review.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusApproved QueueStatus = "approved"
	QueueStatusSent     QueueStatus = "sent"
	QueueStatusRejected QueueStatus = "rejected"
	QueueStatusFailed   QueueStatus = "failed"
)

// AirdropQueueItem is one human-reviewed transfer request.
// pending → approved → sent | failed, or pending → rejected.
// sent, rejected and failed are terminal for the webhook path.
type AirdropQueueItem struct {
	ID                string      `gorm:"primaryKey;type:uuid" json:"id"`
	Status            QueueStatus `gorm:"index;not null;default:'pending'" json:"status"`
	ReferrerEmail     string      `gorm:"not null" json:"referrer_email"`
	ReferrerWallet    string      `gorm:"not null" json:"referrer_wallet"`
	Amount            int64       `gorm:"not null" json:"amount"`
	Reason            string      `json:"reason,omitempty"`
	TelegramMessageID int         `json:"telegram_message_id,omitempty"`
	ReviewedBy        string      `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time  `json:"reviewed_at,omitempty"`
	SentAt            *time.Time  `json:"sent_at,omitempty"`
	RejectionReason   string      `json:"rejection_reason,omitempty"`
	ErrorMessage      string      `json:"error_message,omitempty"`

	Timestamps
}

func (AirdropQueueItem) TableName() string { return "airdrop_queue" }
