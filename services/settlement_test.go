package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"bearpay-waitlist/models"

	"github.com/stretchr/testify/require"
)

type fakeTransferrer struct {
	configured    bool
	transferCalls int
	lastWallet    string
	lastAmount    int64
	err           error
}

func (f *fakeTransferrer) TransferConfigured() bool { return f.configured }

func (f *fakeTransferrer) TransferTokens(ctx context.Context, wallet string, amount int64) error {
	f.transferCalls++
	f.lastWallet = wallet
	f.lastAmount = amount
	return f.err
}

type fakeNotifier struct {
	configured   bool
	sendCalls    int
	answerCalls  int
	editCalls    int
	lastAnswer   string
	lastEditText string
	sendErr      error
}

func (f *fakeNotifier) NotifierConfigured() bool { return f.configured }

func (f *fakeNotifier) SendApprovalRequest(ctx context.Context, item *models.AirdropQueueItem) (int, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	return 4242, nil
}

func (f *fakeNotifier) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	f.answerCalls++
	f.lastAnswer = text
	return nil
}

func (f *fakeNotifier) EditMessageText(ctx context.Context, messageID int, text string) error {
	f.editCalls++
	f.lastEditText = text
	return nil
}

func newTestSettlementService(t *testing.T) (*SettlementService, *fakeTransferrer, *fakeNotifier) {
	t.Helper()
	transfer := &fakeTransferrer{configured: true}
	notifier := &fakeNotifier{configured: true}
	return NewSettlementService(newTestDB(t), transfer, notifier), transfer, notifier
}

func seedWalletEntry(t *testing.T, svc *SettlementService, email, wallet string) {
	t.Helper()
	entry := &models.WaitlistEntry{
		ID:             "wl-" + email,
		Email:          email,
		TierNumber:     1,
		TierName:       "OG Founder",
		SignupPosition: 1,
		ReferralCode:   "BEARTEST",
		Verified:       true,
		Platform:       models.PlatformIOS,
		ThirdwebUserID: "u-" + email,
		WalletAddress:  &wallet,
	}
	require.NoError(t, svc.DB.Create(entry).Error)
}

func TestEnqueueRequiresLinkedWallet(t *testing.T) {
	svc, _, notifier := newTestSettlementService(t)
	entry := &models.WaitlistEntry{
		ID:             "wl-nowallet",
		Email:          "nowallet@x.com",
		TierNumber:     1,
		TierName:       "OG Founder",
		SignupPosition: 1,
		ReferralCode:   "BEARNOWL",
		ThirdwebUserID: "u-nowallet",
	}
	require.NoError(t, svc.DB.Create(entry).Error)

	_, err := svc.Enqueue(context.Background(), "nowallet@x.com", 1000, "referral bonus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no wallet linked")
	require.Zero(t, notifier.sendCalls)

	_, err = svc.Enqueue(context.Background(), "ghost@x.com", 1000, "referral bonus")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnqueueStoresMessageID(t *testing.T) {
	svc, _, notifier := newTestSettlementService(t)
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))

	item, err := svc.Enqueue(context.Background(), "a@x.com", 50000, "tier allocation")
	require.NoError(t, err)
	require.Equal(t, models.QueueStatusPending, item.Status)
	require.Equal(t, 4242, item.TelegramMessageID)
	require.Equal(t, 1, notifier.sendCalls)

	var stored models.AirdropQueueItem
	require.NoError(t, svc.DB.Where("id = ?", item.ID).First(&stored).Error)
	require.Equal(t, 4242, stored.TelegramMessageID)
}

func TestEnqueueSurvivesNotifierFailure(t *testing.T) {
	svc, _, notifier := newTestSettlementService(t)
	notifier.sendErr = fmt.Errorf("telegram: 502")
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))

	item, err := svc.Enqueue(context.Background(), "a@x.com", 1000, "bonus")
	require.NoError(t, err)
	require.Equal(t, models.QueueStatusPending, item.Status)
	require.Zero(t, item.TelegramMessageID)
}

func TestApproveTransfersExactlyOnce(t *testing.T) {
	svc, transfer, _ := newTestSettlementService(t)
	wallet := strings.Repeat("A1", 22)
	seedWalletEntry(t, svc, "a@x.com", wallet)
	item, err := svc.Enqueue(context.Background(), "a@x.com", 50000, "tier allocation")
	require.NoError(t, err)

	status, err := svc.HandleAction(context.Background(), "approve", item.ID, "ops")
	require.NoError(t, err)
	require.Contains(t, status, "sent: 50000 BEAR")
	require.Equal(t, 1, transfer.transferCalls)
	require.Equal(t, wallet, transfer.lastWallet)
	require.Equal(t, int64(50000), transfer.lastAmount)

	var stored models.AirdropQueueItem
	require.NoError(t, svc.DB.Where("id = ?", item.ID).First(&stored).Error)
	require.Equal(t, models.QueueStatusSent, stored.Status)
	require.Equal(t, "ops", stored.ReviewedBy)
	require.NotNil(t, stored.SentAt)

	// a second press on the same button must not pay twice
	status, err = svc.HandleAction(context.Background(), "approve", item.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, "already: sent", status)
	require.Equal(t, 1, transfer.transferCalls)
}

func TestRejectNeverTransfers(t *testing.T) {
	svc, transfer, _ := newTestSettlementService(t)
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))
	item, err := svc.Enqueue(context.Background(), "a@x.com", 1000, "bonus")
	require.NoError(t, err)

	status, err := svc.HandleAction(context.Background(), "reject", item.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, "rejected: a@x.com", status)
	require.Zero(t, transfer.transferCalls)

	var stored models.AirdropQueueItem
	require.NoError(t, svc.DB.Where("id = ?", item.ID).First(&stored).Error)
	require.Equal(t, models.QueueStatusRejected, stored.Status)
	require.Equal(t, "rejected by ops", stored.RejectionReason)

	status, err = svc.HandleAction(context.Background(), "approve", item.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, "already: rejected", status)
	require.Zero(t, transfer.transferCalls)
}

func TestTransferFailureMarksFailedTruncated(t *testing.T) {
	svc, transfer, _ := newTestSettlementService(t)
	transfer.err = fmt.Errorf("thirdweb: %s", strings.Repeat("x", 400))
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))
	item, err := svc.Enqueue(context.Background(), "a@x.com", 1000, "bonus")
	require.NoError(t, err)

	status, err := svc.HandleAction(context.Background(), "approve", item.ID, "ops")
	require.NoError(t, err)
	require.Contains(t, status, "failed:")

	var stored models.AirdropQueueItem
	require.NoError(t, svc.DB.Where("id = ?", item.ID).First(&stored).Error)
	require.Equal(t, models.QueueStatusFailed, stored.Status)
	require.Len(t, stored.ErrorMessage, 200)

	// failed is terminal: re-approving never retries the transfer
	status, err = svc.HandleAction(context.Background(), "approve", item.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, "already: failed", status)
	require.Equal(t, 1, transfer.transferCalls)
}

func TestTransferNotConfiguredMarksFailed(t *testing.T) {
	svc, transfer, _ := newTestSettlementService(t)
	transfer.configured = false
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))
	item, err := svc.Enqueue(context.Background(), "a@x.com", 1000, "bonus")
	require.NoError(t, err)

	status, err := svc.HandleAction(context.Background(), "approve", item.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, "failed: transfer provider not configured", status)
	require.Zero(t, transfer.transferCalls)
}

func TestHandleActionUnknownInputs(t *testing.T) {
	svc, _, _ := newTestSettlementService(t)
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))
	item, err := svc.Enqueue(context.Background(), "a@x.com", 1000, "bonus")
	require.NoError(t, err)

	status, err := svc.HandleAction(context.Background(), "approve", "no-such-id", "ops")
	require.NoError(t, err)
	require.Equal(t, "queue item not found", status)

	status, err = svc.HandleAction(context.Background(), "snooze", item.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, `unknown action "snooze"`, status)

	var stored models.AirdropQueueItem
	require.NoError(t, svc.DB.Where("id = ?", item.ID).First(&stored).Error)
	require.Equal(t, models.QueueStatusPending, stored.Status)
}

func TestHandleTelegramCallbackApproves(t *testing.T) {
	svc, transfer, notifier := newTestSettlementService(t)
	seedWalletEntry(t, svc, "a@x.com", strings.Repeat("A1", 22))
	item, err := svc.Enqueue(context.Background(), "a@x.com", 1000, "bonus")
	require.NoError(t, err)

	update := &TelegramUpdate{
		CallbackQuery: &TelegramCallbackQuery{
			ID:   "cb-1",
			Data: "approve:" + item.ID,
		},
	}
	update.CallbackQuery.From.Username = "ops"
	update.CallbackQuery.Message = &TelegramCallbackMessage{MessageID: 4242}

	svc.HandleTelegramCallback(context.Background(), update)

	require.Equal(t, 1, transfer.transferCalls)
	require.Equal(t, 1, notifier.answerCalls)
	require.Equal(t, 1, notifier.editCalls)
	require.Contains(t, notifier.lastEditText, "Reviewed by: ops")

	var stored models.AirdropQueueItem
	require.NoError(t, svc.DB.Where("id = ?", item.ID).First(&stored).Error)
	require.Equal(t, models.QueueStatusSent, stored.Status)
}

func TestHandleTelegramCallbackMalformed(t *testing.T) {
	svc, transfer, notifier := newTestSettlementService(t)

	svc.HandleTelegramCallback(context.Background(), &TelegramUpdate{})
	svc.HandleTelegramCallback(context.Background(), &TelegramUpdate{
		CallbackQuery: &TelegramCallbackQuery{ID: "cb-2", Data: "no-separator"},
	})

	require.Zero(t, transfer.transferCalls)
	require.Zero(t, notifier.answerCalls)
}
