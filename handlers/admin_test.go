package handlers

import (
	"strings"
	"testing"

	"bearpay-waitlist/models"
	"bearpay-waitlist/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAdminApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	app := fiber.New()
	SetupAdminRoutes(app, db, services.NewSettlementService(db, nil, nil))
	return app, db
}

func seedEntryWithWallet(t *testing.T, db *gorm.DB, email string) {
	t.Helper()
	wallet := strings.Repeat("A1", 22)
	require.NoError(t, db.Create(&models.WaitlistEntry{
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
	}).Error)
}

func TestQueueAirdropRejectsBadKey(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "sekret")
	app, _ := newAdminApp(t)

	status, body := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/queue-airdrop", fiber.Map{
		"adminKey": "wrong",
		"email":    "a@x.com",
		"amount":   1000,
	}))
	require.Equal(t, 401, status)
	require.Equal(t, "invalid admin key", body["error"])
}

func TestQueueAirdropLockedWhenKeyUnset(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "")
	app, _ := newAdminApp(t)

	status, _ := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/queue-airdrop", fiber.Map{
		"adminKey": "",
		"email":    "a@x.com",
		"amount":   1000,
	}))
	require.Equal(t, 401, status)
}

func TestQueueAirdropCreatesPendingItem(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "sekret")
	app, db := newAdminApp(t)
	seedEntryWithWallet(t, db, "a@x.com")

	status, body := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/queue-airdrop", fiber.Map{
		"adminKey": "sekret",
		"email":    "a@x.com",
		"amount":   50000,
		"reason":   "tier allocation",
	}))
	require.Equal(t, 201, status)
	require.Equal(t, true, body["success"])
	require.Equal(t, string(models.QueueStatusPending), body["status"])

	var item models.AirdropQueueItem
	require.NoError(t, db.Where("id = ?", body["queueId"]).First(&item).Error)
	require.Equal(t, int64(50000), item.Amount)
}

func TestQueueAirdropUnknownEmail(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "sekret")
	app, _ := newAdminApp(t)

	status, _ := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/queue-airdrop", fiber.Map{
		"adminKey": "sekret",
		"email":    "ghost@x.com",
		"amount":   1000,
	}))
	require.Equal(t, 404, status)
}

func TestExportRequiresStorage(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "sekret")
	app, _ := newAdminApp(t)

	status, body := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/export", fiber.Map{
		"adminKey": "sekret",
	}))
	require.Equal(t, 500, status)
	require.Equal(t, "export storage not configured", body["error"])
}

func TestTelegramWebhookSecret(t *testing.T) {
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "hook-secret")
	app, _ := newAdminApp(t)

	status, _ := doJSON(t, app, jsonRequest(t, "POST", "/api/telegram-webhook?secret=wrong", fiber.Map{}))
	require.Equal(t, 401, status)

	status, body := doJSON(t, app, jsonRequest(t, "POST", "/api/telegram-webhook?secret=hook-secret", fiber.Map{
		"update_id": 1,
	}))
	require.Equal(t, 200, status)
	require.Equal(t, true, body["ok"])
}

func TestTelegramWebhookLockedWhenSecretUnset(t *testing.T) {
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "")
	app, _ := newAdminApp(t)

	status, _ := doJSON(t, app, jsonRequest(t, "POST", "/api/telegram-webhook", fiber.Map{}))
	require.Equal(t, 401, status)
}

func TestBatchTestFlightRejectsBadKey(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "sekret")
	db := newTestDB(t)
	app := fiber.New()
	SetupTestFlightRoutes(app, services.NewTestFlightService(db, nil))

	status, _ := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/batch-testflight", fiber.Map{
		"adminKey": "wrong",
	}))
	require.Equal(t, 401, status)

	// dry run never needs the provider
	status, body := doJSON(t, app, jsonRequest(t, "POST", "/api/admin/batch-testflight", fiber.Map{
		"adminKey": "sekret",
		"dryRun":   true,
	}))
	require.Equal(t, 200, status)
	require.Equal(t, true, body["dryRun"])

	status, _ = doJSON(t, app, jsonRequest(t, "POST", "/api/admin/batch-testflight", fiber.Map{
		"adminKey": "sekret",
	}))
	require.Equal(t, 500, status)
}
