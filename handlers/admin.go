// handlers/admin.go
package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"bearpay-waitlist/models"
	"bearpay-waitlist/services"
	"bearpay-waitlist/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func SetupAdminRoutes(app *fiber.App, db *gorm.DB, settlementService *services.SettlementService) {
	app.Post("/api/admin/queue-airdrop", func(c *fiber.Ctx) error {
		var req struct {
			AdminKey string `json:"adminKey"`
			Email    string `json:"email"`
			Amount   int64  `json:"amount"`
			Reason   string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if !adminKeyValid(req.AdminKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid admin key"})
		}
		if req.Email == "" || req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and a positive amount are required"})
		}

		item, err := settlementService.Enqueue(c.Context(), req.Email, req.Amount, req.Reason)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "waitlist entry not found"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "queueId": item.ID, "status": item.Status})
	})

	app.Post("/api/admin/export", func(c *fiber.Ctx) error {
		var req struct {
			AdminKey string `json:"adminKey"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if !adminKeyValid(req.AdminKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid admin key"})
		}
		if !utils.R2Configured() {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "export storage not configured"})
		}

		var entries []models.WaitlistEntry
		if err := db.Order("signup_position ASC").Find(&entries).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read waitlist"})
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"position", "email", "tier", "referral_code", "referred_by", "platform", "verified", "wallet"})
		for _, e := range entries {
			referredBy := ""
			if e.ReferredBy != nil {
				referredBy = *e.ReferredBy
			}
			wallet := ""
			if e.WalletAddress != nil {
				wallet = *e.WalletAddress
			}
			_ = w.Write([]string{
				strconv.FormatInt(e.SignupPosition, 10),
				e.Email,
				e.TierName,
				e.ReferralCode,
				referredBy,
				e.Platform,
				strconv.FormatBool(e.Verified),
				wallet,
			})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build export"})
		}

		key := fmt.Sprintf("exports/%s.csv", slug.Make("waitlist export "+time.Now().UTC().Format("2006-01-02 15:04")))
		url, err := utils.UploadBytesToR2(c.Context(), key, "text/csv", buf.Bytes())
		if err != nil {
			log.Printf("❌ Waitlist export upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload export"})
		}

		log.Printf("✅ Waitlist export uploaded: %s (%d rows)", key, len(entries))
		return c.JSON(fiber.Map{"success": true, "url": url, "rows": len(entries)})
	})

	app.Post("/api/telegram-webhook", func(c *fiber.Ctx) error {
		expected := strings.TrimSpace(os.Getenv("TELEGRAM_WEBHOOK_SECRET"))
		if expected == "" || c.Query("secret") != expected {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid webhook secret"})
		}

		var update services.TelegramUpdate
		if err := c.BodyParser(&update); err != nil {
			// Bot protocol wants a 200 regardless, or Telegram re-delivers forever.
			log.Printf("⚠️  Unparsable telegram update: %v", err)
			return c.JSON(fiber.Map{"ok": true})
		}

		settlementService.HandleTelegramCallback(c.Context(), &update)
		return c.JSON(fiber.Map{"ok": true})
	})
}
