// handlers/waitlist.go
package handlers

import (
	"errors"
	"strconv"

	"bearpay-waitlist/models"
	"bearpay-waitlist/services"
	"bearpay-waitlist/workers"

	"github.com/gofiber/fiber/v2"
)

func SetupWaitlistRoutes(app *fiber.App, waitlistService *services.WaitlistService, inviteWorker *workers.TestFlightInviteWorker) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/api/signup", func(c *fiber.Ctx) error {
		var req struct {
			Email          string `json:"email"`
			TierNumber     int    `json:"tierNumber"`
			TierName       string `json:"tierName"`
			ThirdwebUserID string `json:"thirdwebUserId"`
			ReferredBy     string `json:"referredBy"`
			Platform       string `json:"platform"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.ThirdwebUserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "identity verification required before signup"})
		}
		if req.Email == "" || req.TierNumber == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and tierNumber are required"})
		}

		result, err := waitlistService.ClaimTier(services.ClaimTierRequest{
			Email:          req.Email,
			TierNumber:     req.TierNumber,
			TierName:       req.TierName,
			ThirdwebUserID: req.ThirdwebUserID,
			ReferredBy:     req.ReferredBy,
			Platform:       req.Platform,
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownTier):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown tier"})
			case errors.Is(err, services.ErrTierFull):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tier is full — please choose another tier"})
			case errors.Is(err, services.ErrDuplicateEmail):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "already registered"})
			case errors.Is(err, services.ErrCodeCollision):
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "please retry signup"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "signup failed", "cause": err.Error()})
			}
		}

		// Invites run off the signup path; the response never waits on Apple.
		if !result.Existing && result.Platform == models.PlatformIOS && inviteWorker != nil {
			inviteWorker.Enqueue(req.Email)
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"referralCode": result.ReferralCode,
			"referralLink": result.ReferralLink,
			"position":     result.Position,
			"spotsLeft":    result.SpotsLeft,
		})
	})

	app.Post("/api/waitlist", func(c *fiber.Ctx) error {
		var req struct {
			Action string `json:"action"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		switch req.Action {
		case "count":
			count, err := waitlistService.Count()
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count waitlist"})
			}
			return c.JSON(fiber.Map{"count": count})
		case "tier-availability":
			availability, err := waitlistService.TierAvailability()
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load tier availability"})
			}
			return c.JSON(fiber.Map{"availability": availability})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid action"})
		}
	})

	app.Get("/api/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "25"))
		rows, err := waitlistService.Leaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load leaderboard"})
		}
		return c.JSON(fiber.Map{"leaderboard": rows})
	})
}
