// handlers/account.go
package handlers

import (
	"errors"
	"log"

	"bearpay-waitlist/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAccountRoutes(app *fiber.App, walletService *services.WalletService, referralService *services.ReferralService, thirdweb *services.ThirdwebClient) {
	// Server-side OTP proxy: the browser never sees the thirdweb secret key.
	app.Post("/api/auth/initiate", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil || req.Email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required"})
		}

		if err := thirdweb.InitiateEmailAuth(c.Context(), req.Email); err != nil {
			if errors.Is(err, services.ErrNotConfigured) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "auth integration not configured"})
			}
			log.Printf("❌ Auth initiate failed for %s: %v", req.Email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start verification"})
		}
		return c.JSON(fiber.Map{"success": true})
	})

	app.Post("/api/auth/complete", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and code are required"})
		}

		result, err := thirdweb.CompleteEmailAuth(c.Context(), req.Email, req.Code)
		if err != nil {
			if errors.Is(err, services.ErrNotConfigured) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "auth integration not configured"})
			}
			log.Printf("❌ Auth complete failed for %s: %v", req.Email, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "verification failed"})
		}
		return c.JSON(fiber.Map{
			"success":       true,
			"userId":        result.UserID,
			"token":         result.Token,
			"walletAddress": result.WalletAddress,
			"isNewUser":     result.IsNewUser,
		})
	})

	app.Post("/api/link-wallet", func(c *fiber.Ctx) error {
		var req struct {
			Email         string `json:"email"`
			ReferralCode  string `json:"referralCode"`
			WalletAddress string `json:"walletAddress"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.WalletAddress == "" || (req.Email == "" && req.ReferralCode == "") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "walletAddress and email or referralCode are required"})
		}

		err := walletService.LinkWallet(services.WalletSelector{
			Email:        req.Email,
			ReferralCode: req.ReferralCode,
		}, req.WalletAddress)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidAddress):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid wallet address"})
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "waitlist entry not found"})
			case errors.Is(err, services.ErrRequiresAuth):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":        "complete identity verification before linking a wallet",
					"requiresAuth": true,
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to link wallet"})
			}
		}
		return c.JSON(fiber.Map{"success": true, "message": "wallet linked"})
	})

	app.Post("/api/link-referral", func(c *fiber.Ctx) error {
		var req struct {
			Email        string `json:"email"`
			ReferralCode string `json:"referralCode"`
		}
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.ReferralCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and referralCode are required"})
		}

		result, err := referralService.LinkReferral(req.Email, req.ReferralCode)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "waitlist entry not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to link referral"})
		}
		return c.JSON(result)
	})
}
