// handlers/testflight.go
package handlers

import (
	"errors"
	"os"
	"strings"

	"bearpay-waitlist/services"

	"github.com/gofiber/fiber/v2"
)

// adminKeyValid compares the trimmed body key against ADMIN_API_KEY. An empty
// configured key locks every admin endpoint.
func adminKeyValid(provided string) bool {
	expected := strings.TrimSpace(os.Getenv("ADMIN_API_KEY"))
	return expected != "" && strings.TrimSpace(provided) == expected
}

func SetupTestFlightRoutes(app *fiber.App, testflightService *services.TestFlightService) {
	app.Post("/api/testflight-invite", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil || req.Email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required"})
		}

		result, err := testflightService.InviteAndRecord(c.Context(), req.Email, services.InviteOptions{})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "waitlist entry not found"})
			case errors.Is(err, services.ErrNotVerified):
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "entry is not verified"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invite failed", "cause": err.Error()})
			}
		}
		if result.Skipped {
			return c.JSON(fiber.Map{"success": false, "skipped": true, "error": result.Error})
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"testerId":       result.TesterID,
			"alreadyInvited": result.AlreadyInvited,
		})
	})

	app.Post("/api/admin/batch-testflight", func(c *fiber.Ctx) error {
		var req struct {
			AdminKey string `json:"adminKey"`
			DryRun   bool   `json:"dryRun"`
			Limit    int    `json:"limit"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if !adminKeyValid(req.AdminKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid admin key"})
		}
		if !req.DryRun && (testflightService.Client == nil || !testflightService.Client.Configured()) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "TestFlight integration not configured"})
		}

		report, err := testflightService.RunBatch(c.Context(), req.DryRun, req.Limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "batch failed", "cause": err.Error()})
		}
		return c.JSON(report)
	})

	app.Post("/api/admin/retry-testflight", func(c *fiber.Ctx) error {
		var req struct {
			AdminKey string `json:"adminKey"`
			DryRun   bool   `json:"dryRun"`
			Email    string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if !adminKeyValid(req.AdminKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid admin key"})
		}

		report, err := testflightService.RunRetry(c.Context(), req.DryRun, req.Email)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "retry failed", "cause": err.Error()})
		}
		return c.JSON(report)
	})
}
