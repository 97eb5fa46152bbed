package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jharrvis/mangoyen-api/internal/handlers"
)

func SetupRoutes(app *fiber.App) {
	// API routes
	api := app.Group("/api")

	// Payment provider webhook, unauthenticated (signature-verified)
	api.Post("/webhooks/midtrans", handlers.MidtransWebhook)

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "MangOyen API v1.0",
			"status":  "running",
		})
	})
}
