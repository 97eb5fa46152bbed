package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jharrvis/mangoyen-api/internal/handlers"
	"github.com/jharrvis/mangoyen-api/internal/middleware"
	"github.com/jharrvis/mangoyen-api/internal/services"
)

func SetupAdminRoutes(app *fiber.App, adoption *services.AdoptionService, archive *services.ArchiveService) {
	adminHandler := handlers.NewAdminHandler(adoption, archive)

	admin := app.Group("/api/admin", middleware.Protected(), middleware.AdminOnly())

	// Dashboard
	admin.Get("/stats", adminHandler.GetStats)
	admin.Get("/adoptions/:id/activity", adminHandler.GetActivityLog)

	// Scheduled maintenance, also callable by the external cron runner
	admin.Post("/sweep-shipping-deadlines", adminHandler.SweepShippingDeadlines)
	admin.Post("/archive-messages", adminHandler.ArchiveMessages)
}
