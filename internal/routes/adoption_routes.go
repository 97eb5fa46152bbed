package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jharrvis/mangoyen-api/internal/handlers"
	"github.com/jharrvis/mangoyen-api/internal/middleware"
)

func SetupAdoptionRoutes(app *fiber.App) {
	adoptions := app.Group("/api/adoptions", middleware.Protected())

	// Lifecycle
	adoptions.Post("/", handlers.CreateAdoption)
	adoptions.Get("/", handlers.GetAdoptions)
	adoptions.Get("/:id", handlers.GetAdoption)
	adoptions.Post("/:id/approve", handlers.ApproveAdoption)
	adoptions.Post("/:id/reject", handlers.RejectAdoption)
	adoptions.Post("/:id/cancel", handlers.CancelAdoption)
	adoptions.Put("/:id/price", handlers.UpdateFinalPrice)

	// Payment
	adoptions.Post("/:id/payment/token", handlers.CreateSnapToken)

	// Fulfilment
	adoptions.Post("/:id/shipping", handlers.ConfirmShipping)
	adoptions.Post("/:id/received", handlers.ConfirmReceived)

	// Chat
	adoptions.Get("/:id/messages", handlers.GetMessages)
	adoptions.Post("/:id/messages", handlers.SendMessage)
	adoptions.Get("/:id/messages/unread-count", handlers.GetChatUnreadCount)
}
