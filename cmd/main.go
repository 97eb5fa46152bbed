package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/jharrvis/mangoyen-api/internal/database"
	"github.com/jharrvis/mangoyen-api/internal/handlers"
	"github.com/jharrvis/mangoyen-api/internal/moderation"
	"github.com/jharrvis/mangoyen-api/internal/routes"
	"github.com/jharrvis/mangoyen-api/internal/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("❌ Failed to migrate database:", err)
	}
	log.Println("✅ Database connected and migrated successfully")

	// Moderation stack
	contentFilter := moderation.NewContentFilter(moderation.FilterConfig{})
	aiModerator := moderation.NewAIModeratorFromEnv()
	if aiModerator.IsConfigured() {
		log.Println("✅ AI moderation enabled")
	} else {
		log.Println("⚠️  No AI provider keys configured, moderation runs regex-only")
	}

	// Services
	notificationService := services.NewNotificationService()
	emailService := services.NewEmailService()
	whatsappService := services.NewWhatsAppService()
	defer whatsappService.Close()

	var cloudinaryService *services.CloudinaryService
	if cs, err := services.NewCloudinaryService(); err != nil {
		log.Printf("⚠️  Cloudinary disabled: %v", err)
	} else {
		cloudinaryService = cs
		log.Println("✅ Cloudinary service initialized successfully")
	}

	chatService := services.NewChatService(database.DB, contentFilter, aiModerator)
	adoptionService := services.NewAdoptionService(database.DB, services.DefaultAdoptionConfig(),
		notificationService, emailService, whatsappService)
	archiveService := services.NewArchiveService(database.DB, 0, 0)
	midtransService := services.NewMidtransService()

	handlers.InitChatService(chatService)
	handlers.InitAdoptionService(adoptionService, cloudinaryService)
	handlers.InitPaymentService(midtransService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "MangOyen API v1.0",
		BodyLimit: 10 * 1024 * 1024,
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to MangOyen API",
			"status":  "running",
			"version": "1.0",
		})
	})

	// Setup application routes
	routes.SetupRoutes(app)
	routes.SetupAdoptionRoutes(app)
	routes.SetupNotificationRoutes(app)
	routes.SetupAdminRoutes(app, adoptionService, archiveService)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 MangOyen server starting on http://localhost:%s", port)
	log.Fatal(app.Listen(":" + port))
}
