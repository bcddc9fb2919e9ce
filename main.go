package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bearpay-waitlist/handlers"
	"bearpay-waitlist/models"
	"bearpay-waitlist/services"
	"bearpay-waitlist/utils"
	"bearpay-waitlist/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.WaitlistEntry{},
		&models.AirdropAllocation{},
		&models.AirdropQueueItem{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	waitlistService := services.NewWaitlistService(db)
	referralService := services.NewReferralService(db)
	walletService := services.NewWalletService(db)

	thirdwebClient := services.NewThirdwebClientFromEnv()
	appstoreClient := services.NewAppStoreClientFromEnv()
	telegramClient := services.NewTelegramClientFromEnv()

	testflightService := services.NewTestFlightService(db, appstoreClient)
	settlementService := services.NewSettlementService(db, thirdwebClient, telegramClient)

	inviteWorker := workers.NewTestFlightInviteWorker(testflightService)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go inviteWorker.Start(ctx)

	waitlistService.StartReferralCountScheduler()

	handlers.SetupWaitlistRoutes(app, waitlistService, inviteWorker)
	handlers.SetupAccountRoutes(app, walletService, referralService, thirdwebClient)
	handlers.SetupTestFlightRoutes(app, testflightService)
	handlers.SetupAdminRoutes(app, db, settlementService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5100"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ TestFlight invite worker running")
	log.Println("✅ Referral count refresh scheduled (every 5m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
