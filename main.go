package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ad-marketplace-system/handlers"
	"ad-marketplace-system/models"
	"ad-marketplace-system/services"
	"ad-marketplace-system/utils"
	"ad-marketplace-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	if err := utils.ValidateEnv(); err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, covers ad creative uploads
	})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	originsList := strings.Split(allowedOrigins, ",")
	for i, origin := range originsList {
		originsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(originsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if err := utils.InitStorage(); err != nil {
		log.Fatal("failed to initialize storage client:", err)
	}

	db, err := gorm.Open(postgres.Open(os.Getenv("DATABASE_URL")), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Ad{},
		&models.ImpressionEvent{},
		&models.ClickEvent{},
		&models.AdminImpressionRatio{},
		&models.Purchase{},
		&models.AggregatedStats{},
		&models.AuditLog{},
		&models.SeoVariable{},
		&models.SocialMediaPage{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	mongoClient, err := mongo.Connect(mongooptions.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Fatal("failed to connect to mongo:", err)
	}
	mongoDB := mongoClient.Database(envOrDefault("MONGO_DB", "ad_marketplace"))

	oauthClient := services.NewOAuthClient()
	mailer := services.NewResendClient()
	paymob := services.NewPaymobClient()

	authService := services.NewAuthService(db, oauthClient, mailer)
	adService := services.NewAdService(db, mailer)
	creditService := services.NewCreditService(db)
	eventService := services.NewEventService(db)
	analyticsService := services.NewAnalyticsService(db)
	userService := services.NewUserService(db)
	paymentService := services.NewPaymentService(db, paymob)
	blogService := services.NewBlogService(mongoDB)
	socialService := services.NewSocialService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	insightsClient := workers.NewFacebookInsightsClient(db)
	go workers.PollInsights(ctx, insightsClient, 15*time.Minute)

	analyticsService.StartStatsRollup()

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupAdRoutes(app, adService, analyticsService)
	handlers.SetupEventRoutes(app, eventService)
	handlers.SetupPaymentRoutes(app, paymentService)
	handlers.SetupBlogRoutes(app, blogService)
	handlers.SetupAdminRoutes(app, userService, creditService, socialService)
	handlers.SetupSocialWebhookRoutes(app, socialService, creditService)

	port := envOrDefault("PORT", "5300")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Println("Facebook insights polling running (every 15m)")
	log.Println("Daily stats rollup scheduled")

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	_ = mongoClient.Disconnect(shutdownCtx)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
