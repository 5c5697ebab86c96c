package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peerlink/internal/config"
	"peerlink/internal/database"
	"peerlink/internal/handlers"
	"peerlink/internal/logging"
	"peerlink/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Peerlink Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}

	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	if err := mongoDB.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}

	redisService, err := services.NewRedisService(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	// Services
	metrics := services.InitMetrics()
	queueService := services.NewQueueService(redisService, cfg.JobLockDuration)
	userService := services.NewUserService(mongoDB)
	recommendationStore := services.NewRecommendationStore(mongoDB)
	recommendationService := services.NewRecommendationService(cfg, userService, recommendationStore, queueService, metrics)

	// Handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	userHandler := handlers.NewUserHandler(queueService)

	app := fiber.New(fiber.Config{
		AppName:      "Peerlink",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("peerlink")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	app.Get("/health", healthHandler.Handle)
	app.Get("/health/ready", healthHandler.Ready)

	api := app.Group("/api")
	api.Get("/recommendations", recommendationHandler.Get)
	api.Get("/recommendations/:userId", recommendationHandler.Get)
	api.Post("/users/:userId/embedding/refresh", userHandler.RefreshEmbedding)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Server shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
