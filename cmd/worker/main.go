package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"peerlink/internal/config"
	"peerlink/internal/database"
	"peerlink/internal/jobs"
	"peerlink/internal/logging"
	"peerlink/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logging.Init()

	log.Println("🚀 Starting Peerlink Worker...")

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}

	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	redisService, err := services.NewRedisService(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	metrics := services.InitMetrics()
	queueService := services.NewQueueService(redisService, cfg.JobLockDuration)
	userService := services.NewUserService(mongoDB)
	recommendationStore := services.NewRecommendationStore(mongoDB)
	embeddingService := services.NewEmbeddingService(cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey)

	worker := jobs.NewRecommendationComputeWorker(cfg, userService, recommendationStore, embeddingService, queueService, metrics)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down worker...")
		cancel()
	}()

	log.Printf("⚙️ Worker running (compute concurrency %d, embed cap %d)",
		cfg.WorkerConcurrency, cfg.EmbedConcurrency)
	worker.Start(ctx)

	log.Println("👋 Worker stopped")
}
