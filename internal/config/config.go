package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// Embedding service configuration
	EmbeddingEndpoint string
	EmbeddingAPIKey   string

	// Recommendation tunables
	RecencyWindowDays int           // linear recency decay window
	CacheTTL          time.Duration // max trusted age of a cached list
	DefaultPageSize   int
	MaxPageSize       int
	BroadComputeLimit int // candidate list size for background computes

	// Worker tunables
	EmbedConcurrency  int           // in-flight embedding backfill cap
	WorkerConcurrency int           // compute jobs processed in parallel
	JobLockDuration   time.Duration // per-job processing lock
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		EmbeddingEndpoint: getEnv("EMBEDDING_ENDPOINT", "http://localhost:8090"),
		EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),

		RecencyWindowDays: getIntEnv("RECENCY_WINDOW_DAYS", 90),
		CacheTTL:          time.Duration(getIntEnv("CACHE_TTL_MINUTES", 60)) * time.Minute,
		DefaultPageSize:   getIntEnv("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:       getIntEnv("MAX_PAGE_SIZE", 50),
		BroadComputeLimit: getIntEnv("BROAD_COMPUTE_LIMIT", 50),

		EmbedConcurrency:  getIntEnv("EMBED_CONCURRENCY", 5),
		WorkerConcurrency: getIntEnv("WORKER_CONCURRENCY", 1),
		JobLockDuration:   time.Duration(getIntEnv("JOB_LOCK_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
