package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string

	JWTSecret string

	RedisURL string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	NATSURL string

	// CounterTTL is how long a recomputed counter stays in the cache.
	CounterTTL time.Duration

	// MirrorTimeout bounds a single graph mirror write attempt.
	MirrorTimeout    time.Duration
	MirrorMaxRetries int

	WorkerCount int

	// ActionsPerSecond and ActionBurst rate-limit mutating routes per user.
	ActionsPerSecond float64
	ActionBurst      int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),

		NATSURL: os.Getenv("NATS_URL"),

		CounterTTL:       getDuration("COUNTER_TTL", time.Hour),
		MirrorTimeout:    getDuration("MIRROR_TIMEOUT", 2*time.Second),
		MirrorMaxRetries: getInt("MIRROR_MAX_RETRIES", 3),

		WorkerCount: getInt("WORKER_COUNT", 2),

		ActionsPerSecond: getFloat("ACTIONS_PER_SECOND", 5),
		ActionBurst:      getInt("ACTION_BURST", 30),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt falls back to def for missing, malformed or non-positive values.
func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// getDuration accepts Go duration strings ("90s", "1h").
func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
