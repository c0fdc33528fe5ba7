package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	PublicURL   string // base URL baked into join QR codes
	RateLimit   int    // API requests per second per client
	RateBurst   int
}

func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env")
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8080"),
		RateLimit:   getEnvInt("RATE_LIMIT", 10),
		RateBurst:   getEnvInt("RATE_BURST", 20),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
