// Package config reads runtime settings from the environment, after loading
// an optional .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SeedPath      string

	RoutesAPIKey        string
	RoutesBaseURL       string
	RoutesTravelMode    string
	RoutesRatePerSecond int
	RouteCacheTTL       time.Duration
}

// LoadDotEnv loads .env into the process environment when present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
}

// Load reads the environment, applying defaults for local runs.
func Load() Config {
	return Config{
		Port:                Get("PORT", "8080"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:           strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		SeedPath:            Get("SEED_PATH", "data/seeds/places.json"),
		RoutesAPIKey:        strings.TrimSpace(os.Getenv("ROUTES_API_KEY")),
		RoutesBaseURL:       Get("ROUTES_BASE_URL", "https://routes.googleapis.com"),
		RoutesTravelMode:    Get("ROUTES_TRAVEL_MODE", "DRIVE"),
		RoutesRatePerSecond: GetInt("ROUTES_RATE_PER_SECOND", 5),
		RouteCacheTTL:       GetDuration("ROUTE_CACHE_TTL", 2*time.Minute),
	}
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid integer key=%s value=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration key=%s value=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
