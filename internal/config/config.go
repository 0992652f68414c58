package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Host string
	Port int

	DBURL string

	// SeedUserPassword is the initial password of the seeded admin and
	// inspector accounts. Empty disables seeding.
	SeedUserPassword string
	BcryptCost       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEndpoint string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	// RoadNetworkCacheTTL of zero reads the road network on every request.
	RoadNetworkCacheTTL time.Duration

	CORSAllowedOrigins []string
}

// Load reads the environment, after an optional .env file in the working directory.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Host: getEnv("HOST", ""),
		Port: getEnvInt("PORT", 5000),

		DBURL: buildDBURL(),

		SeedUserPassword: getEnv("SEED_USER_PASSWORD", ""),
		BcryptCost:       getEnvInt("BCRYPT_COST", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		RoadNetworkCacheTTL: time.Duration(getEnvInt("ROAD_NETWORK_CACHE_SECONDS", 30)) * time.Second,

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "roadwatch")
	pass := getEnv("DB_PASSWORD", "roadwatch")
	name := getEnv("DB_NAME", "roadwatch")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// getEnvInt keeps the fallback when the value is not a number.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
