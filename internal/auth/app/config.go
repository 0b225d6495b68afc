package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string // Required: issuer claim for session tokens
	SessionSecret string // Required in prod: HS256 signing secret for session tokens
	SessionTTL    time.Duration

	LimiterBackend string // Optional: rate limiter backend (memory, redis) (default: memory)
	RedisAddr      string // Required when LimiterBackend is redis
	RedisPassword  string // Optional: redis auth

	VerifyResultURL string // UI page that renders email verification outcomes
	MailBaseURL     string // Base URL used when composing emailed links

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "courtside-auth"),
		SessionSecret: os.Getenv("AUTH_SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("AUTH_SESSION_TTL", 24*time.Hour),

		LimiterBackend: getEnvOrDefault("AUTH_LIMITER_BACKEND", "memory"),
		RedisAddr:      getEnvOrDefault("AUTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("AUTH_REDIS_PASSWORD"),

		VerifyResultURL: getEnvOrDefault("AUTH_VERIFY_RESULT_URL", "http://localhost:3000/verify-email/result"),
		MailBaseURL:     getEnvOrDefault("AUTH_MAIL_BASE_URL", "http://localhost:8080"),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
