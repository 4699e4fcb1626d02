package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile string // Optional: path to SQLite database file (default: ./capsule.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	PublicBaseURL string // Public origin used in emailed links (default: http://localhost:8080)
	SMTPAddr      string // Optional: SMTP relay address; empty means emails are only logged
	SMTPFrom      string // Sender address for outgoing mail (default: no-reply@localhost)

	SessionTTL       time.Duration // Session lifetime, refreshed on use (default: 24h, 0 disables expiry)
	ResetTokenTTL    time.Duration // Password reset link lifetime (default: 1h)
	UnverifiedMaxAge time.Duration // Grace period before unverified accounts are deleted (default: 72h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile: getEnvOrDefault("CAPSULE_DATABASE_FILE", "capsule.db"),
		PepperFile:   getEnvOrDefault("CAPSULE_PEPPER_FILE", "pepper"),

		PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		SMTPAddr:      os.Getenv("SMTP_ADDR"),
		SMTPFrom:      getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),

		SessionTTL:       getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		ResetTokenTTL:    getEnvDurationOrDefault("RESET_TOKEN_TTL", 1*time.Hour),
		UnverifiedMaxAge: getEnvDurationOrDefault("UNVERIFIED_MAX_AGE", 72*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
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
