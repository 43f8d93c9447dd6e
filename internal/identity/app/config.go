package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer claim for session tokens

	BootstrapEmail    string // Optional: seed super admin email (default: root@fairmarket.local)
	BootstrapPassword string // Optional: seed super admin password; leave empty to skip seeding

	AccessTokenTTL      time.Duration // Optional: access token lifetime (default: 1h)
	RefreshLead         time.Duration // Optional: how long before expiry the refresh timer fires (default: 5m)
	SignInTimeout       time.Duration // Optional: provider sign-in deadline (default: 15s)
	DatabaseFile        string        // Optional: path to SQLite database file (default: ./identity.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:              getEnvOrDefault("IDENTITY_ISSUER", "fairmarket-identity"),
		BootstrapEmail:      getEnvOrDefault("IDENTITY_BOOTSTRAP_EMAIL", "root@fairmarket.local"),
		BootstrapPassword:   os.Getenv("IDENTITY_BOOTSTRAP_PASSWORD"),
		AccessTokenTTL:      getEnvDurationOrDefault("IDENTITY_ACCESS_TOKEN_TTL", time.Hour),
		RefreshLead:         getEnvDurationOrDefault("IDENTITY_REFRESH_LEAD", 5*time.Minute),
		SignInTimeout:       getEnvDurationOrDefault("IDENTITY_SIGNIN_TIMEOUT", 15*time.Second),
		DatabaseFile:        getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are treated as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
