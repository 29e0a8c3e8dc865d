package config

import (
	"os"
	"strconv"
	"time"
)

// FraudCallConfig holds the service configuration, loaded from
// environment variables. The .env file is loaded in main.go for local
// development using godotenv.Load().
type FraudCallConfig struct {
	Port string
	Env  string

	// API surface
	EnableCORS     bool
	AuthSecret     string // empty disables bearer auth (local dev)
	RateLimitRPS   float64
	RateLimitBurst int

	// Case store: Postgres when DatabaseURL is set, otherwise in-memory
	// seeded from SeedFilePath or the built-in table.
	DatabaseURL  string
	SeedFilePath string

	// Audit trail (JSON Lines). Empty keeps entries in memory only.
	AuditLogPath string

	// Redis session monitoring (optional)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Conversation lifecycle
	SessionMaxIdle time.Duration
	ReapInterval   time.Duration

	// Instance identifier for multi-pod monitoring
	InstanceID string
}

// LoadFromEnv builds the configuration from the environment.
func LoadFromEnv() *FraudCallConfig {
	return &FraudCallConfig{
		Port: GetEnvOrDefault("FRAUDLINE_PORT", "8082"),
		Env:  GetEnvOrDefault("LOG_ENV", "development"),

		EnableCORS:     GetEnvAsBoolOrDefault("FRAUDLINE_ENABLE_CORS", true),
		AuthSecret:     GetEnvOrDefault("FRAUDLINE_AUTH_SECRET", ""),
		RateLimitRPS:   GetEnvAsFloatOrDefault("FRAUDLINE_RATE_LIMIT_RPS", 20),
		RateLimitBurst: GetEnvAsIntOrDefault("FRAUDLINE_RATE_LIMIT_BURST", 40),

		DatabaseURL:  GetEnvOrDefault("DATABASE_URL", ""),
		SeedFilePath: GetEnvOrDefault("FRAUDLINE_SEED_FILE", ""),

		AuditLogPath: GetEnvOrDefault("FRAUDLINE_AUDIT_LOG", "fraud_audit.jsonl"),

		RedisHost:     GetEnvOrDefault("REDIS_HOST", ""),
		RedisPort:     GetEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvAsIntOrDefault("REDIS_DB", 0),

		SessionMaxIdle: GetEnvAsDurationOrDefault("FRAUDLINE_SESSION_MAX_IDLE", 10*time.Minute),
		ReapInterval:   GetEnvAsDurationOrDefault("FRAUDLINE_REAP_INTERVAL", time.Minute),

		InstanceID: getInstanceID(),
	}
}

// getInstanceID prefers the pod name in Kubernetes, then the hostname.
func getInstanceID() string {
	if pod := os.Getenv("POD_NAME"); pod != "" {
		return pod
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "fraudline-local"
}

// GetEnvOrDefault returns the env var value or a default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsIntOrDefault returns the env var as int or a default
func GetEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvAsFloatOrDefault returns the env var as float64 or a default
func GetEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvAsBoolOrDefault returns the env var as bool or a default
func GetEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvAsDurationOrDefault returns the env var as duration or a default
func GetEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
