package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the environment-specific settings of the server.
type Config struct {
	HTTPAddr string
	MySQLDSN string
	// RedisAddr is optional; when empty the distributed lock layer is
	// disabled and commits rely on optimistic control alone.
	RedisAddr   string
	MaxAttempts int
	RetryBase   time.Duration
	LockTTL     time.Duration
	Seed        bool
}

// Load reads configuration from environment variables with defaults that
// suit local development.
func Load() Config {
	maxAttempts, _ := strconv.Atoi(getEnvOrDefault("MAX_ATTEMPTS", "3"))
	retryBaseMS, _ := strconv.Atoi(getEnvOrDefault("RETRY_BASE_MS", "10"))
	lockTTLS, _ := strconv.Atoi(getEnvOrDefault("LOCK_TTL_S", "30"))

	return Config{
		HTTPAddr:    getEnvOrDefault("HTTP_ADDR", ":8080"),
		MySQLDSN:    getEnvOrDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/orderengine?parseTime=true"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		MaxAttempts: maxAttempts,
		RetryBase:   time.Duration(retryBaseMS) * time.Millisecond,
		LockTTL:     time.Duration(lockTTLS) * time.Second,
		Seed:        getEnvOrDefault("SEED", "false") == "true",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
