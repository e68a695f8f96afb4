// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Referral  ReferralConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminConfig bootstraps the first admin account on startup when both fields are set.
type AdminConfig struct {
	Email    string
	Password string
}

type ReferralConfig struct {
	BaseURL string
	// Default rates seeded when the commission table is empty.
	DefaultLevel1Percentage decimal.Decimal
	DefaultLevel2Percentage decimal.Decimal
}

type SchedulerConfig struct {
	Enabled               bool
	ProfitAccrualSchedule string
}

type RateLimitConfig struct {
	GlobalPerMinute int
	APIPerMinute    int
	IdempotencyTTL  time.Duration
}

type CacheConfig struct {
	CommissionRuleTTL time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "file://migrations"),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),
			Issuer:     getEnv("JWT_ISSUER", "moneypro"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Referral: ReferralConfig{
			BaseURL:                 getEnv("REFERRAL_BASE_URL", "http://localhost:5173/register"),
			DefaultLevel1Percentage: getDecimalEnv("REFERRAL_L1_PERCENTAGE", decimal.RequireFromString("5.00")),
			DefaultLevel2Percentage: getDecimalEnv("REFERRAL_L2_PERCENTAGE", decimal.RequireFromString("2.00")),
		},
		Scheduler: SchedulerConfig{
			Enabled:               getBoolEnv("SCHEDULER_ENABLED", true),
			ProfitAccrualSchedule: getEnv("PROFIT_ACCRUAL_SCHEDULE", "@hourly"),
		},
		RateLimit: RateLimitConfig{
			GlobalPerMinute: getIntEnv("RATE_LIMIT_GLOBAL_PER_MINUTE", 150),
			APIPerMinute:    getIntEnv("RATE_LIMIT_API_PER_MINUTE", 60),
			IdempotencyTTL:  getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Cache: CacheConfig{
			CommissionRuleTTL: getDurationEnv("COMMISSION_RULE_CACHE_TTL", 5*time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// go-redis Addr wants host:port
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
