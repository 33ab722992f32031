package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crossingdelta/timeline/pkg/database"
)

// DevJWTSecret is used when JWT_SECRET is unset outside production
const DevJWTSecret = "timeline-dev-secret"

// Config holds the application configuration
type Config struct {
	Environment  string
	ServerPort   int
	LogLevel     string
	OTLPEndpoint string

	Database database.Config

	RedisURL     string
	TaskCacheTTL time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	CORSAllowedOrigins     []string
	RateLimitPerMinute     int
	LoginAttemptsPerMinute int

	StatsInterval time.Duration // 0 disables the stats worker
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := getInt("SERVER_PORT", 3001)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getInt("TASK_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	tokenHours, err := getInt("TOKEN_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	loginAttempts, err := getInt("LOGIN_ATTEMPTS_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	statsSeconds, err := getInt("STATS_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	environment := getEnv("ENVIRONMENT", "development")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		secret = DevJWTSecret
	}

	db := database.DefaultConfig()
	db.Driver = strings.ToLower(getEnv("DB_DRIVER", database.DriverSQLite))
	db.Path = getEnv("DB_PATH", "./database.sqlite")
	db.Host = getEnv("DB_HOST", "localhost")
	db.Port = dbPort
	db.User = getEnv("DB_USER", "timeline")
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Database = getEnv("DB_NAME", "timeline")
	db.SSLMode = getEnv("DB_SSLMODE", "disable")
	if db.Driver != database.DriverSQLite && db.Driver != database.DriverPostgres {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", db.Driver, database.DriverSQLite, database.DriverPostgres)
	}

	return &Config{
		Environment:            environment,
		ServerPort:             port,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Database:               *db,
		RedisURL:               os.Getenv("REDIS_URL"),
		TaskCacheTTL:           time.Duration(cacheTTL) * time.Second,
		JWTSecret:              secret,
		TokenTTL:               time.Duration(tokenHours) * time.Hour,
		CORSAllowedOrigins:     parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute:     rateLimit,
		LoginAttemptsPerMinute: loginAttempts,
		StatsInterval:          time.Duration(statsSeconds) * time.Second,
	}, nil
}

// UsingDevSecret reports whether tokens are signed with the built-in secret
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
