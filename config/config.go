package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Upstream  UpstreamConfig
	Business  BusinessConfig
	CORS      CORSConfig
	S3        S3Config
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	// SnapshotTTL bounds how long an aggregated order state is served from cache.
	SnapshotTTL time.Duration
}

// UpstreamConfig points at the authoritative backend the dashboard data lives in.
type UpstreamConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// ConfirmAttempts and ConfirmBackoff bound the read-after-write polling
	// that follows every progress mutation.
	ConfirmAttempts int
	ConfirmBackoff  time.Duration
	// ServiceToken authenticates background refreshes, which have no caller.
	ServiceToken string
}

type BusinessConfig struct {
	Timezone string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// Enabled reports whether recap exports should be uploaded instead of streamed.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

type SchedulerConfig struct {
	RefreshSpec string
	// WatchWindow is how recently an order must have been viewed to be refreshed.
	WatchWindow time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "konveksi_gateway"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:     parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          parseInt(getEnv("REDIS_DB", "0"), 0),
			SnapshotTTL: parseDuration(getEnv("REDIS_SNAPSHOT_TTL", "10m"), 10*time.Minute),
		},
		Upstream: UpstreamConfig{
			BaseURL:         strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:3000"), "/"),
			Timeout:         parseDuration(getEnv("UPSTREAM_TIMEOUT", "30s"), 30*time.Second),
			RetryCount:      parseInt(getEnv("UPSTREAM_RETRY_COUNT", "2"), 2),
			ConfirmAttempts: parseInt(getEnv("UPSTREAM_CONFIRM_ATTEMPTS", "4"), 4),
			ConfirmBackoff:  parseDuration(getEnv("UPSTREAM_CONFIRM_BACKOFF", "250ms"), 250*time.Millisecond),
			ServiceToken:    getEnv("UPSTREAM_SERVICE_TOKEN", ""),
		},
		Business: BusinessConfig{
			Timezone: getEnv("BUSINESS_TIMEZONE", "Asia/Jakarta"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", ""),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Scheduler: SchedulerConfig{
			RefreshSpec: getEnv("PROGRESS_REFRESH_CRON", "*/5 * * * *"),
			WatchWindow: parseDuration(getEnv("PROGRESS_WATCH_WINDOW", "30m"), 30*time.Minute),
		},
	}

	if config.Upstream.ConfirmAttempts < 1 {
		return nil, fmt.Errorf("UPSTREAM_CONFIRM_ATTEMPTS must be at least 1, got %d", config.Upstream.ConfirmAttempts)
	}
	if _, err := time.LoadLocation(config.Business.Timezone); err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", config.Business.Timezone, err)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Location resolves the business timezone. Load has already validated it.
func (c *BusinessConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
