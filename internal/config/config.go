package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the whole application configuration, populated from environment variables.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Lease     LeaseConfig
	Job       JobConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int

	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// URL renders a postgres:// DSN, used by the migration CLI.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	Enabled  bool
}

// LeaseConfig tunes the transition engine.
type LeaseConfig struct {
	StoreDriver      string // postgres | memory
	MemoryBooks      int    // books 1..N seeded when StoreDriver is memory
	LockTimeout      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryJitter      float64
}

// JobConfig tunes the availability projection jobs.
type JobConfig struct {
	Enabled           bool
	Queue             string
	ReconcileCron     string
	SnapshotTTL       time.Duration
	TaskMaxRetry      int
	WorkerConcurrency int
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Library API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "library"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),

			MaxConnLifetime:   getEnvDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvDuration("DB_MAX_CONN_IDLE_TIME", time.Minute),
			HealthCheckPeriod: getEnvDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			ConnectTimeout:    getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			MaxRetries:        getEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:        getEnvDuration("DB_RETRY_DELAY", time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Lease: LeaseConfig{
			StoreDriver:      getEnv("LEASE_STORE", "postgres"),
			MemoryBooks:      getEnvInt("LEASE_MEMORY_BOOKS", 100),
			LockTimeout:      getEnvDuration("LEASE_LOCK_TIMEOUT", 5*time.Second),
			RetryMaxAttempts: getEnvInt("LEASE_RETRY_MAX_ATTEMPTS", 5),
			RetryBaseDelay:   getEnvDuration("LEASE_RETRY_BASE_DELAY", 20*time.Millisecond),
			RetryJitter:      getEnvFloat("LEASE_RETRY_JITTER", 0.3),
		},
		Job: JobConfig{
			Enabled:           getEnvBool("JOBS_ENABLED", true),
			Queue:             getEnv("JOBS_QUEUE", "lease"),
			ReconcileCron:     getEnv("JOBS_RECONCILE_CRON", "*/10 * * * *"),
			SnapshotTTL:       getEnvDuration("JOBS_SNAPSHOT_TTL", 0),
			TaskMaxRetry:      getEnvInt("JOBS_TASK_MAX_RETRY", 3),
			WorkerConcurrency: getEnvInt("JOBS_WORKER_CONCURRENCY", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RPS:     getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:   getEnvInt("RATE_LIMIT_BURST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.Lease.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("LEASE_STORE must be postgres or memory, got %q", c.Lease.StoreDriver)
	}
	if c.Lease.StoreDriver == "memory" && c.Lease.MemoryBooks < 0 {
		return fmt.Errorf("LEASE_MEMORY_BOOKS must not be negative")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Lease.RetryMaxAttempts < 1 {
		return fmt.Errorf("LEASE_RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if c.Lease.RetryBaseDelay < 0 {
		return fmt.Errorf("LEASE_RETRY_BASE_DELAY must not be negative")
	}
	if c.Lease.RetryJitter < 0 || c.Lease.RetryJitter > 1 {
		return fmt.Errorf("LEASE_RETRY_JITTER must be within [0, 1]")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.App.Environment == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.Lease.StoreDriver == "memory" {
			return fmt.Errorf("LEASE_STORE=memory is not allowed in production")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
