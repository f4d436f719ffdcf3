package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the reservation engine
type Config struct {
	// Runtime configuration
	Environment string

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Kafka configuration
	Kafka KafkaConfig

	// Hold lifecycle configuration
	Holds HoldConfig

	// Background jobs
	Jobs JobConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string

	// Bounded wait for ledger row locks; exceeding it surfaces ResourceBusy
	LockTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL for read-side capacity views
	CapacityViewTTL time.Duration
}

// KafkaConfig holds Kafka configuration for the audit sink
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	RetryMax   int
	TimeoutMs  int
}

// HoldConfig holds defaults for provisional hold lifecycle
type HoldConfig struct {
	DefaultTimeout time.Duration
	MaxGroupSize   int
}

// JobConfig holds background job configuration
type JobConfig struct {
	SweepInterval   time.Duration
	SweepBatchSize  int
	OutboxInterval  time.Duration
	OutboxBatchSize int
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),

		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			Name:        getEnv("DB_NAME", "reservely_db"),
			User:        getEnv("DB_USER", "reservely_user"),
			Password:    getEnv("DB_PASSWORD", "reservely_password"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			LockTimeout: getDurationEnv("DB_LOCK_TIMEOUT", 3*time.Second),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			CapacityViewTTL: getDurationEnv("REDIS_CAPACITY_VIEW_TTL", 30*time.Second),
		},

		Kafka: KafkaConfig{
			Brokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "capacity-audit"),
			RetryMax:   getIntEnv("KAFKA_RETRY_MAX", 3),
			TimeoutMs:  getIntEnv("KAFKA_TIMEOUT_MS", 10000),
		},

		Holds: HoldConfig{
			DefaultTimeout: getDurationEnv("HOLD_DEFAULT_TIMEOUT", 15*time.Minute),
			MaxGroupSize:   getIntEnv("GROUP_MAX_PARTICIPANTS", 50),
		},

		Jobs: JobConfig{
			SweepInterval:   getDurationEnv("SWEEP_INTERVAL", 1*time.Minute),
			SweepBatchSize:  getIntEnv("SWEEP_BATCH_SIZE", 100),
			OutboxInterval:  getDurationEnv("OUTBOX_INTERVAL", 5*time.Second),
			OutboxBatchSize: getIntEnv("OUTBOX_BATCH_SIZE", 100),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
