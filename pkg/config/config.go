package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Price history storage
	Store StoreConfig

	// Catalog collaborator sources
	Catalog CatalogConfig

	// Maintenance / periodic jobs
	Maintenance MaintenanceConfig

	// EngineConfigPath points at the optional YAML tuning file
	EngineConfigPath string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// RateLimit applies to mutating API endpoints
	RateLimit RateLimitConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// StoreConfig selects and locates the history backend
type StoreConfig struct {
	Backend     string // file, postgres, sqlite
	HistoryPath string // file backend
	SQLitePath  string // sqlite backend
}

// CatalogConfig locates products.json and locations.json (path or http(s) URL)
type CatalogConfig struct {
	ProductsSource  string
	LocationsSource string
	Watch           bool
}

// MaintenanceConfig holds cron expressions for explicit triggers.
// An empty expression disables the job.
type MaintenanceConfig struct {
	Schedule             string
	ForecastWarmSchedule string
	MaxRetries           int
	RetryDelay           time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RateLimitConfig holds limits for mutating endpoints
type RateLimitConfig struct {
	PerMinute int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", BackendFile),
			HistoryPath: getEnv("HISTORY_PATH", filepath.Join("data", "price_history.json")),
			SQLitePath:  getEnv("SQLITE_PATH", filepath.Join("data", "price_history.db")),
		},

		Catalog: CatalogConfig{
			ProductsSource:  getEnv("CATALOG_PRODUCTS", "products.json"),
			LocationsSource: getEnv("CATALOG_LOCATIONS", "locations.json"),
			Watch:           getEnvAsBool("CATALOG_WATCH", false),
		},

		Maintenance: MaintenanceConfig{
			Schedule:             getEnvAllowEmpty("MAINTENANCE_SCHEDULE", "0 5 0 * * *"),
			ForecastWarmSchedule: getEnvAllowEmpty("FORECAST_WARM_SCHEDULE", ""),
			MaxRetries:           getEnvAsInt("JOB_MAX_RETRIES", 3),
			RetryDelay:           getEnvAsDuration("JOB_RETRY_DELAY", "1m"),
		},

		EngineConfigPath: getEnv("ENGINE_CONFIG", ""),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.HistoryPath == "" {
			return fmt.Errorf("HISTORY_PATH is required for the file backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: file, postgres, sqlite")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}

	return nil
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty keeps an explicitly empty value (used to disable cron jobs)
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
