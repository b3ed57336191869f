package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
	Search       SearchConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig selects the ticket engine. PreviousBackend names the engine
// that held the data before a switch and is empty when there is none.
type StorageConfig struct {
	Backend         string
	PreviousBackend string
	SQLitePath      string
	MySQLDSN        string
	MySQLMaxConns   int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig drives the unread sweep and event fan-out.
type NotificationConfig struct {
	Enabled       bool
	SweepSchedule string
	Channel       string
}

// SearchConfig holds display limits for query results.
type SearchConfig struct {
	PageBudget int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketmanager"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(getEnv("STORAGE_BACKEND", "sqlite")),
			PreviousBackend: strings.ToLower(os.Getenv("STORAGE_PREVIOUS_BACKEND")),
			SQLitePath:      getEnv("SQLITE_PATH", "tickets.db"),
			MySQLDSN:        os.Getenv("MYSQL_DSN"),
			MySQLMaxConns:   getEnvAsInt("MYSQL_MAX_CONNS", 10),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			Enabled:       getEnvAsBool("NOTIFY_ENABLED", true),
			SweepSchedule: getEnv("NOTIFY_SWEEP_SCHEDULE", "@every 10m"),
			Channel:       getEnv("NOTIFY_REDIS_CHANNEL", "ticketmanager.notifications"),
		},
		Search: SearchConfig{
			PageBudget: getEnvAsInt("SEARCH_PAGE_BUDGET", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Storage.PreviousBackend {
	case "", "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("invalid STORAGE_PREVIOUS_BACKEND %q", c.Storage.PreviousBackend)
	}
	if c.Search.PageBudget < 3 {
		return fmt.Errorf("SEARCH_PAGE_BUDGET must be at least 3, got %d", c.Search.PageBudget)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
