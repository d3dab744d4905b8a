// Package config provides configuration management for the account monitor.
// It loads configuration from environment variables and .env files, and the
// account selection rules from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/account-monitor/internal/types"
	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Store encodings
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatGob  = "gob"
)

// Config holds all application configuration
type Config struct {
	Dir      string
	Server   ServerConfig
	Sync     SyncConfig
	Auth     AuthConfig
	Broker   BrokerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// SyncConfig holds sync worker configuration
type SyncConfig struct {
	Delay        time.Duration
	Currency     types.Currency
	AccountsFile string
}

// AuthConfig holds credential storage configuration
type AuthConfig struct {
	FilePath     string
	RefreshToken string // overrides the saved credential when set
	Practice     bool
}

// BrokerConfig holds broker API client configuration
type BrokerConfig struct {
	RateLimitRPS float64
	Timeout      time.Duration
}

// StoreConfig holds durable storage configuration
type StoreConfig struct {
	Backend       string
	Format        string
	FilePath      string
	RedisKey      string
	PostgresTable string
	PostgresName  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	FileDir    string
	FileLevel  string
	MaxSizeMB  int
	MaxBackups int
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	dir := getEnv("CONFIG_DIR", defaultConfigDir())

	config := &Config{
		Dir: dir,
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "49494"),
			Host:            getEnv("SERVER_HOST", "127.0.0.1"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimitRPS:    getEnvAsFloat("HTTP_RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvAsInt("HTTP_RATE_LIMIT_BURST", 40),
		},
		Sync: SyncConfig{
			Delay:        time.Duration(getEnvAsInt("SYNC_DELAY_SECONDS", 300)) * time.Second,
			Currency:     types.Currency(strings.ToUpper(getEnv("SYNC_CURRENCY", string(types.CurrencyCAD)))),
			AccountsFile: resolvePath(dir, getEnv("SYNC_ACCOUNTS_FILE", "accounts.yaml")),
		},
		Auth: AuthConfig{
			FilePath:     resolvePath(dir, getEnv("AUTH_FILE_PATH", "auth.json")),
			RefreshToken: getEnv("QT_REFRESH_TOKEN", ""),
			Practice:     getEnvAsBool("QT_PRACTICE", false),
		},
		Broker: BrokerConfig{
			RateLimitRPS: getEnvAsFloat("BROKER_RATE_LIMIT_RPS", 10),
			Timeout:      getEnvAsDuration("BROKER_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
			Format:        strings.ToLower(getEnv("STORE_FORMAT", FormatJSON)),
			FilePath:      resolvePath(dir, getEnv("STORE_FILE_PATH", "db.json")),
			RedisKey:      getEnv("STORE_REDIS_KEY", "qtmon:store"),
			PostgresTable: getEnv("STORE_POSTGRES_TABLE", "store_blobs"),
			PostgresName:  getEnv("STORE_POSTGRES_NAME", "default"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "account_monitor"),
				User:           getEnv("POSTGRES_USER", "monitor"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 4),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 4),
			},
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			FileDir:    resolvePath(dir, getEnv("LOG_FILE_DIR", "logs")),
			FileLevel:  getEnv("LOG_FILE_LEVEL", "info"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 1),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the monitor cannot run with
func (c *Config) Validate() error {
	if c.Sync.Delay <= 0 {
		return fmt.Errorf("SYNC_DELAY_SECONDS must be positive, got %v", c.Sync.Delay)
	}
	if !c.Sync.Currency.Valid() {
		return fmt.Errorf("SYNC_CURRENCY must be CAD or USD, got %q", c.Sync.Currency)
	}
	switch c.Store.Backend {
	case BackendFile, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of file, redis, postgres, got %q", c.Store.Backend)
	}
	switch c.Store.Format {
	case FormatJSON, FormatYAML, FormatGob:
	default:
		return fmt.Errorf("STORE_FORMAT must be one of json, yaml, gob, got %q", c.Store.Format)
	}
	if c.Broker.RateLimitRPS <= 0 {
		return fmt.Errorf("BROKER_RATE_LIMIT_RPS must be positive, got %v", c.Broker.RateLimitRPS)
	}
	return nil
}

// RedisAddr returns the host:port of the redis server
func (c RedisConfig) RedisAddr() string {
	return c.Host + ":" + c.Port
}

// ConnString returns a pgx connection string
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable pool_max_conns=%d",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.MaxConnections,
	)
}

func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "qtmon")
}

// resolvePath anchors relative paths at the config directory
func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
