// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gurkanbulca/kanboard/internal/database"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Board    BoardConfig
}

type ServerConfig struct {
	GRPCPort    string
	HTTPPort    string
	Environment string
	AutoMigrate bool
}

type DatabaseConfig struct {
	Driver   string // "postgres" or "memory"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	AccessSecret         string
	RefreshSecret        string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

type RedisConfig struct {
	Enabled bool
	Addr    string
	DB      int
	Prefix  string
	TTL     time.Duration
}

// BoardConfig holds the board policy. It can be overridden by the YAML
// file named in BOARD_POLICY_FILE.
type BoardConfig struct {
	SeedDefaultColumns     bool          `yaml:"seed_default_columns"`
	DefaultColumns         []string      `yaml:"default_columns"`
	DefaultDoneColumn      bool          `yaml:"default_done_column"`
	MaxRetries             int           `yaml:"max_retries"`
	DefaultActivityLimit   int           `yaml:"default_activity_limit"`
	MaxActivityLimit       int           `yaml:"max_activity_limit"`
	OverdueRefreshInterval time.Duration `yaml:"overdue_refresh_interval"`
}

const (
	devAccessSecret  = "dev-access-secret-change-in-production"
	devRefreshSecret = "dev-refresh-secret-change-in-production"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			GRPCPort:    getEnv("GRPC_PORT", "50051"),
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "kanboard"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			AccessSecret:         getEnv("JWT_ACCESS_SECRET", getEnv("JWT_SECRET", devAccessSecret)),
			RefreshSecret:        getEnv("JWT_REFRESH_SECRET", getEnv("JWT_SECRET", devRefreshSecret)),
			AccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			DB:      getEnvAsInt("REDIS_DB", 0),
			Prefix:  getEnv("REDIS_PREFIX", "kanboard:"),
			TTL:     getEnvAsDuration("REDIS_TTL", 5*time.Minute),
		},
		Board: BoardConfig{
			SeedDefaultColumns:     getEnvAsBool("BOARD_SEED_DEFAULT_COLUMNS", true),
			DefaultColumns:         getEnvAsList("BOARD_DEFAULT_COLUMNS", []string{"To do", "In progress", "Done"}),
			DefaultDoneColumn:      getEnvAsBool("BOARD_DEFAULT_DONE_COLUMN", false),
			MaxRetries:             getEnvAsInt("BOARD_MAX_RETRIES", 5),
			DefaultActivityLimit:   getEnvAsInt("BOARD_ACTIVITY_LIMIT", 50),
			MaxActivityLimit:       getEnvAsInt("BOARD_ACTIVITY_MAX_LIMIT", 200),
			OverdueRefreshInterval: getEnvAsDuration("BOARD_OVERDUE_REFRESH_INTERVAL", 15*time.Minute),
		},
	}

	if path := os.Getenv("BOARD_POLICY_FILE"); path != "" {
		if err := cfg.Board.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML policy at path onto b. Keys missing from the
// file keep their current value.
func (b *BoardConfig) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read board policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, b); err != nil {
		return fmt.Errorf("parse board policy %s: %w", path, err)
	}
	return nil
}

// ValidateConfig rejects settings the server cannot run with.
func (c *Config) ValidateConfig() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", c.Database.Driver))
	}

	if c.Board.MaxRetries < 1 {
		errs = append(errs, errors.New("BOARD_MAX_RETRIES must be at least 1"))
	}
	if c.Board.SeedDefaultColumns && len(c.Board.DefaultColumns) == 0 {
		errs = append(errs, errors.New("default columns are required when seeding is enabled"))
	}
	for _, title := range c.Board.DefaultColumns {
		if strings.TrimSpace(title) == "" {
			errs = append(errs, errors.New("default column titles must not be blank"))
			break
		}
	}
	if c.Board.DefaultActivityLimit < 1 || c.Board.MaxActivityLimit < c.Board.DefaultActivityLimit {
		errs = append(errs, errors.New("activity limits must satisfy 1 <= default <= max"))
	}
	if c.Board.OverdueRefreshInterval < 0 {
		errs = append(errs, errors.New("overdue refresh interval must not be negative"))
	}

	if c.IsProduction() {
		if c.JWT.AccessSecret == devAccessSecret || c.JWT.RefreshSecret == devRefreshSecret {
			errs = append(errs, errors.New("JWT secrets must be set in production"))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ToDatabaseConfig converts to the connection settings of the database package.
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.DBName,
		SSLMode:  c.Database.SSLMode,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
