package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverSurreal  = "surrealdb"
	EnvProduction  = "production"
	defaultSecret  = "change-me-in-production"
	defaultEnvFile = ".env"
)

// StoreConfig describes how to reach the document store.
type StoreConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Namespace string
}

// URL returns the websocket RPC endpoint of a networked store.
func (s StoreConfig) URL() string {
	return fmt.Sprintf("ws://%s:%d/rpc", s.Host, s.Port)
}

// Config holds the application configuration.
type Config struct {
	Env                 string
	ListenPort          int
	StoreDriver         string
	DatabasePath        string // sqlite file, ":memory:" allowed
	Store               StoreConfig
	CORSOrigins         []string
	JWTSecret           string
	TokenTTL            time.Duration
	LogLevel            string
	HealthCheckSchedule string
}

// IsProduction reports whether cookies and logs should use production settings.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads an optional .env file, then loads configuration from environment
// variables or sets defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", defaultEnvFile)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	listenPort, err := getEnvInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	storePort, err := getEnvInt("DB_PORT", 8000)
	if err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("config: TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("config: TOKEN_TTL must be positive, got %s", ttl)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverSurreal {
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", driver)
	}

	logLevel := strings.ToLower(getEnv("LOG_LEVEL", "info"))
	if _, err := zerolog.ParseLevel(logLevel); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Env:          getEnv("APP_ENV", "development"),
		ListenPort:   listenPort,
		StoreDriver:  driver,
		DatabasePath: getEnv("DATABASE_PATH", "./notes.db"),
		Store: StoreConfig{
			Host:      getEnv("DB_HOST", "127.0.0.1"),
			Port:      storePort,
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
			DBName:    getEnv("DB_NAME", "appdb"),
			Namespace: getEnv("DB_NAMESPACE", "notes"),
		},
		CORSOrigins:         splitList(getEnv("CORS_ORIGIN", "http://localhost:3000")),
		JWTSecret:           getEnv("JWT_SECRET", defaultSecret),
		TokenTTL:            ttl,
		LogLevel:            logLevel,
		HealthCheckSchedule: getEnv("HEALTH_CHECK_SCHEDULE", "@every 30s"),
	}

	if cfg.JWTSecret == defaultSecret {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("config: JWT_SECRET must be set in production")
		}
		log.Warn().Msg("JWT_SECRET not set, using the development default")
	}

	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
