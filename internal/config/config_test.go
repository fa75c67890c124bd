package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "STORE_DRIVER", "DATABASE_PATH", "DB_HOST", "DB_PORT", "DB_USER",
	"DB_PASSWORD", "DB_NAME", "DB_NAMESPACE", "CORS_ORIGIN", "JWT_SECRET",
	"TOKEN_TTL", "APP_ENV", "LOG_LEVEL", "HEALTH_CHECK_SCHEDULE",
}

// clearEnv unsets every config variable for the duration of the test and
// points ENV_FILE at a file that does not exist.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", c.Env)
	assert.False(t, c.IsProduction())
	assert.Equal(t, 3000, c.ListenPort)
	assert.Equal(t, DriverSQLite, c.StoreDriver)
	assert.Equal(t, "./notes.db", c.DatabasePath)
	assert.Equal(t, "127.0.0.1", c.Store.Host)
	assert.Equal(t, 8000, c.Store.Port)
	assert.Equal(t, "root", c.Store.User)
	assert.Equal(t, "root", c.Store.Password)
	assert.Equal(t, "appdb", c.Store.DBName)
	assert.Equal(t, "notes", c.Store.Namespace)
	assert.Equal(t, []string{"http://localhost:3000"}, c.CORSOrigins)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "@every 30s", c.HealthCheckSchedule)
	assert.NotEmpty(t, c.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "SurrealDB")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "9000")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example,")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, c.ListenPort)
	assert.Equal(t, DriverSurreal, c.StoreDriver)
	assert.Equal(t, "ws://db.internal:9000/rpc", c.Store.URL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, 90*time.Minute, c.TokenTTL)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=4000\nDB_NAME=fromfile\n"), 0o600))
	t.Setenv("ENV_FILE", path)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4000, c.ListenPort)
	assert.Equal(t, "fromfile", c.Store.DBName)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port not a number", "PORT", "eighty"},
		{"store port not a number", "DB_PORT", "x"},
		{"bad ttl", "TOKEN_TTL", "tomorrow"},
		{"non-positive ttl", "TOKEN_TTL", "-1h"},
		{"unknown driver", "STORE_DRIVER", "mongodb"},
		{"bad log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", EnvProduction)

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "real-secret")
	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.IsProduction())
}
