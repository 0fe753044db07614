package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_URL", "JWT_SECRET_KEY", "SERVER_PORT", "TOKEN_TTL", "LOG_LEVEL",
	"ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD", "CORS_ALLOWED_ORIGINS",
	"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/chess")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := Load("", writeFile(t, ".env", ""))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/chess", cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.R2Enabled())
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
database_url: postgres://yaml/chess
jwt_secret_key: from-yaml
server_port: 9000
token_ttl: 2h
log_level: debug
admin_username: arbiter
`)
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := Load(path, writeFile(t, ".env", "JWT_SECRET_KEY=from-dotenv\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://yaml/chess", cfg.DatabaseURL)
	assert.Equal(t, "from-dotenv", cfg.JWTSecretKey)
	assert.Equal(t, 9100, cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "arbiter", cfg.AdminUsername)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"JWT_SECRET_KEY": "s"}},
		{"missing jwt secret", map[string]string{"DATABASE_URL": "postgres://x"}},
		{"bad port", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SERVER_PORT": "70000"}},
		{"port not a number", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "SERVER_PORT": "http"}},
		{"bad ttl", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "TOKEN_TTL": "forever"}},
		{"partial r2", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s", "R2_ACCOUNT_ID": "acc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", writeFile(t, ".env", ""))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFiles(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), writeFile(t, ".env", ""))
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
