package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string        `yaml:"database_url"`
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	ServerPort   int           `yaml:"server_port"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	LogLevel     string        `yaml:"log_level"`

	// Администратор, создаваемый при первом запуске.
	AdminUsername string `yaml:"admin_username"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Cloudflare R2 для архива завершенных турниров; пустые значения отключают архив.
	R2AccountID       string `yaml:"r2_account_id"`
	R2AccessKeyID     string `yaml:"r2_access_key_id"`
	R2SecretAccessKey string `yaml:"r2_secret_access_key"`
	R2BucketName      string `yaml:"r2_bucket_name"`
	R2PublicBaseURL   string `yaml:"r2_public_base_url"`
}

// R2Enabled reports whether object storage is configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// SlogLevel maps LogLevel onto slog levels; unknown values fall back to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load собирает конфигурацию: .env файл (envFile или ./.env), затем YAML файл
// path, если он задан, затем переменные окружения поверх.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// .env не обязателен
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("JWT_SECRET_KEY", &cfg.JWTSecretKey)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("ADMIN_USERNAME", &cfg.AdminUsername)
	setString("ADMIN_EMAIL", &cfg.AdminEmail)
	setString("ADMIN_PASSWORD", &cfg.AdminPassword)
	setString("R2_ACCOUNT_ID", &cfg.R2AccountID)
	setString("R2_ACCESS_KEY_ID", &cfg.R2AccessKeyID)
	setString("R2_SECRET_ACCESS_KEY", &cfg.R2SecretAccessKey)
	setString("R2_BUCKET_NAME", &cfg.R2BucketName)
	setString("R2_PUBLIC_BASE_URL", &cfg.R2PublicBaseURL)

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		cfg.ServerPort = port
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL environment variable: %w", err)
		}
		cfg.TokenTTL = ttl
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == 0 {
		cfg.ServerPort = 8080
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}

	r2 := []string{c.R2AccountID, c.R2AccessKeyID, c.R2SecretAccessKey, c.R2BucketName, c.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return errors.New("R2 storage is partially configured: set all R2_* variables or none")
	}
	return nil
}
