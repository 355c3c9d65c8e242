package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server and CLI read from the environment.
type Config struct {
	DBDriver    string
	DBPath      string
	DatabaseURL string
	Port        string
	AllowUnsafe bool
	RedisAddr   string
	CacheTTL    time.Duration
	LLMProvider string
	APIKey      string
	LLMModel    string
	LogLevel    slog.Level
}

// LoadEnv loads a .env file. Failing to load it, missing file included, is
// only a warning: the process environment still applies.
func LoadEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		slog.Warn("error loading env file", "path", path, "error", err)
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:    getenv("DB_DRIVER", "sqlite"),
		DBPath:      getenv("DB_PATH", "learnon.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getenv("PORT", ":8080"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		LLMProvider: strings.ToLower(os.Getenv("LLM_PROVIDER")),
		APIKey:      os.Getenv("API_KEY"),
		LLMModel:    getenv("LLM_MODEL", "gpt-4o-mini"),
	}

	if cfg.DatabaseURL == "" && os.Getenv("POSTGRES_HOST") != "" {
		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			os.Getenv("POSTGRES_HOST"), getenv("POSTGRES_PORT", "5432"), os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"), os.Getenv("POSTGRES_DB"))
	}

	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	var err error
	if v := os.Getenv("ALLOW_UNSAFE"); v != "" {
		if cfg.AllowUnsafe, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid ALLOW_UNSAFE %q: %w", v, err)
		}
	}

	cfg.CacheTTL = 5 * time.Minute
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if cfg.CacheTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.LLMProvider {
	case "":
	case "huggingface", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API_KEY environment variable is required for LLM_PROVIDER=%s", cfg.LLMProvider)
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return c.DatabaseURL
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
