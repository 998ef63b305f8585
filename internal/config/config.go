package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Режимы системы записи
const (
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

type Config struct {
	TelegramToken string
	Environment   string

	BackendMode    string
	DBDSN          string
	MigrationsDir  string
	BackendURL     string
	BackendToken   string
	BackendTimeout time.Duration

	Timezone string

	HTTPAddr       string
	MetricsEnabled bool

	CancelRefreshDelay     time.Duration
	CatalogRefreshInterval time.Duration
	PageSize               int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных, удобно для тестов
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		TelegramToken: get("TELEGRAM_TOKEN", ""),
		Environment:   get("ENV", "development"),
		BackendMode:   strings.ToLower(get("BACKEND_MODE", BackendPostgres)),
		DBDSN:         get("DB_DSN", ""),
		MigrationsDir: get("MIGRATIONS_DIR", "migrations"),
		BackendURL:    strings.TrimRight(get("BACKEND_URL", ""), "/"),
		BackendToken:  get("BACKEND_TOKEN", ""),
		Timezone:      get("TIMEZONE", "Asia/Ho_Chi_Minh"),
		HTTPAddr:      get("HTTP_ADDR", ":8080"),
	}

	var err error
	if cfg.BackendTimeout, err = parseDuration("BACKEND_TIMEOUT", get("BACKEND_TIMEOUT", "10s")); err != nil {
		return nil, err
	}
	if cfg.CancelRefreshDelay, err = parseDuration("CANCEL_REFRESH_DELAY", get("CANCEL_REFRESH_DELAY", "500ms")); err != nil {
		return nil, err
	}
	if cfg.CatalogRefreshInterval, err = parseDuration("CATALOG_REFRESH_INTERVAL", get("CATALOG_REFRESH_INTERVAL", "5m")); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(get("METRICS_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("METRICS_ENABLED: %w", err)
	}
	if cfg.PageSize, err = strconv.Atoi(get("PAGE_SIZE", "50")); err != nil {
		return nil, fmt.Errorf("PAGE_SIZE: %w", err)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}

	// Проверяем обязательные поля
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	switch cfg.BackendMode {
	case BackendPostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required in %s mode", BackendPostgres)
		}
	case BackendHTTP:
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("BACKEND_URL is required in %s mode", BackendHTTP)
		}
	default:
		return nil, fmt.Errorf("unknown BACKEND_MODE %q", cfg.BackendMode)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location часовой пояс календаря
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}
