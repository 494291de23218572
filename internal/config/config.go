package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kitbuilder587/anime-bot/internal/domain"
)

var (
	ErrMissingToken          = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidResultsPerPage = errors.New("RESULTS_PER_PAGE must be between 1 and 25")
	ErrInvalidRateLimit      = errors.New("rate limit settings must be positive")
	ErrInvalidTimeout        = errors.New("JIKAN_TIMEOUT_SEC must be positive")
	ErrInvalidLogFormat      = errors.New("LOG_FORMAT must be json or console")
)

type Config struct {
	Telegram  TelegramConfig
	Jikan     JikanConfig
	RateLimit RateLimitConfig
	Search    SearchConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type JikanConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RateLimitConfig struct {
	// общий лимит на Jikan
	MinInterval    time.Duration
	RequestsPerMin int
	// защита от флуда на чат
	ChatRequestsPerMin int
}

type SearchConfig struct {
	ResultsPerPage int
}

type LogConfig struct {
	Level string
	// json или console, пустое - по уровню
	Format string
}

type MetricsConfig struct {
	// пустой адрес выключает /metrics
	Addr string
}

func Load() (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug: getEnvBoolOrDefault("TELEGRAM_DEBUG", false),
		},
		Jikan: JikanConfig{
			BaseURL: getEnvOrDefault("JIKAN_BASE_URL", "https://api.jikan.moe/v4"),
			Timeout: time.Duration(getEnvIntOrDefault("JIKAN_TIMEOUT_SEC", 15)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			MinInterval:        time.Duration(getEnvIntOrDefault("RATE_LIMIT_MIN_INTERVAL_MS", 500)) * time.Millisecond,
			RequestsPerMin:     getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 30),
			ChatRequestsPerMin: getEnvIntOrDefault("CHAT_REQUESTS_PER_MINUTE", 20),
		},
		Search: SearchConfig{
			ResultsPerPage: getEnvIntOrDefault("RESULTS_PER_PAGE", domain.DefaultResultsPerPage),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefaultAllowEmpty("METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	if c.Search.ResultsPerPage < 1 || c.Search.ResultsPerPage > domain.MaxResultsPerPage {
		return ErrInvalidResultsPerPage
	}
	if c.RateLimit.MinInterval < 0 || c.RateLimit.RequestsPerMin <= 0 || c.RateLimit.ChatRequestsPerMin <= 0 {
		return ErrInvalidRateLimit
	}
	if c.Jikan.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultAllowEmpty - явно заданная пустая строка остается пустой
func getEnvOrDefaultAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
