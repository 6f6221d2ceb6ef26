package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string // optional, enables /explain
	Port             string
	DBPath           string
	LogLevel         string
	LogPretty        bool
	FetchWorkers     int
	CacheTTL         time.Duration
	WeightsSumToOne  bool
}

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookPublicURL: getEnv("WEBHOOK_PUBLIC_URL", ""),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		Port:             getEnv("PORT", "9095"),
		DBPath:           getEnv("DB_PATH", "/app/data/prices.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", false),
		FetchWorkers:     getEnvAsInt("FETCH_WORKERS", 4),
		CacheTTL:         getEnvAsDuration("CACHE_TTL", 12*time.Hour),
		WeightsSumToOne:  getEnvAsBool("WEIGHTS_SUM_TO_ONE", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	if c.FetchWorkers < 1 {
		return errors.New("FETCH_WORKERS must be at least 1")
	}
	if c.CacheTTL < 0 {
		return errors.New("CACHE_TTL must not be negative")
	}
	return nil
}

// ValidateBot checks the settings only the telegram bot needs.
func (c *Config) ValidateBot() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("missing env TELEGRAM_BOT_TOKEN"))
	}
	if c.WebhookPublicURL == "" {
		errs = append(errs, errors.New("missing env WEBHOOK_PUBLIC_URL"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
