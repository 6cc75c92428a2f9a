package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Port           string   `env:"PORT" envDefault:"8081"`
		GinMode        string   `env:"GIN_MODE" envDefault:"release"`
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		// Time allowed for in-flight requests on shutdown
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	OffersAPI struct {
		// Base URL of the offers REST API
		BaseURL string        `env:"OFFERS_API_URL" envDefault:"http://localhost:8080"`
		Timeout time.Duration `env:"OFFERS_API_TIMEOUT" envDefault:"10s"`
		// Page size requested for offer lists
		PageSize int `env:"PAGE_SIZE" envDefault:"30"`
		// Maximum number of offers shown for a single model
		ModelLimit int `env:"MODEL_OFFERS_LIMIT" envDefault:"300"`
	}

	Formatting struct {
		// Locale used when the browser sends no usable Accept-Language
		DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`
	}

	Rates struct {
		Enabled bool   `env:"RATES_ENABLED" envDefault:"false"`
		URL     string `env:"RATES_URL" envDefault:"https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"`
		// Refresh interval in hours
		RefreshHours int `env:"RATES_REFRESH_HOURS" envDefault:"12"`
	}

	Sessions struct {
		TTL           time.Duration `env:"SESSION_TTL" envDefault:"30m"`
		SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	}

	Analytics struct {
		Enabled    bool   `env:"ANALYTICS_ENABLED" envDefault:"false"`
		FluentHost string `env:"FLUENT_HOST" envDefault:"127.0.0.1"`
		FluentPort int    `env:"FLUENT_PORT" envDefault:"24224"`
		TagPrefix  string `env:"FLUENT_TAG_PREFIX" envDefault:"aero-offers"`

		// Maximum number of events buffered before new ones are dropped
		QueueSize int `env:"ANALYTICS_QUEUE_SIZE" envDefault:"1000"`

		// Maximum number of events posted in one batch
		BatchSize int `env:"ANALYTICS_BATCH_SIZE" envDefault:"50"`

		// Maximum time to wait before posting a non-full batch (in seconds)
		FlushInterval int `env:"ANALYTICS_FLUSH_INTERVAL" envDefault:"5"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"ANALYTICS_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"ANALYTICS_RETRY_DELAY" envDefault:"5"`
	}
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OffersAPI.BaseURL == "" {
		return errors.New("OFFERS_API_URL is required")
	}
	if c.OffersAPI.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.OffersAPI.PageSize)
	}
	if c.OffersAPI.ModelLimit <= 0 {
		return fmt.Errorf("MODEL_OFFERS_LIMIT must be positive, got %d", c.OffersAPI.ModelLimit)
	}
	if c.Rates.Enabled && c.Rates.RefreshHours <= 0 {
		return fmt.Errorf("RATES_REFRESH_HOURS must be positive, got %d", c.Rates.RefreshHours)
	}
	return nil
}
