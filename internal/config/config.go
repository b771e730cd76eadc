// Package config содержит логику чтения конфигурации сервиса синхронизации.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const dateLayout = "2006-01-02"

// Config содержит параметры сервиса синхронизации платного хранения.
type Config struct {
	APIKey            string        `env:"WB_API_KEY"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	ReportAPIAddress  string        `env:"REPORT_API_ADDRESS"`
	BackfillOrigin    string        `env:"BACKFILL_ORIGIN"`
	LookbackDays      int           `env:"LOOKBACK_DAYS" envDefault:"8"`
	MaxWindowSpanDays int           `env:"MAX_WINDOW_SPAN_DAYS" envDefault:"7"`
	BatchSize         int           `env:"BATCH_SIZE" envDefault:"500"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	WindowDelay       time.Duration `env:"WINDOW_DELAY" envDefault:"60s"`
	BatchDelay        time.Duration `env:"BATCH_DELAY" envDefault:"1s"`
	ErrorCooldown     time.Duration `env:"ERROR_COOLDOWN" envDefault:"120s"`
	ClearLookback     bool          `env:"CLEAR_LOOKBACK" envDefault:"false"`

	// Initial выбирает режим первоначальной исторической загрузки
	// вместо ежедневного обновления. Задаётся только флагом.
	Initial bool
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envAPIKey := cfg.APIKey
	envDatabaseURI := cfg.DatabaseURI
	envReportAddress := cfg.ReportAPIAddress
	envOrigin := cfg.BackfillOrigin

	flag.StringVar(&cfg.APIKey, "k", "", "seller-analytics API key")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.ReportAPIAddress, "r", "", "report API address override")
	flag.StringVar(&cfg.BackfillOrigin, "o", "", "backfill origin date (YYYY-MM-DD)")
	flag.BoolVar(&cfg.Initial, "initial", false, "run historical backfill instead of daily refresh")

	flag.Parse()

	if envAPIKey != "" {
		cfg.APIKey = envAPIKey
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envReportAddress != "" {
		cfg.ReportAPIAddress = envReportAddress
	}
	if envOrigin != "" {
		cfg.BackfillOrigin = envOrigin
	}

	if cfg.BackfillOrigin == "" {
		cfg.BackfillOrigin = fmt.Sprintf("%d-01-01", time.Now().Year())
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return errors.New("API key is required")
	}
	if c.DatabaseURI == "" {
		return errors.New("database URI is required")
	}
	if _, err := time.Parse(dateLayout, c.BackfillOrigin); err != nil {
		return fmt.Errorf("parse backfill origin: %w", err)
	}
	if c.LookbackDays < 1 || c.MaxWindowSpanDays < 1 || c.BatchSize < 1 {
		return errors.New("lookback days, window span and batch size must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.WindowDelay < 0 || c.BatchDelay < 0 || c.ErrorCooldown < 0 {
		return errors.New("delays must not be negative")
	}
	return nil
}

// Origin возвращает дату начала первоначальной загрузки.
func (c *Config) Origin() time.Time {
	t, _ := time.Parse(dateLayout, c.BackfillOrigin)
	return t
}
