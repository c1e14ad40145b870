package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DateLayout is the layout for dates in config and on the command line.
const DateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider   string        `yaml:"provider" envconfig:"DATA_PROVIDER"` // yahoo, rest or mock
		BaseURL    string        `yaml:"base_url" envconfig:"DATA_BASE_URL"`
		APIKey     string        `yaml:"api_key" envconfig:"DATA_API_KEY"`
		StartDate  string        `yaml:"start_date" envconfig:"DATA_START_DATE"`
		Timeout    time.Duration `yaml:"timeout" envconfig:"DATA_TIMEOUT"`
		RatePerSec float64       `yaml:"rate_per_sec" envconfig:"DATA_RATE_PER_SEC"`
	} `yaml:"data_source"`
	Forecast struct {
		Window    int     `yaml:"window" envconfig:"FORECAST_WINDOW"`
		Horizon   int     `yaml:"horizon" envconfig:"FORECAST_HORIZON"`
		AROrder   int     `yaml:"ar_order" envconfig:"FORECAST_AR_ORDER"`
		MAOrder   int     `yaml:"ma_order" envconfig:"FORECAST_MA_ORDER"`
		MaxOrder  int     `yaml:"max_order" envconfig:"FORECAST_MAX_ORDER"`
		Threshold float64 `yaml:"threshold" envconfig:"FORECAST_THRESHOLD"`
	} `yaml:"forecast"`
	CAPM struct {
		RiskFree float64 `yaml:"risk_free" envconfig:"CAPM_RISK_FREE"` // annual rate, 0.04 = 4%
	} `yaml:"capm"`
	Watchlist []string `yaml:"watchlist" envconfig:"WATCHLIST"`
	Schedule  struct {
		ForecastCron string `yaml:"forecast_cron" envconfig:"CRON_FORECAST"`
		Parallelism  int    `yaml:"parallelism" envconfig:"SCHEDULE_PARALLELISM"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr" envconfig:"HTTP_ADDR"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
		Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file and a .env file in the working
// directory (both optional), then applies environment variable overrides
// and defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "rest"
		}
	}
	if c.DataSource.StartDate == "" {
		c.DataSource.StartDate = "2024-01-01"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.RatePerSec == 0 {
		c.DataSource.RatePerSec = 2
	}
	if c.Forecast.Window == 0 {
		c.Forecast.Window = 7
	}
	if c.Forecast.Horizon == 0 {
		c.Forecast.Horizon = 30
	}
	if c.Forecast.AROrder == 0 {
		c.Forecast.AROrder = 3
	}
	if c.Forecast.MAOrder == 0 {
		c.Forecast.MAOrder = 3
	}
	if c.Forecast.MaxOrder == 0 {
		c.Forecast.MaxOrder = 5
	}
	if c.Forecast.Threshold == 0 {
		c.Forecast.Threshold = 0.05
	}
	if c.Schedule.ForecastCron == "" {
		c.Schedule.ForecastCron = "0 30 22 * * 1-5"
	}
	if c.Schedule.Parallelism == 0 {
		c.Schedule.Parallelism = 4
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/trading_guide.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Start returns the parsed history start date.
func (c *Config) Start() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.DataSource.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("data_source.start_date: %w", err)
	}
	return t, nil
}

// Validate checks that the forecasting parameters are usable.
func (c *Config) Validate() error {
	if _, err := c.Start(); err != nil {
		return err
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.DataSource.Timeout < 0 {
		return fmt.Errorf("data_source.timeout must not be negative")
	}
	if c.DataSource.RatePerSec < 0 {
		return fmt.Errorf("data_source.rate_per_sec must not be negative")
	}
	if c.Forecast.Window < 1 {
		return fmt.Errorf("forecast.window must be at least 1")
	}
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1")
	}
	if c.Forecast.AROrder < 0 || c.Forecast.MAOrder < 0 {
		return fmt.Errorf("forecast.ar_order and forecast.ma_order must not be negative")
	}
	if c.Forecast.MaxOrder < 0 || c.Forecast.MaxOrder > 10 {
		return fmt.Errorf("forecast.max_order must be between 0 and 10")
	}
	if c.Forecast.Threshold <= 0 || c.Forecast.Threshold >= 1 {
		return fmt.Errorf("forecast.threshold must be in (0,1)")
	}
	if c.CAPM.RiskFree < 0 || c.CAPM.RiskFree >= 1 {
		return fmt.Errorf("capm.risk_free must be in [0,1)")
	}
	if c.Schedule.Parallelism < 1 {
		return fmt.Errorf("schedule.parallelism must be at least 1")
	}
	return nil
}

// ValidateNotifier checks the Telegram settings needed by the daemon.
func (c *Config) ValidateNotifier() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}
