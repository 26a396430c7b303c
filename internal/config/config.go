package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	ETL       ETLConfig       `yaml:"etl"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// ScraperConfig contains scraper-specific settings
type ScraperConfig struct {
	ListURLs            []string `yaml:"list_urls"`
	RequestDelaySeconds int      `yaml:"request_delay_seconds"`
	TimeoutSeconds      int      `yaml:"timeout_seconds"`
	MaxRetries          int      `yaml:"max_retries"`
	RetryDelaySeconds   int      `yaml:"retry_delay_seconds"`
	UseHeadlessBrowser  bool     `yaml:"use_headless_browser"`
	DailyRunEnabled     bool     `yaml:"daily_run_enabled"`
	DailyRunTime        string   `yaml:"daily_run_time"`
	UserAgent           string   `yaml:"user_agent"`
	RawCSVPath          string   `yaml:"raw_csv_path"`
}

// RateLimitConfig contains rate limiting settings for trigger endpoints
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// ETLConfig contains loader settings
type ETLConfig struct {
	DedupDays      int    `yaml:"dedup_days"`
	BulkDatasetURL string `yaml:"bulk_dataset_url"`
	BulkCSVPath    string `yaml:"bulk_csv_path"`
}

// AlertsConfig contains spike detection settings
type AlertsConfig struct {
	Enabled          bool    `yaml:"enabled"`
	ThresholdPercent float64 `yaml:"threshold_percent"`
	MinHistory       int     `yaml:"min_history"`
	LookbackDays     int     `yaml:"lookback_days"`
	Recipient        string  `yaml:"recipient"`
}

// SMTPConfig contains alert e-mail delivery settings
type SMTPConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// ForecastConfig locates the pre-computed forecast series
type ForecastConfig struct {
	ModelsDir string `yaml:"models_dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:8501"},
		},
		Scraper: ScraperConfig{
			ListURLs:            []string{"https://www.jumia.com.ng/groceries/"},
			RequestDelaySeconds: 2,
			TimeoutSeconds:      30,
			MaxRetries:          3,
			RetryDelaySeconds:   2,
			UseHeadlessBrowser:  false,
			DailyRunEnabled:     false,
			DailyRunTime:        "02:00",
			RawCSVPath:          "data/raw/products.csv",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 10,
			RequestsPerHour:   100,
			RequestsPerDay:    1000,
		},
		ETL: ETLConfig{
			DedupDays:   7,
			BulkCSVPath: "data/raw/wfpvam_foodprices.csv",
		},
		Alerts: AlertsConfig{
			Enabled:          true,
			ThresholdPercent: 20,
			MinHistory:       7,
			LookbackDays:     30,
		},
		SMTP: SMTPConfig{
			Server: "smtp.gmail.com",
			Port:   587,
			From:   "alerts@foodpricetracker.com",
		},
		Forecast: ForecastConfig{
			ModelsDir: "data/forecasts",
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file
// yields the defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// GetRequestDelay returns the request delay as a duration
func (c *ScraperConfig) GetRequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds) * time.Second
}

// GetTimeout returns the timeout as a duration
func (c *ScraperConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the retry delay as a duration
func (c *ScraperConfig) GetRetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}
