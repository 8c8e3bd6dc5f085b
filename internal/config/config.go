// Package config provides configuration management for the price refresh worker.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"pricewatch/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingAllowedHost     = errors.New("fetch.allowed_host is required")
	ErrInvalidTimeout         = errors.New("fetch.timeout_sec must be at least 1")
	ErrInvalidRequestRate     = errors.New("fetch.requests_per_second must be non-negative")
	ErrInvalidMaxAttempts     = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidRateLimitWindow = errors.New("retry.rate_limit_min_ms must be non-negative and not exceed retry.rate_limit_max_ms")
	ErrInvalidNetworkWindow   = errors.New("retry.network_min_ms must be non-negative and not exceed retry.network_max_ms")
	ErrInvalidConcurrency     = errors.New("batch.concurrency must be at least 1")
	ErrInvalidStoreDriver     = errors.New("store.driver must be 'postgres' or 'sqlite'")
	ErrMissingStoreDSN        = errors.New("store.dsn is required (or set PRICEWATCH_DSN / DATABASE_URL)")
	ErrMissingWorkbookPath    = errors.New("workbook.path is required (or set FILE_PATH)")
	ErrInvalidMaxBackups      = errors.New("workbook.max_backups must be at least 1")
	ErrInvalidTopN            = errors.New("notify.top_n must be at least 1")
	ErrInvalidLogLevel        = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat       = errors.New("logging.format must be 'text' or 'json'")
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the complete worker configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Workbook WorkbookConfig `yaml:"workbook"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Retry    RetryPolicy    `yaml:"retry"`
	Batch    BatchConfig    `yaml:"batch"`
}

// FetchConfig controls how detail pages are requested.
type FetchConfig struct {
	AllowedHost       string  `yaml:"allowed_host"`
	UserAgent         string  `yaml:"user_agent"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	MaxBodyKb         int     `yaml:"max_body_kb"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RetryPolicy defines retry behavior. Delays are drawn uniformly from
// [min, max) for the matching failure kind.
type RetryPolicy struct {
	MaxAttempts    int `yaml:"max_attempts"`
	RateLimitMinMs int `yaml:"rate_limit_min_ms"`
	RateLimitMaxMs int `yaml:"rate_limit_max_ms"`
	NetworkMinMs   int `yaml:"network_min_ms"`
	NetworkMaxMs   int `yaml:"network_max_ms"`
}

// BatchConfig sizes the worker pool.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// StoreConfig selects the durable store.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// WorkbookConfig locates the input workbook and its export.
type WorkbookConfig struct {
	Path       string `yaml:"path"`
	ExportPath string `yaml:"export_path"`
	MaxBackups int    `yaml:"max_backups"`
}

// NotifyConfig configures the end-of-run notification.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Title      string `yaml:"title"`
	TopN       int    `yaml:"top_n"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	ShowProgress bool   `yaml:"show_progress"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			AllowedHost: "pricecharting.com",
			UserAgent:   utils.DefaultUserAgent,
			TimeoutSec:  10,
			MaxBodyKb:   2048,
		},
		Retry: RetryPolicy{
			MaxAttempts:    3,
			RateLimitMinMs: 5000,
			RateLimitMaxMs: 10000,
			NetworkMinMs:   1000,
			NetworkMaxMs:   3000,
		},
		Batch: BatchConfig{Concurrency: 10},
		Store: StoreConfig{Driver: DriverPostgres, MaxConns: 10},
		Workbook: WorkbookConfig{
			MaxBackups: 5,
		},
		Notify: NotifyConfig{
			Title: "Base Set Price Update",
			TopN:  5,
		},
		Logging: LoggingConfig{Level: "info", Format: "text", ShowProgress: true},
	}
}

// LoadConfig reads configuration with Read and validates all of it.
func LoadConfig(filepath string) (*Config, error) {
	cfg, err := Read(filepath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Read loads a YAML file on top of the defaults and applies environment
// overrides without validating. An empty path skips the file.
func Read(filepath string) (*Config, error) {
	cfg := Default()

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	return cfg, nil
}

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v

				return
			}
		}
	}

	set(&c.Store.DSN, "PRICEWATCH_DSN", "DATABASE_URL")

	if getenv("PRICEWATCH_DSN") == "" && getenv("DATABASE_URL") == "" {
		if dsn := dsnFromParts(getenv); dsn != "" {
			c.Store.DSN = dsn
		}
	}

	set(&c.Store.Driver, "PRICEWATCH_STORE_DRIVER")
	set(&c.Workbook.Path, "FILE_PATH")
	set(&c.Workbook.ExportPath, "EXPORT_PATH")
	set(&c.Notify.WebhookURL, "DISCORD_WEBHOOK_URL")
	set(&c.Logging.Level, "LOG_LEVEL")

	// Export paths are often copied from a shell with quotes around them.
	c.Workbook.ExportPath = strings.Trim(c.Workbook.ExportPath, `"' `)
}

// dsnFromParts builds a postgres URL from DB_HOST, DB_PORT, DB_NAME,
// DB_USER and DB_PASSWORD. It returns "" when DB_HOST is unset.
func dsnFromParts(getenv func(string) string) string {
	host := strings.TrimSpace(getenv("DB_HOST"))
	if host == "" {
		return ""
	}

	port := strings.TrimSpace(getenv("DB_PORT"))
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + strings.TrimSpace(getenv("DB_NAME")),
	}

	if user := strings.TrimSpace(getenv("DB_USER")); user != "" {
		if pass := getenv("DB_PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	return u.String()
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ValidateFetch(); err != nil {
		return err
	}

	if c.Batch.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Workbook.Path == "" {
		return ErrMissingWorkbookPath
	}

	if c.Workbook.MaxBackups < 1 {
		return ErrInvalidMaxBackups
	}

	if c.Notify.TopN < 1 {
		return ErrInvalidTopN
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidateFetch checks only the settings needed to fetch pages, for
// commands that never touch the store or the workbook.
func (c *Config) ValidateFetch() error {
	if c.Fetch.AllowedHost == "" {
		return ErrMissingAllowedHost
	}

	if c.Fetch.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Fetch.RequestsPerSecond < 0 {
		return ErrInvalidRequestRate
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.RateLimitMinMs < 0 || c.Retry.RateLimitMinMs > c.Retry.RateLimitMaxMs {
		return ErrInvalidRateLimitWindow
	}

	if c.Retry.NetworkMinMs < 0 || c.Retry.NetworkMinMs > c.Retry.NetworkMaxMs {
		return ErrInvalidNetworkWindow
	}

	return nil
}

// ValidateStore checks only the store settings.
func (c *Config) ValidateStore() error {
	if c.Store.Driver != DriverPostgres && c.Store.Driver != DriverSQLite {
		return ErrInvalidStoreDriver
	}

	if c.Store.DSN == "" {
		return ErrMissingStoreDSN
	}

	return nil
}

// GetTimeout returns the per-request timeout.
func (f *FetchConfig) GetTimeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// RateLimitWindow returns the backoff range after an HTTP 429.
func (rp *RetryPolicy) RateLimitWindow() (time.Duration, time.Duration) {
	return ms(rp.RateLimitMinMs), ms(rp.RateLimitMaxMs)
}

// NetworkWindow returns the backoff range after a network failure.
func (rp *RetryPolicy) NetworkWindow() (time.Duration, time.Duration) {
	return ms(rp.NetworkMinMs), ms(rp.NetworkMaxMs)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// String returns a string representation of the config. The DSN is left out.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Store: %s, Workbook: %s, Concurrency: %d, MaxAttempts: %d}",
		c.Store.Driver,
		c.Workbook.Path,
		c.Batch.Concurrency,
		c.Retry.MaxAttempts,
	)
}
