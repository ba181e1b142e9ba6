// config/config.go
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// RiskConfig holds the evaluation parameters of the risk engine.
type RiskConfig struct {
	RulesFile                   string  `yaml:"rules_file"`
	DefaultMaxDrawdownPercent   float64 `yaml:"default_max_drawdown_percent"`
	DefaultDailyDrawdownPercent float64 `yaml:"default_daily_drawdown_percent"`
}

// WebhookConfig holds the breach/pass notification endpoint settings.
type WebhookConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// BridgeConfig holds the connection settings for the trading platform bridge.
type BridgeConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StoreConfig holds the connection settings for the account metadata store.
type StoreConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RecorderConfig holds the local violation journal settings.
type RecorderConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// LogConfig holds the configuration for logging.
type LogConfig struct {
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// NormalConfig holds general, non-risk-specific configuration.
type NormalConfig struct {
	HTTPTimeoutSeconds       int    `yaml:"http_timeout_seconds"`
	MonitorIntervalMs        int    `yaml:"monitor_interval_ms"`
	CacheRefreshSeconds      int    `yaml:"cache_refresh_seconds"`
	HeartbeatIntervalMinutes int    `yaml:"heartbeat_interval_minutes"`
	LogDirectory             string `yaml:"log_directory"`
	StateDirectory           string `yaml:"state_directory"`
}

// Config is the top-level configuration structure.
type Config struct {
	UseSimulation bool            `yaml:"use_simulation"`
	CloseTool     string          `yaml:"close_tool"` // optional external stop-out binary
	Risk          *RiskConfig     `yaml:"risk"`
	Webhook       *WebhookConfig  `yaml:"webhook"`
	Bridge        *BridgeConfig   `yaml:"bridge"`
	Store         *StoreConfig    `yaml:"store"`
	Recorder      *RecorderConfig `yaml:"recorder"`
	Normal        *NormalConfig   `yaml:"normal_config"`
	Logs          *LogConfig      `yaml:"logs"`
}

// NewConfig creates a Config with nested structs allocated but zero-valued.
// All critical parameters MUST be provided in the yaml file; Validate
// enforces that after loading.
func NewConfig() *Config {
	return &Config{
		UseSimulation: false,
		Risk:          &RiskConfig{},
		Webhook:       &WebhookConfig{},
		Bridge:        &BridgeConfig{},
		Store:         &StoreConfig{},
		Recorder:      &RecorderConfig{},
		Normal:        &NormalConfig{},
		Logs:          &LogConfig{},
	}
}

// LoadConfig loads configuration from a given path and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("Error: Config file not found at %s. Program cannot run without a config file", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the logical consistency and completeness of the configuration.
func (c *Config) Validate() error {
	if c.Risk == nil {
		return fmt.Errorf("Critical config missing: 'risk' configuration block must be provided")
	}
	if c.Risk.RulesFile == "" {
		return fmt.Errorf("Critical config missing: 'risk.rules_file' must be explicitly specified (e.g., 'config/risk_rules.yaml')")
	}
	if c.Risk.DefaultMaxDrawdownPercent <= 0 {
		return fmt.Errorf("Critical config missing: 'risk.default_max_drawdown_percent' must be positive")
	}
	if c.Risk.DefaultDailyDrawdownPercent <= 0 {
		return fmt.Errorf("Critical config missing: 'risk.default_daily_drawdown_percent' must be positive")
	}

	if c.Webhook == nil || c.Webhook.URL == "" {
		return fmt.Errorf("Critical config missing: 'webhook.url' must be explicitly specified")
	}
	if c.Webhook.TimeoutSeconds <= 0 {
		return fmt.Errorf("Critical config missing: 'webhook.timeout_seconds' must be positive")
	}

	if !c.UseSimulation {
		if c.Bridge == nil || c.Bridge.BaseURL == "" {
			return fmt.Errorf("Critical config missing: 'bridge.base_url' must be specified unless use_simulation is true")
		}
		if c.Bridge.TimeoutSeconds <= 0 {
			return fmt.Errorf("Critical config missing: 'bridge.timeout_seconds' must be positive")
		}
		if c.Store == nil || c.Store.BaseURL == "" {
			return fmt.Errorf("Critical config missing: 'store.base_url' must be specified unless use_simulation is true")
		}
		if c.Store.TimeoutSeconds <= 0 {
			return fmt.Errorf("Critical config missing: 'store.timeout_seconds' must be positive")
		}
	}

	if c.Normal == nil {
		return fmt.Errorf("Critical config missing: 'normal_config' configuration block must be provided")
	}
	if c.Normal.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("Critical config missing: 'normal_config.http_timeout_seconds' must be positive")
	}
	if c.Normal.MonitorIntervalMs <= 0 {
		return fmt.Errorf("Critical config missing: 'normal_config.monitor_interval_ms' must be positive")
	}
	if c.Normal.CacheRefreshSeconds <= 0 {
		return fmt.Errorf("Critical config missing: 'normal_config.cache_refresh_seconds' must be positive")
	}
	if c.Normal.HeartbeatIntervalMinutes <= 0 {
		return fmt.Errorf("Critical config missing: 'normal_config.heartbeat_interval_minutes' must be positive")
	}
	if c.Normal.LogDirectory == "" {
		return fmt.Errorf("Critical config missing: 'normal_config.log_directory' must be specified (e.g., 'logs')")
	}
	if c.Normal.StateDirectory == "" {
		return fmt.Errorf("Critical config missing: 'normal_config.state_directory' must be specified (e.g., 'state')")
	}

	if c.Logs == nil {
		return fmt.Errorf("Critical config missing: 'logs' configuration block must be provided")
	}
	if c.Logs.LogLevel == "" {
		return fmt.Errorf("Critical config missing: 'logs.log_level' must be specified (e.g., 'info', 'debug', 'warn', 'error')")
	}
	if c.Logs.MaxSizeMB <= 0 {
		return fmt.Errorf("Critical config missing: 'logs.max_size_mb' must be positive")
	}
	if c.Logs.MaxBackups <= 0 {
		return fmt.Errorf("Critical config missing: 'logs.max_backups' must be positive")
	}
	if c.Logs.MaxAgeDays <= 0 {
		return fmt.Errorf("Critical config missing: 'logs.max_age_days' must be positive")
	}

	return nil
}

// EnvConfig carries secrets that never live in the yaml file.
type EnvConfig struct {
	BridgeToken   string
	StoreKey      string
	WebhookSecret string
}

func LoadEnvConfig() *EnvConfig {
	return &EnvConfig{
		BridgeToken:   os.Getenv("BRIDGE_API_TOKEN"),
		StoreKey:      os.Getenv("STORE_API_KEY"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	}
}
