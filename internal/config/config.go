// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Extractor  ExtractorConfig  `mapstructure:"extractor" yaml:"extractor"`
	Reputation ReputationConfig `mapstructure:"reputation" yaml:"reputation"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig bounds the work done for a single analysis request.
type EngineConfig struct {
	// WorkerConcurrency caps the number of URLs scored by the classifier at once.
	WorkerConcurrency int           `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
	AnalysisTimeout   time.Duration `mapstructure:"analysis_timeout" yaml:"analysis_timeout"`
}

// ExtractorConfig configures URL extraction.
type ExtractorConfig struct {
	ExpandShorteners bool          `mapstructure:"expand_shorteners" yaml:"expand_shorteners"`
	ExpandTimeout    time.Duration `mapstructure:"expand_timeout" yaml:"expand_timeout"`
}

// ReputationConfig configures the reputation oracle client and its cache.
type ReputationConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey        string        `mapstructure:"api_key" yaml:"-"`
	ClientID      string        `mapstructure:"client_id" yaml:"client_id"`
	ClientVersion string        `mapstructure:"client_version" yaml:"client_version"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	// RateLimit is the sustained number of oracle calls per second; 0 disables pacing.
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int           `mapstructure:"burst" yaml:"burst"`
	Breaker   BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the oracle.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

// ClassifierConfig points at the pretrained model artifacts.
type ClassifierConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	ModelDir string `mapstructure:"model_dir" yaml:"model_dir"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxTextLength   int           `mapstructure:"max_text_length" yaml:"max_text_length"`
	MaxURLs         int           `mapstructure:"max_urls" yaml:"max_urls"`
}

// DatabaseConfig holds the database connection details for report history.
type DatabaseConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Migrate bool   `mapstructure:"migrate" yaml:"migrate"`
}

// ProxyConfig defines the configuration for an outbound proxy.
type ProxyConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// NetworkConfig tunes the outbound HTTP client.
type NetworkConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Proxy           ProxyConfig   `mapstructure:"proxy" yaml:"proxy"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "smishguard")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", 8)
	v.SetDefault("engine.analysis_timeout", "30s")

	// -- Extractor --
	v.SetDefault("extractor.expand_shorteners", false)
	v.SetDefault("extractor.expand_timeout", "5s")

	// -- Reputation --
	v.SetDefault("reputation.endpoint", "https://safebrowsing.googleapis.com/v4/threatMatches:find")
	v.SetDefault("reputation.client_id", "smishguard")
	v.SetDefault("reputation.client_version", "1.0.0")
	v.SetDefault("reputation.timeout", "10s")
	v.SetDefault("reputation.cache_ttl", "1h")
	v.SetDefault("reputation.rate_limit", 10.0)
	v.SetDefault("reputation.burst", 5)
	v.SetDefault("reputation.breaker.failure_threshold", 5)
	v.SetDefault("reputation.breaker.cooldown", "30s")

	// -- Classifier --
	v.SetDefault("classifier.enabled", true)
	v.SetDefault("classifier.model_dir", "~/.smishguard/models")

	// -- Server --
	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_text_length", 10000)
	v.SetDefault("server.max_urls", 100)

	// -- Database --
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrate", true)

	// -- Network --
	v.SetDefault("network.timeout", "30s")
	v.SetDefault("network.ignore_tls_errors", false)
	v.SetDefault("network.proxy.enabled", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("reputation.api_key", "SMISHGUARD_REPUTATION_API_KEY", "GOOGLE_SAFE_BROWSING_API_KEY")
	v.BindEnv("database.url", "SMISHGUARD_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Reputation.APIKey == "" {
		cfg.Reputation.APIKey = os.Getenv("GOOGLE_SAFE_BROWSING_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Engine.WorkerConcurrency <= 0 {
		return errors.New("engine.worker_concurrency must be a positive integer")
	}
	if c.Engine.AnalysisTimeout <= 0 {
		return errors.New("engine.analysis_timeout must be a positive duration")
	}
	if err := c.Reputation.Validate(); err != nil {
		return fmt.Errorf("reputation configuration invalid: %w", err)
	}
	if c.Server.MaxTextLength <= 0 {
		return errors.New("server.max_text_length must be a positive integer")
	}
	if c.Network.Proxy.Enabled && c.Network.Proxy.Address == "" {
		return errors.New("network.proxy.address is required when the proxy is enabled")
	}
	return nil
}

// Validate checks the reputation settings. A missing API key is not an error:
// the checker then reports every lookup as unavailable.
func (r *ReputationConfig) Validate() error {
	if r.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if r.Timeout <= 0 {
		return errors.New("timeout must be a positive duration")
	}
	if r.CacheTTL <= 0 {
		return errors.New("cache_ttl must be a positive duration")
	}
	if r.RateLimit < 0 {
		return errors.New("rate_limit cannot be negative")
	}
	if r.Breaker.FailureThreshold < 0 {
		return errors.New("breaker.failure_threshold cannot be negative")
	}
	return nil
}
