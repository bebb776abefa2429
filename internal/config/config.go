package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Credential Precedence Order:
// 1. The source selected by auth.source (vault, keyring, file, env, static)
// 2. Config File values
// 3. Environment Variables (JOBPILOT_AUTH_TOKEN, etc.)
// 4. Default values - Lowest priority
type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Apply         ApplyConfig         `mapstructure:"apply"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BackendConfig holds the remote API connection settings
type BackendConfig struct {
	BaseURL          string               `mapstructure:"baseURL"`     // e.g. https://jobs.example.com/api
	FilesOrigin      string               `mapstructure:"filesOrigin"` // origin serving generated documents
	Timeout          time.Duration        `mapstructure:"timeout"`
	UserAgent        string               `mapstructure:"userAgent"`
	MaxResponseBytes int64                `mapstructure:"maxResponseBytes"`
	RateLimit        RateLimitConfig      `mapstructure:"rateLimit"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	TLS              TLSConfig            `mapstructure:"tls"`
}

// RateLimitConfig holds client-side request pacing
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// TLSConfig holds client TLS configuration for the backend connection
type TLSConfig struct {
	Mode               string `mapstructure:"mode"`     // "system", "custom", "mutual"
	CAFile             string `mapstructure:"caFile"`   // extra CA bundle (PEM), required for custom mode
	CertFile           string `mapstructure:"certFile"` // client certificate (PEM), mutual mode
	KeyFile            string `mapstructure:"keyFile"`  // client private key (PEM), mutual mode
	MinVersion         string `mapstructure:"minVersion"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
	ServerName         string `mapstructure:"serverName"`
}

// AuthConfig selects where the bearer credential comes from
type AuthConfig struct {
	Source    string        `mapstructure:"source"` // static, env, file, keyring, vault
	Token     string        `mapstructure:"token"`
	TokenEnv  string        `mapstructure:"tokenEnv"`
	TokenFile string        `mapstructure:"tokenFile"`
	Keyring   KeyringConfig `mapstructure:"keyring"`
	VaultPath string        `mapstructure:"vaultPath"`
	VaultKey  string        `mapstructure:"vaultKey"`
}

// KeyringConfig identifies the OS keyring entry holding the token
type KeyringConfig struct {
	Service string `mapstructure:"service"`
	Account string `mapstructure:"account"`
}

// ApplyConfig holds the polling parameters of the generation orchestrator
type ApplyConfig struct {
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	InitialInterval time.Duration `mapstructure:"initialInterval"`
	MaxInterval     time.Duration `mapstructure:"maxInterval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	NotFoundDelay   time.Duration `mapstructure:"notFoundDelay"`
	CancelTimeout   time.Duration `mapstructure:"cancelTimeout"`
	DefaultTemplate string        `mapstructure:"defaultTemplate"`
	DownloadDir     string        `mapstructure:"downloadDir"`
}

// PipelineConfig holds CV upload and matching settings
type PipelineConfig struct {
	MaxFileSize      int64         `mapstructure:"maxFileSize"`
	AllowedTypes     []string      `mapstructure:"allowedTypes"`
	AutoAdvanceDelay time.Duration `mapstructure:"autoAdvanceDelay"`
	AutoMatch        bool          `mapstructure:"autoMatch"`
	Location         string        `mapstructure:"location"`
	MaxResults       int           `mapstructure:"maxResults"`
	UseDemo          bool          `mapstructure:"useDemo"`
	MinScore         float64       `mapstructure:"minScore"`
	WatchDebounce    time.Duration `mapstructure:"watchDebounce"`
}

// AppConfig holds general application settings
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	DataDir          string   `mapstructure:"dataDir"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	ConsoleOutput   bool              `mapstructure:"consoleOutput"`
	SampleRate      float64           `mapstructure:"sampleRate"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	CustomMetrics   CustomMetricsConf `mapstructure:"customMetrics"`
}

// MetricsConfig holds metric collection settings
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console exporter settings
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus exporter settings
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter settings
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// CustomMetricsConf toggles the application metric groups
type CustomMetricsConf struct {
	Apply    MetricToggle `mapstructure:"apply"`
	Gateway  MetricToggle `mapstructure:"gateway"`
	Pipeline MetricToggle `mapstructure:"pipeline"`
}

// MetricToggle enables a metric group
type MetricToggle struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, searchFiles bool) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("JOBPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'JOBPILOT'")

	configFileUsed := ""
	if searchFiles {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/jobpilot/")
		v.AddConfigPath("$HOME/.jobpilot")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Println("[CONFIG] No config file found, using defaults and environment variables")
		} else {
			configFileUsed = v.ConfigFileUsed()
			log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required (set JOBPILOT_BACKEND_BASEURL environment variable)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base URL: %s", c.Backend.BaseURL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if err := c.validateApply(); err != nil {
		return err
	}

	if c.Pipeline.MaxFileSize <= 0 {
		return fmt.Errorf("pipeline maxFileSize must be positive")
	}
	if c.Pipeline.MinScore < 0 || c.Pipeline.MinScore > 100 {
		return fmt.Errorf("pipeline minScore must be within [0,100], got %v", c.Pipeline.MinScore)
	}

	switch c.Auth.Source {
	case "static", "env", "file", "keyring", "vault":
	default:
		return fmt.Errorf("invalid auth source: %s (must be 'static', 'env', 'file', 'keyring', or 'vault')", c.Auth.Source)
	}
	if c.Auth.Source == "vault" && !c.Vault.Enabled {
		return fmt.Errorf("auth source 'vault' requires vault.enabled")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateApply() error {
	a := c.Apply
	if a.MaxAttempts <= 0 {
		return fmt.Errorf("apply maxAttempts must be positive")
	}
	if a.InitialInterval <= 0 || a.MaxInterval <= 0 || a.NotFoundDelay <= 0 {
		return fmt.Errorf("apply intervals must be positive")
	}
	if a.MaxInterval < a.InitialInterval {
		return fmt.Errorf("apply maxInterval (%s) must not be below initialInterval (%s)", a.MaxInterval, a.InitialInterval)
	}
	if a.Multiplier < 1 {
		return fmt.Errorf("apply multiplier must be >= 1, got %v", a.Multiplier)
	}
	return nil
}
