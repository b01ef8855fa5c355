package config

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of the application configuration.
//
// API key precedence, highest first: Vault (when configured), config file,
// environment variables (ATS_AI_APIKEY and friends), defaults.
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	Client        ClientConfig        `mapstructure:"client"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig carries the model settings. The top-level fields are the
// fallbacks; the Analyze block overrides them per operation.
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	Analyze OperationAIConfig `mapstructure:"analyze"`
}

// CircuitBreakerConfig tunes the breaker guarding model calls.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Probes allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // Closed-state count reset interval
	Timeout          time.Duration `mapstructure:"timeout"`          // Open-state cooldown before half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Samples required before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio that trips, 0.0-1.0
}

// OperationAIConfig overrides the global AI settings for one operation.
// Pointer fields distinguish "unset" from an explicit zero.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig lets deployments replace the built-in prompts.
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts are the model instructions, inline or via file: references.
type SystemPrompts struct {
	AnalyzeResume     string `mapstructure:"analyzeResume"`
	AnalyzeResumeFile string `mapstructure:"analyzeResumeFile"`
}

// UserPrompts are the per-request templates, inline or via file: references.
type UserPrompts struct {
	AnalyzeResume     string `mapstructure:"analyzeResume"`
	AnalyzeResumeFile string `mapstructure:"analyzeResumeFile"`
}

// ServerConfig carries the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// Accepted X-API-Key values; empty list disables authentication
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// ClientConfig points the terminal submit client at an analysis server.
type ClientConfig struct {
	ServerURL string `mapstructure:"serverURL"`
	APIKey    string `mapstructure:"apiKey"` // Sent as X-API-Key when the server requires auth
}

// TLSConfig selects the TLS mode and its certificate material. Inline
// content fields take precedence over file paths, which is how Vault-
// sourced certificates arrive.
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server" or "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"` // Client CA bundle, required for mutual mode

	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"`       // "1.2" or "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`     // Optional allow-list by name
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request" or "verify"

	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"` // Dev only
	ServerName         string `mapstructure:"serverName"`

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig governs live certificate rotation.
type AutoReloadConfig struct {
	Enabled           bool               `mapstructure:"enabled"`
	CheckInterval     time.Duration      `mapstructure:"checkInterval"`
	PreemptiveRenewal time.Duration      `mapstructure:"preemptiveRenewal"` // Reload this long before expiry
	MaxRetries        int                `mapstructure:"maxRetries"`
	RetryDelay        time.Duration      `mapstructure:"retryDelay"`
	FileWatcher       FileWatcherConfig  `mapstructure:"fileWatcher"`
	VaultWatcher      VaultWatcherConfig `mapstructure:"vaultWatcher"`
}

// FileWatcherConfig tunes fsnotify-based certificate watching.
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// VaultWatcherConfig tunes polling of the Vault TLS secret and token
// lease renewal.
type VaultWatcherConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PollInterval   time.Duration `mapstructure:"pollInterval"`
	AutoRenew      bool          `mapstructure:"autoRenew"`
	RenewThreshold time.Duration `mapstructure:"renewThreshold"` // Renew when token TTL drops below this
	SecretPath     string        `mapstructure:"secretPath"`
}

// RateLimitConfig tunes the per-key token buckets.
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// AppConfig holds settings shared by every entry point.
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`  // Upload ceiling in bytes
	MaxTextChars     int      `mapstructure:"maxTextChars"` // Extracted text forwarded to the model
}

// ObservabilityConfig wires tracing, metrics and their exporters.
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig switches individual instrument families on and off.
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackModelInfo  bool `mapstructure:"trackModelInfo"`
}

type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
}

type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertExpiry bool `mapstructure:"trackCertExpiry"`
}

type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig assembles the configuration from defaults, an optional YAML
// file and ATS_-prefixed environment variables, then resolves prompt
// files and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/ats/")
	v.AddConfigPath("$HOME/.ats")
	v.AddConfigPath(".")

	fileUsed := ""
	switch err := v.ReadInConfig(); {
	case err == nil:
		fileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", fileUsed)
	case errors.As(err, new(viper.ConfigFileNotFoundError)):
		log.Println("[CONFIG] No config file found, relying on defaults and environment")
	default:
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Overrides viper cannot express: Vault secrets and direct env keys.
	cfg.applyFallbacks()
	cfg.logConfigurationSources(fileUsed)

	if err := cfg.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("failed to validate prompt files: %w", err)
	}
	if err := cfg.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load prompt files: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the loaded configuration. The AI API key is not required
// here: client-only commands run without one, and the serve and analyze
// paths fail fast through RequireAIKey when a key is actually needed.
func (c *Config) Validate() error {
	switch {
	case c.AI.Timeout <= 0:
		return fmt.Errorf("AI timeout must be positive, got %s", c.AI.Timeout)
	case c.Server.Port == "":
		return fmt.Errorf("server port is not set")
	case c.Client.ServerURL == "":
		return fmt.Errorf("client server URL is not set")
	case c.App.MaxFileSize <= 0:
		return fmt.Errorf("max file size must be positive")
	case !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat):
		return fmt.Errorf("default format %q is not among the supported formats", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS: %w", err)
	}
	return nil
}

// RequireAIKey verifies that an AI API key is configured for the analyze
// operation. Called by entry points that will actually talk to the model.
func (c *Config) RequireAIKey() error {
	if c.GetAnalyzeConfig().APIKey == "" {
		return fmt.Errorf("AI API key is required (set ATS_AI_APIKEY environment variable)")
	}
	return nil
}
