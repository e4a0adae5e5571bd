package config

import (
	"time"

	"github.com/swapsight/swapsight/store"
)

// Config is the full service configuration, loaded from a TOML file or
// from SWAPSIGHT_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server" mapstructure:"server"`
	Database  store.Config    `toml:"database" mapstructure:"database"`
	Tokens    TokensConfig    `toml:"tokens" mapstructure:"tokens"`
	Providers ProvidersConfig `toml:"providers" mapstructure:"providers"`
	Scheduler SchedulerConfig `toml:"scheduler" mapstructure:"scheduler"`
	Telemetry TelemetryConfig `toml:"telemetry" mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	RequestTimeout time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
}

type TokensConfig struct {
	// RegistrySource points at a token registry TOML file. Local paths and
	// remote go-getter URLs both work. Empty uses the built-in Polygon set.
	RegistrySource string `toml:"registry_source" mapstructure:"registry_source"`
}

// ProviderConfig tunes one upstream client. Zero values fall back to the
// client's own defaults.
type ProviderConfig struct {
	BaseURL        string        `toml:"base_url" mapstructure:"base_url"`
	ChainID        int           `toml:"chain_id" mapstructure:"chain_id"`
	RequestCeiling int           `toml:"request_ceiling" mapstructure:"request_ceiling"`
	RetryAttempts  int           `toml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `toml:"retry_delay" mapstructure:"retry_delay"`
	ProbeInterval  time.Duration `toml:"probe_interval" mapstructure:"probe_interval"`
	Timeout        time.Duration `toml:"timeout" mapstructure:"timeout"`

	// Order-session tuning, ignored by stateless providers.
	SessionBatchSize  int           `toml:"session_batch_size" mapstructure:"session_batch_size"`
	QuotePollAttempts int           `toml:"quote_poll_attempts" mapstructure:"quote_poll_attempts"`
	QuotePollWait     time.Duration `toml:"quote_poll_wait" mapstructure:"quote_poll_wait"`
}

type ProvidersConfig struct {
	OpenOcean ProviderConfig `toml:"openocean" mapstructure:"openocean"`
	Via       ProviderConfig `toml:"via" mapstructure:"via"`
}

type SchedulerConfig struct {
	// Enabled turns the daily background refresh on.
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
	// FetchHourUTC is the hour of day the refresh fires.
	FetchHourUTC int `toml:"fetch_hour_utc" mapstructure:"fetch_hour_utc"`
}

// TelemetryConfig mirrors the OpenTelemetry bootstrap options.
type TelemetryConfig struct {
	ServiceName    string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `toml:"service_version" mapstructure:"service_version"`
	Environment    string `toml:"environment" mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus" mapstructure:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics" mapstructure:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs" mapstructure:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs" mapstructure:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url" mapstructure:"otlp_logs_url"`

	InsecureOTLP bool `toml:"insecure_otlp" mapstructure:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode" mapstructure:"development_mode"`
}
