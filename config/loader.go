// Package config loads the service configuration from a TOML file or from
// SWAPSIGHT_* environment variables, with verification of the values the
// pipelines and server depend on.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/swapsight/swapsight/store"
)

// Load reads the config from the given path, or from the environment when
// the path is nil.
func Load(configPath *string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		// if no file expect envs
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func loadEnv(v *viper.Viper) (*Config, error) {
	// godot might fail if .env file is missing but
	// env can be applied through docker, systemd or other means, so skip error
	_ = godotenv.Load()
	v.SetEnvPrefix("SWAPSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded (env-only mode).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.port", "server.host", "server.allowed_origins",
		"server.rate_per_minute", "server.max_concurrent_requests",
		"server.request_timeout",
		"database.host", "database.port", "database.user",
		"database.password", "database.database", "database.ssl_mode",
		"database.ping_attempts", "database.ping_delay",
		"tokens.registry_source",
		"providers.openocean.base_url", "providers.openocean.chain_id",
		"providers.openocean.request_ceiling", "providers.openocean.retry_attempts",
		"providers.openocean.retry_delay", "providers.openocean.probe_interval",
		"providers.openocean.timeout",
		"providers.via.base_url", "providers.via.chain_id",
		"providers.via.request_ceiling", "providers.via.retry_attempts",
		"providers.via.retry_delay", "providers.via.probe_interval",
		"providers.via.timeout", "providers.via.session_batch_size",
		"providers.via.quote_poll_attempts", "providers.via.quote_poll_wait",
		"scheduler.enabled", "scheduler.fetch_hour_utc",
		"telemetry.service_name", "telemetry.service_version", "telemetry.environment",
		"telemetry.enable_tracing", "telemetry.use_otlp_traces", "telemetry.otlp_traces_url",
		"telemetry.enable_metrics", "telemetry.use_prometheus",
		"telemetry.use_otlp_metrics", "telemetry.otlp_metrics_url",
		"telemetry.enable_logs", "telemetry.use_otlp_logs", "telemetry.otlp_logs_url",
		"telemetry.insecure_otlp", "telemetry.development_mode",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*Config, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_per_minute", 120)
	v.SetDefault("server.max_concurrent_requests", 64)
	v.SetDefault("server.request_timeout", time.Minute)

	db := store.DefaultConfig()
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.database", db.Database)
	v.SetDefault("database.ssl_mode", db.SSLMode)
	v.SetDefault("database.ping_attempts", db.PingAttempts)
	v.SetDefault("database.ping_delay", db.PingDelay)

	v.SetDefault("providers.openocean.base_url", "https://open-api.openocean.finance")
	v.SetDefault("providers.via.base_url", "https://router-api.via.exchange")
	for _, p := range []string{"openocean", "via"} {
		v.SetDefault("providers."+p+".chain_id", 137)
		v.SetDefault("providers."+p+".request_ceiling", 800)
		v.SetDefault("providers."+p+".retry_attempts", 4)
		v.SetDefault("providers."+p+".retry_delay", 2*time.Second)
		v.SetDefault("providers."+p+".probe_interval", time.Second)
		v.SetDefault("providers."+p+".timeout", 15*time.Second)
	}
	v.SetDefault("providers.via.session_batch_size", 25)
	v.SetDefault("providers.via.quote_poll_attempts", 5)
	v.SetDefault("providers.via.quote_poll_wait", 2*time.Second)
	v.SetDefault("providers.via.timeout", 20*time.Second)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.fetch_hour_utc", 3)

	v.SetDefault("telemetry.service_name", "swapsight")
	v.SetDefault("telemetry.service_version", "dev")
	v.SetDefault("telemetry.environment", "LOCAL")
	v.SetDefault("telemetry.use_prometheus", true)
	v.SetDefault("telemetry.development_mode", true)
}

func verifyConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if len(config.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("server.allowed_origins is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	if config.Providers.OpenOcean.BaseURL == "" {
		return fmt.Errorf("providers.openocean.base_url is required")
	}
	if config.Providers.Via.BaseURL == "" {
		return fmt.Errorf("providers.via.base_url is required")
	}

	if config.Scheduler.FetchHourUTC < 0 || config.Scheduler.FetchHourUTC > 23 {
		return fmt.Errorf("scheduler.fetch_hour_utc must be between 0 and 23")
	}

	return nil
}
