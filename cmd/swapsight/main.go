package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/swapsight/swapsight/config"
	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pipeline"
	"github.com/swapsight/swapsight/providers/openocean"
	"github.com/swapsight/swapsight/providers/via"
	"github.com/swapsight/swapsight/server"
	"github.com/swapsight/swapsight/store"
	"github.com/swapsight/swapsight/tokens"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the library packages
	server.SetLogger(log)
	pipeline.SetLogger(log)
	store.SetLogger(log)
	openocean.SetLogger(log)
	via.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "config file (toml); empty reads SWAPSIGHT_* env vars")
	flag.Parse()

	var cfgArg *string
	if *configPath != "" {
		cfgArg = configPath
	}

	log.Info().
		Str("config", *configPath).
		Msg("Starting SwapSight")

	cfg, err := config.Load(cfgArg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Token registry
	registry, err := loadRegistry(cfg.Tokens.RegistrySource)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load token registry")
	}
	log.Info().Int("count", registry.Len()).Msg("Loaded token registry")

	// Database
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap database schema")
	}
	if err := db.SeedTokens(ctx, registry.List()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed token registry")
	}

	// Provider clients
	clients := cfg.BuildClients()

	// Pipelines
	runner := pipeline.NewRunner(
		pipeline.NewRouteFetch(db, db, clients),
		pipeline.NewSlippageFetch(db, db, db, db, clients),
	)

	// Daily refresh scheduler
	var scheduler *pipeline.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = pipeline.NewScheduler(runner, models.AllProviders(), cfg.Scheduler.FetchHourUTC)
		scheduler.Start(ctx)
		log.Info().Int("hour_utc", cfg.Scheduler.FetchHourUTC).Msg("Daily refresh scheduler started")
	}

	// API server
	srv, err := server.NewServer(ctx, buildServerConfig(cfg), db, runner)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API server")
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if scheduler != nil {
		scheduler.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// loadRegistry resolves the token registry source: built-in defaults, a
// local file, or anything go-getter can fetch.
func loadRegistry(source string) (*tokens.Registry, error) {
	switch {
	case source == "":
		return tokens.Default(), nil
	case strings.Contains(source, "://"):
		dst := filepath.Join(os.TempDir(), "swapsight-tokens.toml")
		return tokens.LoadRemote(source, dst)
	default:
		return tokens.LoadFile(source)
	}
}

// buildServerConfig converts the loaded config to server.ServerConfig
func buildServerConfig(cfg *config.Config) *server.ServerConfig {
	serverConfig := &server.ServerConfig{
		Address:        cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		EnableMetrics:  cfg.Telemetry.UsePrometheus,
		RequestTimeout: cfg.Server.RequestTimeout,
	}

	// Set rate limiting if configured
	if cfg.Server.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.Server.RatePerMinute
	}
	if cfg.Server.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.Server.MaxConcurrentRequests
	}

	// Set OpenTelemetry configuration if any telemetry is enabled
	t := cfg.Telemetry
	if t.EnableTracing || t.EnableMetrics || t.EnableLogs || t.UsePrometheus {
		serverConfig.OTelConfig = &server.OTelConfig{
			ServiceName:     defaultString(t.ServiceName, "swapsight"),
			ServiceVersion:  defaultString(t.ServiceVersion, "1.0.0"),
			Environment:     defaultString(t.Environment, "development"),
			EnableTracing:   t.EnableTracing,
			UseOTLPTraces:   t.UseOTLPTraces,
			OTLPTracesURL:   t.OTLPTracesURL,
			EnableMetrics:   t.EnableMetrics,
			UsePrometheus:   t.UsePrometheus,
			UseOTLPMetrics:  t.UseOTLPMetrics,
			OTLPMetricsURL:  t.OTLPMetricsURL,
			EnableLogs:      t.EnableLogs,
			UseOTLPLogs:     t.UseOTLPLogs,
			OTLPLogsURL:     t.OTLPLogsURL,
			InsecureOTLP:    t.InsecureOTLP,
			DevelopmentMode: t.DevelopmentMode,
		}
	}

	return serverConfig
}

// defaultString returns the default value if s is empty
func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
