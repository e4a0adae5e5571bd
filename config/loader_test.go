package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/swapsight/swapsight/config"
)

// helper to reset env vars with SWAPSIGHT_ prefix between tests
func unsetSwapsightEnv() {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "SWAPSIGHT_") {
			if idx := strings.Index(e, "="); idx != -1 {
				_ = os.Unsetenv(e[:idx])
			}
		}
	}
}

func TestLoad_FromEnv_Defaults(t *testing.T) {
	unsetSwapsightEnv()
	// Run in empty dir so godotenv.Load() inside the loader doesn't pick up a .env file
	origWd, _ := os.Getwd()
	defer os.Chdir(origWd)
	_ = os.Chdir(t.TempDir())

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Providers.OpenOcean.RequestCeiling != 800 {
		t.Errorf("unexpected request ceiling: %d", cfg.Providers.OpenOcean.RequestCeiling)
	}
	if cfg.Providers.Via.SessionBatchSize != 25 {
		t.Errorf("unexpected session batch size: %d", cfg.Providers.Via.SessionBatchSize)
	}
	if cfg.Providers.Via.RetryDelay != 2*time.Second {
		t.Errorf("unexpected retry delay: %v", cfg.Providers.Via.RetryDelay)
	}
}

func TestLoad_FromEnv_Overrides(t *testing.T) {
	unsetSwapsightEnv()
	_ = os.Setenv("SWAPSIGHT_SERVER_PORT", "9191")
	_ = os.Setenv("SWAPSIGHT_DATABASE_HOST", "db.internal")
	_ = os.Setenv("SWAPSIGHT_PROVIDERS_VIA_BASE_URL", "https://via.test")
	_ = os.Setenv("SWAPSIGHT_SCHEDULER_FETCH_HOUR_UTC", "5")
	defer unsetSwapsightEnv()

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("unexpected database host: %s", cfg.Database.Host)
	}
	if cfg.Providers.Via.BaseURL != "https://via.test" {
		t.Errorf("unexpected via base url: %s", cfg.Providers.Via.BaseURL)
	}
	if cfg.Scheduler.FetchHourUTC != 5 {
		t.Errorf("unexpected fetch hour: %d", cfg.Scheduler.FetchHourUTC)
	}
}

func TestLoad_FromEnv_FailVerification(t *testing.T) {
	unsetSwapsightEnv()
	_ = os.Setenv("SWAPSIGHT_SERVER_PORT", "0")
	defer unsetSwapsightEnv()

	_, err := Load(nil)
	if err == nil {
		t.Fatalf("expected error due to invalid port, got nil")
	}
}

func TestLoad_FromFile_Success(t *testing.T) {
	unsetSwapsightEnv()

	dir := t.TempDir()
	path := filepath.Join(dir, "swapsight.toml")
	content := `
[server]
port = 9090
host = "127.0.0.1"
allowed_origins = ["https://example.com"]

[database]
host = "pg.internal"
database = "swapsight"

[providers.openocean]
base_url = "https://openocean.test"
probe_interval = "500ms"

[providers.via]
base_url = "https://via.test"
session_batch_size = 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing temp config: %v", err)
	}

	cfgPath := path
	cfg, err := Load(&cfgPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("unexpected server values: %+v", cfg.Server)
	}
	if cfg.Database.Host != "pg.internal" {
		t.Errorf("unexpected database host: %s", cfg.Database.Host)
	}
	if cfg.Providers.OpenOcean.ProbeInterval != 500*time.Millisecond {
		t.Errorf("unexpected probe interval: %v", cfg.Providers.OpenOcean.ProbeInterval)
	}
	if cfg.Providers.Via.SessionBatchSize != 10 {
		t.Errorf("unexpected session batch size: %d", cfg.Providers.Via.SessionBatchSize)
	}
	// untouched sections keep their defaults
	if cfg.Providers.Via.QuotePollAttempts != 5 {
		t.Errorf("unexpected quote poll attempts: %d", cfg.Providers.Via.QuotePollAttempts)
	}
}

func TestLoad_FromFile_WrongExtension(t *testing.T) {
	unsetSwapsightEnv()
	p := "config.yaml"
	_, err := Load(&p)
	if err == nil {
		t.Fatalf("expected error for non-toml file")
	}
}

func TestLoad_FromFile_MissingRequired(t *testing.T) {
	unsetSwapsightEnv()

	dir := t.TempDir()
	path := filepath.Join(dir, "swapsight.toml")
	content := `
[server]
port = 9090
host = ""
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing temp config: %v", err)
	}

	cfgPath := path
	_, err := Load(&cfgPath)
	if err == nil {
		t.Fatalf("expected error due to empty host, got nil")
	}
}
