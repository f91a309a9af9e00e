package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_REDIS_URL", "redis://cache.internal:6379/2")
	defer os.Unsetenv("TEST_REDIS_URL")

	path := writeConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Redis.URL != "redis://cache.internal:6379/2" {
		t.Errorf("Redis.URL = %s, want substituted env value", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server: {}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %s", cfg.Redis.URL)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Cache.TTL = %v, want 30m", cfg.Cache.TTL)
	}
	if cfg.Cache.LiveTTL != 5*time.Minute {
		t.Errorf("Cache.LiveTTL = %v, want 5m", cfg.Cache.LiveTTL)
	}
	if cfg.Downloads.Dir != "/downloads" {
		t.Errorf("Downloads.Dir = %s", cfg.Downloads.Dir)
	}
	if cfg.Downloads.Workers != 2 {
		t.Errorf("Downloads.Workers = %d, want 2", cfg.Downloads.Workers)
	}
	if cfg.Downloads.MaxAttempts != 3 {
		t.Errorf("Downloads.MaxAttempts = %d, want 3", cfg.Downloads.MaxAttempts)
	}
	if cfg.Downloads.RetryBackoff != 30*time.Second {
		t.Errorf("Downloads.RetryBackoff = %v, want 30s", cfg.Downloads.RetryBackoff)
	}
	if cfg.Downloads.Retention != 24*time.Hour {
		t.Errorf("Downloads.Retention = %v, want 24h", cfg.Downloads.Retention)
	}
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
downloads:
  workers: 8
  retry_backoff: 10s
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Downloads.Workers != 8 {
		t.Errorf("Downloads.Workers = %d, want 8", cfg.Downloads.Workers)
	}
	if cfg.Downloads.RetryBackoff != 10*time.Second {
		t.Errorf("Downloads.RetryBackoff = %v, want 10s", cfg.Downloads.RetryBackoff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load on a missing file succeeded, want error")
	}
}

func TestBaseOptions_POToken(t *testing.T) {
	ec := ExtractorConfig{POToken: "abc123", VisitorData: "vd", SocketTimeout: 30}
	opts := ec.BaseOptions()

	yt := opts.ExtractorArgs["youtube"]
	if len(yt["player_client"]) != 3 {
		t.Errorf("player_client = %v, want three clients", yt["player_client"])
	}
	if got := yt["po_token"]; len(got) != 1 || got[0] != "web+abc123" {
		t.Errorf("po_token = %v, want [web+abc123]", got)
	}
	if got := yt["visitor_data"]; len(got) != 1 || got[0] != "vd" {
		t.Errorf("visitor_data = %v, want [vd]", got)
	}
}

func TestBaseOptions_LimitRate(t *testing.T) {
	opts := ExtractorConfig{LimitRate: "4M"}.BaseOptions()
	if opts.LimitRate != "4M" {
		t.Errorf("LimitRate = %q, want 4M", opts.LimitRate)
	}
	if opts = (ExtractorConfig{}).BaseOptions(); opts.LimitRate != "" {
		t.Errorf("LimitRate = %q, want empty without configuration", opts.LimitRate)
	}
}

func TestBaseOptions_NoToken(t *testing.T) {
	opts := ExtractorConfig{}.BaseOptions()
	if _, ok := opts.ExtractorArgs["youtube"]["po_token"]; ok {
		t.Error("po_token present without configuration")
	}
	if opts.Format == "" {
		t.Error("Format is empty, want a default selector")
	}
}
