package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.Extractor.SocketTimeout == 0 {
		cfg.Extractor.SocketTimeout = 30
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 30 * time.Minute
	}
	if cfg.Cache.LiveTTL == 0 {
		cfg.Cache.LiveTTL = 5 * time.Minute
	}
	if cfg.Downloads.Dir == "" {
		cfg.Downloads.Dir = "/downloads"
	}
	if cfg.Downloads.Workers == 0 {
		cfg.Downloads.Workers = 2
	}
	if cfg.Downloads.MaxAttempts == 0 {
		cfg.Downloads.MaxAttempts = 3
	}
	if cfg.Downloads.RetryBackoff == 0 {
		cfg.Downloads.RetryBackoff = 30 * time.Second
	}
	if cfg.Downloads.Retention == 0 {
		cfg.Downloads.Retention = 24 * time.Hour
	}
}
