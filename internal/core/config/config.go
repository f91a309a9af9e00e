package config

import (
	"os"
	"time"

	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
	Extractor ExtractorConfig    `yaml:"extractor"`
	Cache     CacheConfig        `yaml:"cache"`
	Downloads DownloadConfig     `yaml:"downloads"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ExtractorConfig holds cross-cutting extraction backend settings. Tokens
// and cookies configured here are carried into every fallback strategy.
type ExtractorConfig struct {
	Binary        string `yaml:"binary"`
	Proxy         string `yaml:"proxy"`
	CookiesFile   string `yaml:"cookies_file"`
	POToken       string `yaml:"po_token"`
	VisitorData   string `yaml:"visitor_data"`
	SocketTimeout int    `yaml:"socket_timeout"`
	LimitRate     string `yaml:"limit_rate"` // e.g. "4M", empty = unthrottled
}

// CacheConfig holds metadata cache TTL policy.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`      // static content
	LiveTTL time.Duration `yaml:"live_ttl"` // live content, shorter since it is volatile
}

// DownloadConfig holds worker and retry settings for retrieval jobs.
type DownloadConfig struct {
	Dir          string        `yaml:"dir"`
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"` // per-attempt linear step
	Retention    time.Duration `yaml:"retention"`     // result store TTL
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// BaseOptions builds the shared backend configuration every strategy overlay
// is merged onto. PO token and visitor data live only here, so the merge
// semantics must preserve them across overlays.
func (c ExtractorConfig) BaseOptions() ytdlp.Options {
	ea := ytdlp.ExtractorArgs{
		"youtube": {
			"player_client": {"android", "web", "ios"},
		},
	}
	if c.POToken != "" {
		ea["youtube"]["po_token"] = []string{"web+" + c.POToken}
	}
	if c.VisitorData != "" {
		ea["youtube"]["visitor_data"] = []string{c.VisitorData}
	}

	opts := ytdlp.Options{
		ExtractorArgs:       ea,
		UserAgent:           defaultUserAgent,
		AcceptLanguage:      "en-US,en;q=0.9",
		SocketTimeout:       c.SocketTimeout,
		Retries:             5,
		FragmentRetries:     10,
		FileAccessRetries:   5,
		ConcurrentFragments: 4,
		Format:              "bestvideo+bestaudio/bestvideo/best",
		FormatSort:          []string{"res:1080", "ext:mp4:m4a", "codec:avc:m4a"},
		Proxy:               c.Proxy,
		LimitRate:           c.LimitRate,
	}

	// Cookie file: explicit setting first, then the conventional drop path.
	for _, candidate := range []string{c.CookiesFile, "/tmp/cookies.txt"} {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			opts.CookiesFile = candidate
			break
		}
	}

	return opts
}
