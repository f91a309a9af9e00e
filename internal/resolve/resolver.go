// Package resolve implements cache-aside metadata resolution with tiered
// extraction fallback.
package resolve

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/faults"
	"github.com/vietddude/fetcher/internal/format"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
	"github.com/vietddude/fetcher/internal/metrics"
)

// Extractor is the extraction backend contract the resolver depends on.
type Extractor interface {
	Extract(ctx context.Context, url string, opts ytdlp.Options) (*ytdlp.Info, error)
}

// Cache is the TTL-keyed store contract. Cache failures must degrade to
// miss behavior, never abort a resolution.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Strategy is one extraction configuration variant, tried in sequence.
type Strategy struct {
	Name    string
	Overlay ytdlp.Options
}

// DefaultStrategies returns the fallback order: the broad multi-client pass
// first, then progressively narrower single-client passes.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "default"},
		{Name: "web-only", Overlay: ytdlp.Options{
			ExtractorArgs: ytdlp.ExtractorArgs{"youtube": {"player_client": {"web"}}},
		}},
		{Name: "ios-only", Overlay: ytdlp.Options{
			ExtractorArgs: ytdlp.ExtractorArgs{"youtube": {"player_client": {"ios"}}},
		}},
	}
}

// Config holds resolver tuning.
type Config struct {
	TTL     time.Duration // cache TTL for static content
	LiveTTL time.Duration // cache TTL for live content
}

// Resolver orchestrates cache lookup, tiered extraction and cache
// population. Concurrent resolutions of the same key are not coalesced: each
// caller runs its own cache check and may redundantly extract on a cold
// cache. That keeps the hot path lock-free at the cost of some duplicate
// backend load.
type Resolver struct {
	backend    Extractor
	cache      Cache
	base       ytdlp.Options
	strategies []Strategy
	cfg        Config
	log        *slog.Logger
}

// NewResolver creates a resolver. base is the shared backend configuration
// every strategy overlay merges onto.
func NewResolver(backend Extractor, cache Cache, base ytdlp.Options, strategies []Strategy, cfg Config) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.LiveTTL == 0 {
		cfg.LiveTTL = 5 * time.Minute
	}
	return &Resolver{
		backend:    backend,
		cache:      cache,
		base:       base,
		strategies: strategies,
		cfg:        cfg,
		log:        slog.Default().With("component", "resolve"),
	}
}

// CacheKey derives the stable cache key for a source URL: the canonical
// content identifier when it parses, otherwise an md5 of the raw URL so
// every process computes the same key for the same input.
func CacheKey(url string) string {
	if id, ok := domain.ExtractVideoID(url); ok {
		return "meta:" + id
	}
	sum := md5.Sum([]byte(url))
	return "meta:url:" + hex.EncodeToString(sum[:])
}

// Resolve returns the metadata record for a source URL, from cache when
// fresh, otherwise by running the fallback strategies in order. It fails
// with a classified error once every strategy is exhausted.
func (r *Resolver) Resolve(ctx context.Context, url string) (*domain.Metadata, error) {
	key := CacheKey(url)

	if cached, ok := r.cacheGet(ctx, key); ok {
		return cached, nil
	}

	var last *faults.Classified
	for _, s := range r.strategies {
		opts := r.base.Merge(s.Overlay)
		info, err := r.backend.Extract(ctx, url, opts)
		if err == nil && info == nil {
			err = errors.New("extractor returned no info")
		}
		if err != nil {
			last = faults.Classify(err)
			metrics.ExtractionAttempts.WithLabelValues(s.Name, "failure").Inc()
			r.log.Warn("extraction attempt failed",
				"strategy", s.Name, "category", last.Category, "error", err)
			continue
		}

		metrics.ExtractionAttempts.WithLabelValues(s.Name, "success").Inc()
		md := normalize(info)
		r.cacheSet(ctx, key, md)
		return md, nil
	}

	if last == nil {
		last = faults.ClassifyText("no extraction strategies configured")
	}
	return nil, last
}

func (r *Resolver) cacheGet(ctx context.Context, key string) (*domain.Metadata, bool) {
	raw, found, err := r.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		r.log.Warn("cache GET error", "key", key, "error", err)
		return nil, false
	}
	if !found {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}

	var md domain.Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		r.log.Warn("cache entry corrupt, ignoring", "key", key, "error", err)
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &md, true
}

func (r *Resolver) cacheSet(ctx context.Context, key string, md *domain.Metadata) {
	ttl := r.cfg.TTL
	if md.IsLive {
		ttl = r.cfg.LiveTTL
	}
	raw, err := json.Marshal(md)
	if err != nil {
		r.log.Warn("cache marshal error", "key", key, "error", err)
		return
	}
	if err := r.cache.Set(ctx, key, raw, ttl); err != nil {
		r.log.Warn("cache SET error", "key", key, "error", err)
	}
}

// normalize shapes a raw backend record into the domain form. Formats go
// through the per-record shaping; HLS manifest URLs are collected as a
// deduplicated, sorted set.
func normalize(info *ytdlp.Info) *domain.Metadata {
	formats := make([]domain.Format, 0, len(info.Formats))
	m3u8Set := make(map[string]struct{})
	for _, raw := range info.Formats {
		f := format.Normalize(raw)
		formats = append(formats, f)
		if f.IsHLS && f.URL != "" {
			m3u8Set[f.URL] = struct{}{}
		}
	}
	m3u8 := make([]string, 0, len(m3u8Set))
	for u := range m3u8Set {
		m3u8 = append(m3u8, u)
	}
	sort.Strings(m3u8)

	thumbs := make([]domain.Thumbnail, 0, len(info.Thumbnails))
	for _, t := range info.Thumbnails {
		thumbs = append(thumbs, domain.Thumbnail{ID: t.ID, URL: t.URL, Width: t.Width, Height: t.Height})
	}
	chapters := make([]domain.Chapter, 0, len(info.Chapters))
	for _, c := range info.Chapters {
		chapters = append(chapters, domain.Chapter{Title: c.Title, StartSec: c.StartTime, EndSec: c.EndTime})
	}

	return &domain.Metadata{
		ID:                   info.ID,
		Title:                info.Title,
		Uploader:             info.Uploader,
		UploaderID:           info.UploaderID,
		ChannelID:            info.ChannelID,
		ChannelURL:           info.ChannelURL,
		ChannelFollowerCount: info.ChannelFollowerCount,
		ChannelVerified:      info.ChannelIsVerified,
		UploaderAvatarURL:    info.UploaderAvatarURL,
		Duration:             info.Duration,
		DurationString:       info.DurationString,
		ViewCount:            info.ViewCount,
		LikeCount:            info.LikeCount,
		CommentCount:         info.CommentCount,
		AgeLimit:             info.AgeLimit,
		Availability:         info.Availability,
		Description:          info.Description,
		Thumbnail:            info.Thumbnail,
		Thumbnails:           thumbs,
		UploadDate:           info.UploadDate,
		ReleaseTimestamp:     info.ReleaseTimestamp,
		Tags:                 info.Tags,
		Categories:           info.Categories,
		Chapters:             chapters,
		IsLive:               info.IsLive,
		WasLive:              info.WasLive,
		Formats:              formats,
		M3U8URLs:             m3u8,
		DashManifestURL:      info.DashManifestURL,
	}
}
