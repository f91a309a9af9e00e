package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/faults"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
)

type fakeExtractor struct {
	calls   []ytdlp.Options
	results []func() (*ytdlp.Info, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, url string, opts ytdlp.Options) (*ytdlp.Info, error) {
	f.calls = append(f.calls, opts)
	if len(f.results) == 0 {
		return nil, errors.New("no scripted result")
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next()
}

func succeed(id string) func() (*ytdlp.Info, error) {
	return func() (*ytdlp.Info, error) {
		return &ytdlp.Info{ID: id, Title: "t"}, nil
	}
}

func fail(msg string) func() (*ytdlp.Info, error) {
	return func() (*ytdlp.Info, error) { return nil, errors.New(msg) }
}

type fakeCache struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = val
	c.ttls[key] = ttl
	return nil
}

func TestCacheKey(t *testing.T) {
	// Different URL shapes for the same content share one key.
	k1 := CacheKey("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	k2 := CacheKey("https://youtu.be/dQw4w9WgXcQ")
	if k1 != k2 {
		t.Errorf("keys differ for the same content: %q vs %q", k1, k2)
	}
	if k1 != "meta:dQw4w9WgXcQ" {
		t.Errorf("key = %q, want meta:dQw4w9WgXcQ", k1)
	}

	// URLs with no recognizable id hash deterministically.
	k3 := CacheKey("https://example.com/whatever")
	k4 := CacheKey("https://example.com/whatever")
	if k3 != k4 {
		t.Errorf("hashed keys not deterministic: %q vs %q", k3, k4)
	}
	if k3 == CacheKey("https://example.com/other") {
		t.Error("distinct URLs share a hashed key")
	}
}

func TestResolve_CacheHitSkipsBackend(t *testing.T) {
	backend := &fakeExtractor{}
	cache := newFakeCache()
	md := domain.Metadata{ID: "dQw4w9WgXcQ", Title: "cached"}
	raw, _ := json.Marshal(md)
	cache.data["meta:dQw4w9WgXcQ"] = raw

	r := NewResolver(backend, cache, ytdlp.Options{}, nil, Config{})
	got, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Title != "cached" {
		t.Errorf("Title = %q, want cached", got.Title)
	}
	if len(backend.calls) != 0 {
		t.Errorf("backend called %d times on a cache hit, want 0", len(backend.calls))
	}
}

func TestResolve_FallbackOrder(t *testing.T) {
	backend := &fakeExtractor{results: []func() (*ytdlp.Info, error){
		fail("HTTP Error 403: Forbidden"),
		fail("HTTP Error 403: Forbidden"),
		succeed("dQw4w9WgXcQ"),
	}}
	cache := newFakeCache()
	base := ytdlp.Options{ExtractorArgs: ytdlp.ExtractorArgs{
		"youtube": {
			"player_client": {"android", "web", "ios"},
			"po_token":      {"web+tok"},
		},
	}}

	r := NewResolver(backend, cache, base, nil, Config{})
	got, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", got.ID)
	}
	if len(backend.calls) != 3 {
		t.Fatalf("backend called %d times, want 3", len(backend.calls))
	}

	// First pass keeps the multi-client base, later passes narrow it, and
	// the po_token survives every overlay.
	first := backend.calls[0].ExtractorArgs["youtube"]["player_client"]
	if len(first) != 3 {
		t.Errorf("first pass player_client = %v, want three clients", first)
	}
	second := backend.calls[1].ExtractorArgs["youtube"]["player_client"]
	if len(second) != 1 || second[0] != "web" {
		t.Errorf("second pass player_client = %v, want [web]", second)
	}
	third := backend.calls[2].ExtractorArgs["youtube"]["player_client"]
	if len(third) != 1 || third[0] != "ios" {
		t.Errorf("third pass player_client = %v, want [ios]", third)
	}
	for i, call := range backend.calls {
		if got := call.ExtractorArgs["youtube"]["po_token"]; len(got) != 1 || got[0] != "web+tok" {
			t.Errorf("pass %d dropped po_token: %v", i, got)
		}
	}
}

func TestResolve_AllStrategiesFail(t *testing.T) {
	backend := &fakeExtractor{results: []func() (*ytdlp.Info, error){
		fail("HTTP Error 403: Forbidden"),
		fail("HTTP Error 429: Too Many Requests"),
		fail("Private video"),
	}}
	r := NewResolver(backend, newFakeCache(), ytdlp.Options{}, nil, Config{})

	_, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("Resolve succeeded, want error")
	}
	var cerr *faults.Classified
	if !errors.As(err, &cerr) {
		t.Fatalf("error is %T, want *faults.Classified", err)
	}
	// The last failure wins.
	if cerr.Category != faults.PrivateContent {
		t.Errorf("Category = %v, want %v", cerr.Category, faults.PrivateContent)
	}
}

func TestResolve_PopulatesCacheWithTTL(t *testing.T) {
	backend := &fakeExtractor{results: []func() (*ytdlp.Info, error){succeed("dQw4w9WgXcQ")}}
	cache := newFakeCache()
	cfg := Config{TTL: 30 * time.Minute, LiveTTL: 5 * time.Minute}

	r := NewResolver(backend, cache, ytdlp.Options{}, nil, cfg)
	if _, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := cache.ttls["meta:dQw4w9WgXcQ"]; got != 30*time.Minute {
		t.Errorf("cached with TTL %v, want 30m", got)
	}
}

func TestResolve_LiveContentShorterTTL(t *testing.T) {
	backend := &fakeExtractor{results: []func() (*ytdlp.Info, error){
		func() (*ytdlp.Info, error) {
			return &ytdlp.Info{ID: "dQw4w9WgXcQ", IsLive: true}, nil
		},
	}}
	cache := newFakeCache()
	cfg := Config{TTL: 30 * time.Minute, LiveTTL: 5 * time.Minute}

	r := NewResolver(backend, cache, ytdlp.Options{}, nil, cfg)
	if _, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := cache.ttls["meta:dQw4w9WgXcQ"]; got != 5*time.Minute {
		t.Errorf("live content cached with TTL %v, want 5m", got)
	}
}

func TestResolve_CacheErrorsDegradeToMiss(t *testing.T) {
	backend := &fakeExtractor{results: []func() (*ytdlp.Info, error){succeed("dQw4w9WgXcQ")}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	r := NewResolver(backend, cache, ytdlp.Options{}, nil, Config{})
	got, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve failed despite cache errors: %v", err)
	}
	if got.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", got.ID)
	}
}

func TestResolve_CorruptCacheEntryIgnored(t *testing.T) {
	backend := &fakeExtractor{results: []func() (*ytdlp.Info, error){succeed("dQw4w9WgXcQ")}}
	cache := newFakeCache()
	cache.data["meta:dQw4w9WgXcQ"] = []byte("{not json")

	r := NewResolver(backend, cache, ytdlp.Options{}, nil, Config{})
	if _, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend called %d times, want 1", len(backend.calls))
	}
}

func TestNormalize_CollectsM3U8URLs(t *testing.T) {
	info := &ytdlp.Info{
		ID: "dQw4w9WgXcQ",
		Formats: []ytdlp.RawFormat{
			{FormatID: "96", Protocol: "m3u8_native", URL: "https://cdn/b.m3u8"},
			{FormatID: "95", Protocol: "m3u8_native", URL: "https://cdn/a.m3u8"},
			{FormatID: "95-dup", Protocol: "m3u8_native", URL: "https://cdn/a.m3u8"},
			{FormatID: "137", Protocol: "https", URL: "https://cdn/video"},
		},
	}
	md := normalize(info)
	want := []string{"https://cdn/a.m3u8", "https://cdn/b.m3u8"}
	if len(md.M3U8URLs) != len(want) {
		t.Fatalf("M3U8URLs = %v, want %v", md.M3U8URLs, want)
	}
	for i := range want {
		if md.M3U8URLs[i] != want[i] {
			t.Errorf("M3U8URLs[%d] = %q, want %q", i, md.M3U8URLs[i], want[i])
		}
	}
}
