package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
)

const (
	relatedTimeout = 10 * time.Second
	relatedLimit   = 12
)

// Related fetches a best-effort related-content list via a flat extraction
// of the mix playlist. Any failure or timeout yields an empty result; the
// primary response must never block on this enrichment.
func (r *Resolver) Related(ctx context.Context, videoID string) []domain.RelatedVideo {
	ctx, cancel := context.WithTimeout(ctx, relatedTimeout)
	defer cancel()

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s&list=RD%s", videoID, videoID)
	info, err := r.backend.Extract(ctx, url, ytdlp.Options{
		FlatPlaylist: true,
		PlaylistEnd:  relatedLimit,
	})
	if err != nil || info == nil {
		r.log.Debug("related lookup failed", "video_id", videoID, "error", err)
		return nil
	}

	related := make([]domain.RelatedVideo, 0, relatedLimit)
	for _, e := range info.Entries {
		id := e.ID
		if id == "" {
			if parsed, ok := domain.ExtractVideoID(e.URL); ok {
				id = parsed
			}
		}
		if id == "" || id == videoID {
			continue
		}
		uploader := e.Uploader
		if uploader == "" {
			uploader = e.Channel
		}
		related = append(related, domain.RelatedVideo{
			VideoID:     id,
			Title:       e.Title,
			Uploader:    uploader,
			DurationSec: int64(e.Duration),
			ViewCount:   e.ViewCount,
			Thumbnail:   fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id),
			WatchURL:    "https://www.youtube.com/watch?v=" + id,
		})
		if len(related) >= relatedLimit {
			break
		}
	}
	return related
}
