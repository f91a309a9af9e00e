package domain

import "regexp"

// Format is a single encoding variant of a media item.
type Format struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Protocol       string  `json:"protocol"`
	QualityNote    string  `json:"quality_note,omitempty"`
	Resolution     string  `json:"resolution,omitempty"`
	FPS            float64 `json:"fps,omitempty"`
	VCodec         string  `json:"vcodec,omitempty"`
	ACodec         string  `json:"acodec,omitempty"`
	FilesizeApprox int64   `json:"filesize_approx,omitempty"`
	TBR            float64 `json:"tbr,omitempty"`
	VBR            float64 `json:"vbr,omitempty"`
	ABR            float64 `json:"abr,omitempty"`
	URL            string  `json:"url,omitempty"`
	ManifestURL    string  `json:"manifest_url,omitempty"`
	IsHLS          bool    `json:"is_hls"`
	IsDash         bool    `json:"is_dash"`
	IsLive         bool    `json:"is_live"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
}

// Chapter marks a titled span within a media item.
type Chapter struct {
	Title    string  `json:"title"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// Thumbnail describes one preview image rendition.
type Thumbnail struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Metadata is the resolved description of a media item. Once cached it is
// immutable for its TTL window.
type Metadata struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Uploader             string      `json:"uploader,omitempty"`
	UploaderID           string      `json:"uploader_id,omitempty"`
	ChannelID            string      `json:"channel_id,omitempty"`
	ChannelURL           string      `json:"channel_url,omitempty"`
	ChannelFollowerCount int64       `json:"channel_follower_count,omitempty"`
	ChannelVerified      bool        `json:"channel_is_verified"`
	UploaderAvatarURL    string      `json:"uploader_avatar_url,omitempty"`
	Duration             float64     `json:"duration,omitempty"`
	DurationString       string      `json:"duration_string,omitempty"`
	ViewCount            int64       `json:"view_count,omitempty"`
	LikeCount            int64       `json:"like_count,omitempty"`
	CommentCount         int64       `json:"comment_count,omitempty"`
	AgeLimit             int         `json:"age_limit"`
	Availability         string      `json:"availability,omitempty"`
	Description          string      `json:"description"`
	Thumbnail            string      `json:"thumbnail,omitempty"`
	Thumbnails           []Thumbnail `json:"thumbnails"`
	UploadDate           string      `json:"upload_date,omitempty"`
	ReleaseTimestamp     int64       `json:"release_timestamp,omitempty"`
	Tags                 []string    `json:"tags"`
	Categories           []string    `json:"categories"`
	Chapters             []Chapter   `json:"chapters"`
	IsLive               bool        `json:"is_live"`
	WasLive              bool        `json:"was_live"`
	Formats              []Format    `json:"formats"`
	M3U8URLs             []string    `json:"m3u8_urls"`
	DashManifestURL      string      `json:"dash_manifest_url,omitempty"`
}

// RelatedVideo is a lightweight card for best-effort enrichment lookups.
type RelatedVideo struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Uploader    string `json:"uploader,omitempty"`
	DurationSec int64  `json:"duration_sec,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`
	Thumbnail   string `json:"thumbnail"`
	WatchURL    string `json:"youtube_url"`
}

var videoIDPattern = regexp.MustCompile(`(?:v=|/v/|youtu\.be/|/embed/|/shorts/)([A-Za-z0-9_-]{11})`)

// ExtractVideoID pulls the canonical 11-character content identifier out of a
// watch URL. Returns false when the URL carries no recognizable identifier.
func ExtractVideoID(url string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
