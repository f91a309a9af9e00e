package ytdlp

// RawFormat mirrors one entry of the backend's format list as emitted in its
// info JSON. Fields the service never reads are omitted on purpose.
type RawFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Protocol       string  `json:"protocol"`
	FormatNote     string  `json:"format_note"`
	Resolution     string  `json:"resolution"`
	FPS            float64 `json:"fps"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	TBR            float64 `json:"tbr"`
	VBR            float64 `json:"vbr"`
	ABR            float64 `json:"abr"`
	URL            string  `json:"url"`
	ManifestURL    string  `json:"manifest_url"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	IsFromStart    bool    `json:"is_from_start"`
}

// RawChapter mirrors one chapter marker from the info JSON.
type RawChapter struct {
	Title     string  `json:"title"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// RawThumbnail mirrors one thumbnail descriptor from the info JSON.
type RawThumbnail struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Entry is a flat-playlist item, used for related-content lookups.
type Entry struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Uploader  string  `json:"uploader"`
	Channel   string  `json:"channel"`
	Duration  float64 `json:"duration"`
	ViewCount int64   `json:"view_count"`
}

// Info is the structured record the extraction backend returns for a URL.
type Info struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Uploader             string         `json:"uploader"`
	UploaderID           string         `json:"uploader_id"`
	ChannelID            string         `json:"channel_id"`
	ChannelURL           string         `json:"channel_url"`
	ChannelFollowerCount int64          `json:"channel_follower_count"`
	ChannelIsVerified    bool           `json:"channel_is_verified"`
	UploaderAvatarURL    string         `json:"uploader_avatar_url"`
	Duration             float64        `json:"duration"`
	DurationString       string         `json:"duration_string"`
	ViewCount            int64          `json:"view_count"`
	LikeCount            int64          `json:"like_count"`
	CommentCount         int64          `json:"comment_count"`
	AgeLimit             int            `json:"age_limit"`
	Availability         string         `json:"availability"`
	Description          string         `json:"description"`
	Thumbnail            string         `json:"thumbnail"`
	Thumbnails           []RawThumbnail `json:"thumbnails"`
	UploadDate           string         `json:"upload_date"`
	ReleaseTimestamp     int64          `json:"release_timestamp"`
	Tags                 []string       `json:"tags"`
	Categories           []string       `json:"categories"`
	Chapters             []RawChapter   `json:"chapters"`
	IsLive               bool           `json:"is_live"`
	WasLive              bool           `json:"was_live"`
	Formats              []RawFormat    `json:"formats"`
	DashManifestURL      string         `json:"dash_manifest_url"`
	Entries              []Entry        `json:"entries"`
}

// Progress carries one backend progress report during a download.
type Progress struct {
	Status             string  `json:"status"` // downloading | finished
	DownloadedBytes    float64 `json:"downloaded_bytes"`
	TotalBytes         float64 `json:"total_bytes"`
	TotalBytesEstimate float64 `json:"total_bytes_estimate"`
	SpeedText          string  `json:"_speed_str"`
	ETAText            string  `json:"_eta_str"`
}

// ProgressFunc receives progress reports from a running download.
type ProgressFunc func(p Progress)
