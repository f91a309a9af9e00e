package api

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/faults"
	"github.com/vietddude/fetcher/internal/format"
)

type formatRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL            string `json:"url"`
	FormatSelector string `json:"format_selector"`
	Filename       string `json:"filename"`
}

func validateSourceURL(url string) error {
	for _, marker := range []string{"youtube.com", "youtu.be", "youtube-nocookie.com"} {
		if strings.Contains(url, marker) {
			return nil
		}
	}
	return echo.NewHTTPError(http.StatusBadRequest, "URL must be a valid YouTube URL")
}

// renderFault maps any failure onto its classified payload and status code.
func renderFault(c echo.Context, err error) error {
	var cerr *faults.Classified
	if !errors.As(err, &cerr) {
		cerr = faults.Classify(err)
	}
	return c.JSON(cerr.Status, cerr)
}

func (s *Server) handleFormats(c echo.Context) error {
	var req formatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateSourceURL(req.URL); err != nil {
		return err
	}

	md, err := s.resolver.Resolve(c.Request().Context(), req.URL)
	if err != nil {
		return renderFault(c, err)
	}
	return c.JSON(http.StatusOK, md)
}

func (s *Server) handleM3U8(c echo.Context) error {
	var req formatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateSourceURL(req.URL); err != nil {
		return err
	}

	md, err := s.resolver.Resolve(c.Request().Context(), req.URL)
	if err != nil {
		return renderFault(c, err)
	}

	cls := format.Classify(md.Formats)

	// Master playlist: first deduplicated manifest URL across HLS formats.
	master := ""
	for _, f := range cls.HLS {
		if f.ManifestURL != "" {
			master = f.ManifestURL
			break
		}
	}

	variants := make([]echo.Map, 0, len(cls.HLS))
	for _, f := range cls.HLS {
		variants = append(variants, echo.Map{
			"format_id":  f.FormatID,
			"resolution": f.Resolution,
			"tbr":        f.TBR,
			"url":        f.URL,
			"vcodec":     f.VCodec,
			"acodec":     f.ACodec,
			"ext":        f.Ext,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":            md.ID,
		"title":         md.Title,
		"is_live":       md.IsLive,
		"master_m3u8":   master,
		"variant_m3u8s": variants,
		"hls_formats":   cls.HLS,
	})
}

func (s *Server) handleSubmit(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateSourceURL(req.URL); err != nil {
		return err
	}

	jobID, err := s.jobs.Submit(c.Request().Context(), domain.DownloadRequest{
		URL:            req.URL,
		FormatSelector: req.FormatSelector,
		Filename:       req.Filename,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"job_id":  jobID,
		"status":  domain.JobQueued,
		"message": fmt.Sprintf("queued. poll /downloads/%s", jobID),
	})
}

func (s *Server) handlePoll(c echo.Context) error {
	status, err := s.jobs.Poll(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch status.State {
	case domain.JobSuccess:
		resp := echo.Map{
			"job_id":   status.JobID,
			"status":   status.State,
			"progress": 100,
		}
		if status.Result != nil {
			resp["file_path"] = status.Result.FilePath
			resp["filename"] = status.Result.Filename
			resp["result"] = status.Result
		}
		return c.JSON(http.StatusOK, resp)
	case domain.JobFailure:
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"job_id": status.JobID,
			"status": status.State,
			"error":  status.Error,
		})
	default:
		return c.JSON(http.StatusOK, echo.Map{
			"job_id":       status.JobID,
			"status":       status.State,
			"progress":     status.Progress,
			"progress_str": status.ProgressText,
		})
	}
}

func (s *Server) handleServeFile(c echo.Context) error {
	status, err := s.jobs.Poll(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if status.State != domain.JobSuccess || status.Result == nil {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("job not complete (state: %s)", status.State))
	}

	path := status.Result.FilePath
	if path == "" {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	contained, err := pathContained(s.cfg.DownloadDir, path)
	if err != nil || !contained {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	return c.Attachment(path, filepath.Base(path))
}

// pathContained reports whether path resolves inside dir, following
// symlinks, so served files cannot escape the download directory.
func pathContained(dir, path string) (bool, error) {
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false, err
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(realDir, realPath)
	if err != nil {
		return false, err
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusNotFound, "download archive disabled")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	recs, err := s.history.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"downloads": recs})
}

// cleanedFormat is the compact per-format view of the aggregated endpoint.
type cleanedFormat struct {
	Itag        string  `json:"itag"`
	Ext         string  `json:"ext"`
	Quality     string  `json:"quality,omitempty"`
	Resolution  string  `json:"resolution,omitempty"`
	FPS         float64 `json:"fps,omitempty"`
	VCodec      string  `json:"vcodec"`
	ACodec      string  `json:"acodec"`
	BitrateKbps *int    `json:"bitrate_kbps"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	Protocol    string  `json:"protocol"`
	URL         string  `json:"url,omitempty"`
}

func cleanFormat(f domain.Format) cleanedFormat {
	var bitrate *int
	if f.TBR > 0 {
		kbps := int(f.TBR + 0.5)
		bitrate = &kbps
	}
	url := f.URL
	if url == "" {
		url = f.ManifestURL
	}
	return cleanedFormat{
		Itag:        f.FormatID,
		Ext:         f.Ext,
		Quality:     f.QualityNote,
		Resolution:  f.Resolution,
		FPS:         f.FPS,
		VCodec:      format.CodecRoot(f.VCodec),
		ACodec:      format.CodecRoot(f.ACodec),
		BitrateKbps: bitrate,
		SizeBytes:   f.FilesizeApprox,
		Protocol:    f.Protocol,
		URL:         url,
	}
}

func cleanFormats(fs []domain.Format) []cleanedFormat {
	out := make([]cleanedFormat, 0, len(fs))
	for _, f := range fs {
		out = append(out, cleanFormat(f))
	}
	return out
}

func (s *Server) handleVideoInfo(c echo.Context) error {
	videoID := c.Param("video_id")
	url := "https://www.youtube.com/watch?v=" + videoID

	md, err := s.resolver.Resolve(c.Request().Context(), url)
	if err != nil {
		return renderFault(c, err)
	}

	// Best-effort enrichment; an empty list is fine.
	related := s.resolver.Related(c.Request().Context(), videoID)

	cls := format.Classify(md.Formats)
	byItag := make(map[string]cleanedFormat, len(cls.ByID))
	for id, f := range cls.ByID {
		byItag[id] = cleanFormat(f)
	}

	uploadDate := formatUploadDate(md.UploadDate)

	chapters := make([]echo.Map, 0, len(md.Chapters))
	for _, ch := range md.Chapters {
		chapters = append(chapters, echo.Map{
			"title":      ch.Title,
			"start_sec":  ch.StartSec,
			"end_sec":    ch.EndSec,
			"start_time": secToHMS(ch.StartSec),
			"end_time":   secToHMS(ch.EndSec),
		})
	}

	etag := md5.Sum([]byte(videoID + ":" + uploadDate))
	c.Response().Header().Set("ETag", `"`+hex.EncodeToString(etag[:])+`"`)
	if md.IsLive {
		c.Response().Header().Set("Cache-Control", "no-store")
	} else {
		c.Response().Header().Set("Cache-Control", "public, max-age=1800")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"video_id":      videoID,
		"title":         md.Title,
		"youtube_url":   url,
		"upload_date":   uploadDate,
		"duration_sec":  md.Duration,
		"duration":      md.DurationString,
		"view_count":    md.ViewCount,
		"like_count":    md.LikeCount,
		"comment_count": md.CommentCount,
		"age_limit":     md.AgeLimit,
		"is_live":       md.IsLive,
		"was_live":      md.WasLive,
		"availability":  md.Availability,
		"thumbnail":     md.Thumbnail,
		"thumbnails":    md.Thumbnails,
		"uploader": echo.Map{
			"name":             md.Uploader,
			"id":               md.UploaderID,
			"channel_id":       md.ChannelID,
			"channel_url":      md.ChannelURL,
			"subscriber_count": md.ChannelFollowerCount,
			"avatar_url":       uploaderAvatar(md),
			"is_verified":      md.ChannelVerified,
		},
		"description": md.Description,
		"tags":        md.Tags,
		"categories":  md.Categories,
		"chapters":    chapters,
		"stream_urls": echo.Map{
			"m3u8":          md.M3U8URLs,
			"dash_manifest": md.DashManifestURL,
		},
		"formats": echo.Map{
			"summary":     cls.Summary(),
			"video":       cleanFormats(cls.Video),
			"audio":       cleanFormats(cls.Audio),
			"hls":         cleanFormats(cls.HLS),
			"dash":        cleanFormats(cls.DASH),
			"all_by_itag": byItag,
		},
		"related_videos": related,
	})
}

// formatUploadDate renders yyyymmdd as yyyy/mm/dd, passing anything else
// through unchanged.
func formatUploadDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	return raw[:4] + "/" + raw[4:6] + "/" + raw[6:]
}

func secToHMS(sec float64) string {
	s := int(sec)
	h, m := s/3600, (s%3600)/60
	s = s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// uploaderAvatar falls back to scanning thumbnails for a channel-avatar
// looking URL when the backend did not report one directly.
func uploaderAvatar(md *domain.Metadata) string {
	if md.UploaderAvatarURL != "" {
		return md.UploaderAvatarURL
	}
	for _, t := range md.Thumbnails {
		if strings.Contains(t.URL, "ggpht") {
			return t.URL
		}
	}
	return ""
}
