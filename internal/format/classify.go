// Package format partitions and ranks heterogeneous media-format records.
// Everything here is pure: no I/O, same input same output.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
)

// Classified is the partitioned, ranked view of one format list.
type Classified struct {
	Video []domain.Format          `json:"video"`
	Audio []domain.Format          `json:"audio"`
	HLS   []domain.Format          `json:"hls"`
	DASH  []domain.Format          `json:"dash"`
	ByID  map[string]domain.Format `json:"all_by_id"`
	Total int                      `json:"-"`
}

// Summary returns the per-bucket counts for presentation.
func (c Classified) Summary() map[string]int {
	return map[string]int{
		"total": c.Total,
		"video": len(c.Video),
		"audio": len(c.Audio),
		"hls":   len(c.HLS),
		"dash":  len(c.DASH),
	}
}

// Normalize shapes one raw backend format record into the domain form.
// HLS/DASH membership is derived from the protocol string, resolution falls
// back to width x height when the backend left it blank.
func Normalize(raw ytdlp.RawFormat) domain.Format {
	resolution := raw.Resolution
	if resolution == "" && raw.Width > 0 && raw.Height > 0 {
		resolution = fmt.Sprintf("%dx%d", raw.Width, raw.Height)
	}
	filesize := raw.Filesize
	if filesize == 0 {
		filesize = raw.FilesizeApprox
	}
	return domain.Format{
		FormatID:       raw.FormatID,
		Ext:            raw.Ext,
		Protocol:       raw.Protocol,
		QualityNote:    raw.FormatNote,
		Resolution:     resolution,
		FPS:            raw.FPS,
		VCodec:         raw.VCodec,
		ACodec:         raw.ACodec,
		FilesizeApprox: filesize,
		TBR:            raw.TBR,
		VBR:            raw.VBR,
		ABR:            raw.ABR,
		URL:            raw.URL,
		ManifestURL:    raw.ManifestURL,
		IsHLS:          strings.Contains(raw.Protocol, "m3u8"),
		IsDash:         strings.Contains(raw.Protocol, "dash"),
		IsLive:         raw.IsFromStart,
		Width:          raw.Width,
		Height:         raw.Height,
	}
}

// HasVideo reports whether the format carries a video track.
func HasVideo(f domain.Format) bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio track.
func HasAudio(f domain.Format) bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// IsHLS covers both the explicit flag and the protocol marker.
func IsHLS(f domain.Format) bool {
	return f.IsHLS || strings.Contains(f.Protocol, "m3u8")
}

// IsDash covers the explicit flag only; DASH formats report a plain https
// protocol once the manifest is resolved.
func IsDash(f domain.Format) bool {
	return f.IsDash
}

// Classify partitions formats into the four presentation buckets and builds
// the by-id lookup. Video is ranked by resolution string descending (a
// deliberate lexicographic simplification, not a numeric sort); the other
// buckets rank by bitrate descending with a missing bitrate counting as zero.
func Classify(formats []domain.Format) Classified {
	out := Classified{
		ByID:  make(map[string]domain.Format, len(formats)),
		Total: len(formats),
	}

	for _, f := range formats {
		if f.FormatID != "" {
			// Last write wins on an id collision; ids are expected
			// unique within one record.
			out.ByID[f.FormatID] = f
		}

		// Buckets are independent: a DASH audio rendition shows up under
		// both audio and dash.
		if HasVideo(f) && !IsHLS(f) && !IsDash(f) {
			out.Video = append(out.Video, f)
		}
		if !HasVideo(f) && HasAudio(f) && !IsHLS(f) {
			out.Audio = append(out.Audio, f)
		}
		if IsHLS(f) {
			out.HLS = append(out.HLS, f)
		}
		if IsDash(f) {
			out.DASH = append(out.DASH, f)
		}
	}

	sort.SliceStable(out.Video, func(i, j int) bool {
		return out.Video[i].Resolution > out.Video[j].Resolution
	})
	byBitrateDesc(out.Audio)
	byBitrateDesc(out.HLS)
	byBitrateDesc(out.DASH)

	return out
}

func byBitrateDesc(fs []domain.Format) {
	sort.SliceStable(fs, func(i, j int) bool {
		return fs[i].TBR > fs[j].TBR
	})
}

// CodecRoot trims codec profile suffixes ("avc1.64001F" -> "avc1") for the
// aggregated view; an empty codec renders as "none".
func CodecRoot(codec string) string {
	if codec == "" {
		return "none"
	}
	if i := strings.IndexByte(codec, '.'); i >= 0 {
		return codec[:i]
	}
	return codec
}
