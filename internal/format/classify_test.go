package format

import (
	"testing"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
)

func TestClassify_Buckets(t *testing.T) {
	formats := []domain.Format{
		{FormatID: "137", VCodec: "avc1.64001F", ACodec: "none", Resolution: "1920x1080", TBR: 4000},
		{FormatID: "136", VCodec: "avc1.4d401e", ACodec: "none", Resolution: "1280x720", TBR: 2500},
		{FormatID: "140", VCodec: "none", ACodec: "mp4a.40.2", TBR: 128},
		{FormatID: "251", VCodec: "none", ACodec: "opus", TBR: 160},
		{FormatID: "96", VCodec: "avc1", ACodec: "mp4a", Protocol: "m3u8_native", TBR: 5000},
		{FormatID: "299-dash", VCodec: "avc1", ACodec: "none", IsDash: true, TBR: 6000},
	}

	cls := Classify(formats)

	if got := len(cls.Video); got != 2 {
		t.Errorf("len(Video) = %d, want 2", got)
	}
	if got := len(cls.Audio); got != 2 {
		t.Errorf("len(Audio) = %d, want 2", got)
	}
	if got := len(cls.HLS); got != 1 {
		t.Errorf("len(HLS) = %d, want 1", got)
	}
	if got := len(cls.DASH); got != 1 {
		t.Errorf("len(DASH) = %d, want 1", got)
	}
	if got := len(cls.ByID); got != 6 {
		t.Errorf("len(ByID) = %d, want 6", got)
	}

	// HLS with a video codec must not leak into the plain video bucket.
	for _, f := range cls.Video {
		if f.FormatID == "96" {
			t.Error("HLS format classified as plain video")
		}
	}
	// DASH video must not leak into the plain video bucket either.
	for _, f := range cls.Video {
		if f.FormatID == "299-dash" {
			t.Error("DASH format classified as plain video")
		}
	}
}

func TestClassify_DashAudioInBothBuckets(t *testing.T) {
	// A DASH audio rendition belongs to audio and dash at the same time.
	formats := []domain.Format{
		{FormatID: "139-dash", VCodec: "none", ACodec: "mp4a.40.5", IsDash: true, TBR: 48},
	}
	cls := Classify(formats)
	if len(cls.Audio) != 1 || len(cls.DASH) != 1 {
		t.Errorf("audio=%d dash=%d, want 1 and 1", len(cls.Audio), len(cls.DASH))
	}
}

func TestClassify_SortOrder(t *testing.T) {
	formats := []domain.Format{
		{FormatID: "a", VCodec: "avc1", ACodec: "none", Resolution: "1280x720"},
		{FormatID: "b", VCodec: "avc1", ACodec: "none", Resolution: "1920x1080"},
		{FormatID: "c", VCodec: "none", ACodec: "opus", TBR: 64},
		{FormatID: "d", VCodec: "none", ACodec: "opus", TBR: 160},
	}
	cls := Classify(formats)

	if cls.Video[0].FormatID != "b" {
		t.Errorf("Video[0] = %s, want b (highest resolution first)", cls.Video[0].FormatID)
	}
	if cls.Audio[0].FormatID != "d" {
		t.Errorf("Audio[0] = %s, want d (highest bitrate first)", cls.Audio[0].FormatID)
	}
}

func TestClassify_EmptyIDSkipsLookupOnly(t *testing.T) {
	formats := []domain.Format{
		{FormatID: "", VCodec: "none", ACodec: "opus", TBR: 64},
	}
	cls := Classify(formats)
	if len(cls.ByID) != 0 {
		t.Errorf("len(ByID) = %d, want 0", len(cls.ByID))
	}
	if len(cls.Audio) != 1 {
		t.Errorf("len(Audio) = %d, want 1 (buckets keep id-less formats)", len(cls.Audio))
	}
	if cls.Total != 1 {
		t.Errorf("Total = %d, want 1", cls.Total)
	}
}

func TestClassify_ByIDLastWriteWins(t *testing.T) {
	formats := []domain.Format{
		{FormatID: "18", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a"},
		{FormatID: "18", Ext: "webm", VCodec: "vp9", ACodec: "opus"},
	}
	cls := Classify(formats)
	if got := cls.ByID["18"].Ext; got != "webm" {
		t.Errorf("ByID[18].Ext = %s, want webm", got)
	}
}

func TestSummary(t *testing.T) {
	cls := Classify([]domain.Format{
		{FormatID: "137", VCodec: "avc1", ACodec: "none"},
		{FormatID: "140", VCodec: "none", ACodec: "mp4a"},
	})
	sum := cls.Summary()
	if sum["total"] != 2 || sum["video"] != 1 || sum["audio"] != 1 {
		t.Errorf("Summary() = %v", sum)
	}
}

func TestNormalize(t *testing.T) {
	raw := ytdlp.RawFormat{
		FormatID: "22",
		Ext:      "mp4",
		Protocol: "m3u8_native",
		Width:    1280,
		Height:   720,
		VCodec:   "avc1.64001F",
		ACodec:   "mp4a.40.2",
	}
	f := Normalize(raw)
	if f.Resolution != "1280x720" {
		t.Errorf("Resolution = %q, want 1280x720 (derived from dimensions)", f.Resolution)
	}
	if !f.IsHLS {
		t.Error("IsHLS = false, want true for m3u8 protocol")
	}
	if f.IsDash {
		t.Error("IsDash = true, want false")
	}
}

func TestNormalize_FilesizeFallback(t *testing.T) {
	f := Normalize(ytdlp.RawFormat{FormatID: "140", FilesizeApprox: 12345})
	if f.FilesizeApprox != 12345 {
		t.Errorf("FilesizeApprox = %d, want 12345", f.FilesizeApprox)
	}
}

func TestCodecRoot(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"avc1.64001F", "avc1"},
		{"mp4a.40.2", "mp4a"},
		{"opus", "opus"},
		{"", "none"},
	}
	for _, tt := range tests {
		if got := CodecRoot(tt.in); got != tt.want {
			t.Errorf("CodecRoot(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
