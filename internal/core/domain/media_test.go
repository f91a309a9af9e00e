package domain

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url string
		id  string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"https://example.com/video/12345", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		id, ok := ExtractVideoID(tt.url)
		if ok != tt.ok || id != tt.id {
			t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, id, ok, tt.id, tt.ok)
		}
	}
}
