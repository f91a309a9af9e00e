package faults

import (
	"strings"
)

// Category identifies a stable, client-actionable failure class.
type Category string

const (
	AccessDenied      Category = "access_denied"
	RateLimited       Category = "rate_limited"
	GeoBlocked        Category = "geo_blocked"
	PrivateContent    Category = "private_content"
	AgeRestricted     Category = "age_restricted"
	FormatUnavailable Category = "format_unavailable"
	StreamNotStarted  Category = "stream_not_started"
	BackendStale      Category = "backend_stale"
	Unknown           Category = "unknown"
)

// Classified is a normalized failure record. Components never build one by
// hand; they always go through Classify.
type Classified struct {
	Category  Category `json:"category"`
	Message   string   `json:"error"`
	Detail    string   `json:"detail"`
	Retryable bool     `json:"retryable"`
	Status    int      `json:"code"`
}

func (c *Classified) Error() string {
	return c.Message + ": " + c.Detail
}

// maxDetailLen bounds how much raw backend text is surfaced to clients.
const maxDetailLen = 300

type rule struct {
	match     func(msg, lower string) bool
	category  Category
	message   string
	detail    string
	retryable bool
	status    int
}

// Rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		match: func(msg, lower string) bool {
			return strings.Contains(msg, "403") || strings.Contains(msg, "Forbidden")
		},
		category: AccessDenied,
		message:  "Access denied (403)",
		detail:   "Try adding cookies or a proxy.",
		status:   403,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
		},
		category:  RateLimited,
		message:   "Rate limited (429)",
		detail:    "Slow down or rotate proxies.",
		retryable: true,
		status:    429,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(lower, "geo") || strings.Contains(lower, "not available in your country")
		},
		category: GeoBlocked,
		message:  "Geo-blocked",
		detail:   "Use a proxy in an allowed region.",
		status:   451,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(msg, "Private video")
		},
		category: PrivateContent,
		message:  "Private video",
		detail:   "This video is private.",
		status:   403,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(msg, "Sign in") || strings.Contains(lower, "age")
		},
		category: AgeRestricted,
		message:  "Age-restricted",
		detail:   "Provide cookies via the extractor cookies_file setting.",
		status:   403,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(msg, "Requested format is not available")
		},
		category: FormatUnavailable,
		message:  "Format not available",
		detail:   "No matching format found.",
		status:   404,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(msg, "This live event will begin")
		},
		category: StreamNotStarted,
		message:  "Stream not started",
		detail:   "Live stream has not started yet.",
		status:   425,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(lower, "nsig")
		},
		category: BackendStale,
		message:  "nsig extraction failed",
		detail:   "Update yt-dlp on the worker hosts.",
		status:   500,
	},
	{
		match: func(msg, lower string) bool {
			return strings.Contains(lower, "timed out") ||
				strings.Contains(lower, "connection refused") ||
				strings.Contains(lower, "connection reset") ||
				strings.Contains(msg, "502") || strings.Contains(msg, "503")
		},
		category:  Unknown,
		message:   "Backend unavailable",
		detail:    "The extraction backend did not respond; retrying may help.",
		retryable: true,
		status:    503,
	},
}

// Classify maps a raw backend failure onto a stable category. It is total:
// every input yields a value, unmatched text falls through to a generic
// extraction failure with the raw message truncated for display.
func Classify(err error) *Classified {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ClassifyText(msg)
}

// ClassifyText is Classify for failure text that is no longer an error value
// (e.g. a message read back from the result store).
func ClassifyText(msg string) *Classified {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		if r.match(msg, lower) {
			return &Classified{
				Category:  r.category,
				Message:   r.message,
				Detail:    r.detail,
				Retryable: r.retryable,
				Status:    r.status,
			}
		}
	}
	return &Classified{
		Category: Unknown,
		Message:  "Extraction failed",
		Detail:   truncate(msg, maxDetailLen),
		Status:   500,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
