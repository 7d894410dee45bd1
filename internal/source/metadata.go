package source

import (
	"context"
	"io"
	"strings"
)

// Format is one available encoding of a source video.
type Format struct {
	ID            string
	Container     string
	QualityLabel  string
	Bitrate       float64 // total bitrate in kbps, 0 when undeclared
	AudioBitrate  float64 // audio bitrate in kbps, 0 when undeclared
	HasVideo      bool
	HasAudio      bool
	ContentLength int64 // declared size in bytes, 0 when the source does not report one
	StreamURL     string
}

// Metadata captures the subset of remote video details used by clipferry.
// It is fetched fresh for every request and never cached across requests.
type Metadata struct {
	Title     string // sanitized, safe for filenames
	Duration  int    // seconds
	Uploader  string
	ViewCount int64
	Formats   []Format
}

// Provider returns metadata for the supplied video URL.
type Provider interface {
	Lookup(ctx context.Context, url string) (Metadata, error)
}

// Opener opens the byte stream behind a chosen encoding.
type Opener interface {
	Open(ctx context.Context, format Format) (io.ReadCloser, int64, error)
}

// SanitizeTitle strips characters that are unsafe in filenames and collapses
// the result to something a filesystem will accept.
func SanitizeTitle(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return ' '
		}
		return r
	}, title)

	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "video"
	}
	const maxLen = 120
	if len(cleaned) > maxLen {
		cleaned = strings.TrimSpace(cleaned[:maxLen])
	}
	return cleaned
}
