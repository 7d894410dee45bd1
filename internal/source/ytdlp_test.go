package source

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestYTDLPProviderLookup(t *testing.T) {
	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		wantArgs := []string{"--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download", "https://example.com/watch?v=abc"}
		if len(args) != len(wantArgs) {
			t.Fatalf("unexpected args length: got %d want %d", len(args), len(wantArgs))
		}
		for i, arg := range wantArgs {
			if args[i] != arg {
				t.Fatalf("unexpected arg at %d: got %q want %q", i, args[i], arg)
			}
		}
		return []byte(`{
			"title": "A Video: The/Sequel",
			"duration": 212.4,
			"uploader": "someone",
			"view_count": 12345,
			"formats": [
				{"format_id": "18", "ext": "mp4", "format_note": "360p", "tbr": 500.1, "vcodec": "avc1", "acodec": "mp4a", "filesize": 1048576, "url": "https://cdn.example.com/18"},
				{"format_id": "140", "ext": "m4a", "abr": 129.5, "vcodec": "none", "acodec": "mp4a", "filesize_approx": 524288, "url": "https://cdn.example.com/140"},
				{"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none", "url": ""}
			]
		}`), nil
	}

	meta, err := provider.Lookup(context.Background(), "https://example.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if meta.Title != "A Video The Sequel" {
		t.Fatalf("unexpected sanitized title: %q", meta.Title)
	}
	if meta.Duration != 212 {
		t.Fatalf("unexpected duration: %d", meta.Duration)
	}
	if meta.Uploader != "someone" || meta.ViewCount != 12345 {
		t.Fatalf("unexpected uploader metadata: %+v", meta)
	}
	if len(meta.Formats) != 2 {
		t.Fatalf("expected url-less formats dropped, got %d formats", len(meta.Formats))
	}

	video := meta.Formats[0]
	if !video.HasVideo || !video.HasAudio || video.QualityLabel != "360p" || video.ContentLength != 1048576 {
		t.Fatalf("unexpected video format: %+v", video)
	}

	audio := meta.Formats[1]
	if audio.HasVideo || !audio.HasAudio {
		t.Fatalf("expected audio-only format: %+v", audio)
	}
	if audio.ContentLength != 524288 {
		t.Fatalf("expected filesize_approx fallback, got %d", audio.ContentLength)
	}
}

func TestYTDLPProviderLookupEmptyPayload(t *testing.T) {
	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte(`{"title":"","formats":[]}`), nil
	}

	if _, err := provider.Lookup(context.Background(), "https://example.com"); !errors.Is(err, ErrEmptyMetadata) {
		t.Fatalf("expected ErrEmptyMetadata, got %v", err)
	}
}

func TestYTDLPProviderLookupCommandFailure(t *testing.T) {
	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	if _, err := provider.Lookup(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestYTDLPProviderNil(t *testing.T) {
	var provider *YTDLPProvider
	if _, err := provider.Lookup(context.Background(), "https://example.com"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"separators", `a/b\c:d*e?f"g<h>i|j`, "a b c d e f g h i j"},
		{"collapses whitespace", "  a   b  ", "a b"},
		{"empty", "", "video"},
		{"only unsafe", `///`, "video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.input); got != tt.want {
				t.Fatalf("SanitizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
