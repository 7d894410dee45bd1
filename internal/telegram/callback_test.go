package telegram

import (
	"testing"

	"github.com/clipferry/bot/internal/models"
)

func TestCallbackRoundTrip(t *testing.T) {
	for _, mode := range []models.DeliveryMode{models.ModeBestVideo, models.ModeReducedVideo, models.ModeAudioOnly} {
		token := FormatCallback(mode)
		if len(token) > 64 {
			t.Fatalf("token %q exceeds the 64-byte callback data cap", token)
		}
		got, ok := ParseCallback(token)
		if !ok || got != mode {
			t.Fatalf("ParseCallback(%q) = (%v, %v), want (%v, true)", token, got, ok, mode)
		}
	}
}

func TestParseCallbackRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"video",
		"dl:",
		"dl:flac",
		"xx:video",
		"dl:video:extra",
	}
	for _, data := range tests {
		if _, ok := ParseCallback(data); ok {
			t.Fatalf("ParseCallback(%q) accepted invalid token", data)
		}
	}
}

func TestModeKeyboardCoversAllModes(t *testing.T) {
	kb := modeKeyboard()
	if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 3 {
		t.Fatalf("unexpected keyboard shape: %+v", kb)
	}

	seen := map[models.DeliveryMode]bool{}
	for _, btn := range kb.InlineKeyboard[0] {
		if btn.CallbackData == nil {
			t.Fatalf("button %q has no callback data", btn.Text)
		}
		mode, ok := ParseCallback(*btn.CallbackData)
		if !ok {
			t.Fatalf("button %q carries unparseable token %q", btn.Text, *btn.CallbackData)
		}
		seen[mode] = true
	}
	if len(seen) != 3 {
		t.Fatalf("keyboard misses modes: %v", seen)
	}
}
