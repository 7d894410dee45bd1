package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSink struct {
	updates []tgbotapi.Update
}

func (s *fakeSink) HandleWebhookUpdate(update tgbotapi.Update) {
	s.updates = append(s.updates, update)
}

func TestWebhookHandler(t *testing.T) {
	sink := &fakeSink{}
	handler := WebhookHandler{Sink: sink}

	body := `{"update_id": 42, "message": {"message_id": 1, "text": "https://example.com/v", "chat": {"id": 1}, "from": {"id": 2}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sink.updates) != 1 {
		t.Fatalf("sink received %d updates, want 1", len(sink.updates))
	}
	update := sink.updates[0]
	if update.UpdateID != 42 || update.Message == nil || update.Message.Text != "https://example.com/v" {
		t.Fatalf("unexpected update %+v", update)
	}
}

func TestWebhookHandlerAcksMalformedPayload(t *testing.T) {
	sink := &fakeSink{}
	handler := WebhookHandler{Sink: sink}

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	// The platform retries non-200 responses forever; malformed input is
	// acknowledged and dropped.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sink.updates) != 0 {
		t.Fatalf("sink received %d updates, want 0", len(sink.updates))
	}
}

func TestWebhookHandlerRejectsNonPost(t *testing.T) {
	handler := WebhookHandler{Sink: &fakeSink{}}

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{Updates: &fakeSink{}})

	for _, path := range []string{"/", "/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}
