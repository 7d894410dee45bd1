package handlers

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clipferry/bot/internal/logging"
)

// WebhookHandler accepts platform update envelopes over HTTP. The platform
// retries non-200 responses, so the handler acknowledges every request with
// 200 regardless of internal processing outcome.
type WebhookHandler struct {
	Sink UpdateSink
}

// Handle implements POST /webhook.
func (h WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logging.FromContext(r.Context()).Warn("malformed webhook payload", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.Sink != nil {
		h.Sink.HandleWebhookUpdate(update)
	}
	w.WriteHeader(http.StatusOK)
}
