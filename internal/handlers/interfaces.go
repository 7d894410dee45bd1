package handlers

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// UpdateSink receives decoded platform updates from the webhook surface.
type UpdateSink interface {
	HandleWebhookUpdate(update tgbotapi.Update)
}
