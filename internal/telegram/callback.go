package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clipferry/bot/internal/models"
)

// Callback tokens are "dl:<mode>". The source URL deliberately stays out of
// the token: Telegram caps callback data at 64 bytes, so the URL lives in the
// user's download session instead.
const callbackPrefix = "dl:"

// FormatCallback encodes a delivery mode into a button token.
func FormatCallback(mode models.DeliveryMode) string {
	return callbackPrefix + string(mode)
}

// ParseCallback decodes a button token back into a delivery mode.
func ParseCallback(data string) (models.DeliveryMode, bool) {
	value, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return "", false
	}
	mode := models.DeliveryMode(value)
	if !mode.Valid() {
		return "", false
	}
	return mode, true
}

func modeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Best video", FormatCallback(models.ModeBestVideo)),
			tgbotapi.NewInlineKeyboardButtonData("Smaller video", FormatCallback(models.ModeReducedVideo)),
			tgbotapi.NewInlineKeyboardButtonData("Audio only", FormatCallback(models.ModeAudioOnly)),
		),
	)
}
