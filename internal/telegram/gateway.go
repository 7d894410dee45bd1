package telegram

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clipferry/bot/internal/middleware"
	"github.com/clipferry/bot/internal/models"
)

// Sender is the slice of the Telegram client the gateway needs. Satisfied by
// *tgbotapi.BotAPI; faked in tests.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gateway adapts the Telegram Bot API to the pipeline's delivery contract.
type Gateway struct {
	api   Sender
	edits middleware.RateLimiter
}

// NewGateway wraps the sender with a per-chat edit throttle so progress
// edits stay under the platform's rate limits.
func NewGateway(api Sender) *Gateway {
	return &Gateway{
		api:   api,
		edits: middleware.NewKeyRateLimiter(1, time.Second, 3, 10*time.Minute),
	}
}

// SendText posts a plain text message into the chat.
func (g *Gateway) SendText(_ context.Context, chat models.ChatRef, text string) error {
	msg := tgbotapi.NewMessage(chat.ChatID, text)
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendStatus posts a status message and returns its id for later edits.
func (g *Gateway) SendStatus(_ context.Context, chat models.ChatRef, text string) (int, error) {
	msg := tgbotapi.NewMessage(chat.ChatID, text)
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send status: %w", err)
	}
	return sent.MessageID, nil
}

// EditStatus updates a previously sent status message. Edits past the
// per-chat throttle are silently dropped; the next step catches up.
func (g *Gateway) EditStatus(_ context.Context, chat models.ChatRef, messageID int, text string) error {
	if !g.edits.Allow(strconv.FormatInt(chat.ChatID, 10)) {
		return nil
	}
	edit := tgbotapi.NewEditMessageText(chat.ChatID, messageID, text)
	if _, err := g.api.Request(edit); err != nil {
		return fmt.Errorf("edit status: %w", err)
	}
	return nil
}

// Deliver sends the finished artifact using the routed delivery method.
func (g *Gateway) Deliver(_ context.Context, chat models.ChatRef, d models.Delivery) error {
	file, err := os.Open(d.Path)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	defer file.Close()

	upload := tgbotapi.FileReader{Name: d.Filename, Reader: file}

	var payload tgbotapi.Chattable
	switch d.Method {
	case models.DeliverInlineVideo:
		video := tgbotapi.NewVideo(chat.ChatID, upload)
		video.Caption = d.Title
		video.Duration = d.Duration
		video.SupportsStreaming = true
		payload = video
	case models.DeliverDocument:
		doc := tgbotapi.NewDocument(chat.ChatID, upload)
		doc.Caption = d.Title
		payload = doc
	case models.DeliverAudio:
		audio := tgbotapi.NewAudio(chat.ChatID, upload)
		audio.Title = d.Title
		audio.Performer = d.Performer
		audio.Duration = d.Duration
		payload = audio
	default:
		return fmt.Errorf("deliver: unknown method %q", d.Method)
	}

	if _, err := g.api.Send(payload); err != nil {
		return fmt.Errorf("deliver %s: %w", d.Method, err)
	}
	return nil
}

// SendModeKeyboard offers the three delivery renditions for a fetched video.
func (g *Gateway) SendModeKeyboard(_ context.Context, chat models.ChatRef, text string) error {
	msg := tgbotapi.NewMessage(chat.ChatID, text)
	msg.ReplyMarkup = modeKeyboard()
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("send keyboard: %w", err)
	}
	return nil
}

// AckCallback answers a button press so the client stops its spinner.
func (g *Gateway) AckCallback(callbackID string) {
	_, _ = g.api.Request(tgbotapi.NewCallback(callbackID, ""))
}
