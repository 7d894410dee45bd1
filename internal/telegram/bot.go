package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	"github.com/clipferry/bot/internal/logging"
	"github.com/clipferry/bot/internal/metrics"
	"github.com/clipferry/bot/internal/models"
	"github.com/clipferry/bot/internal/pipeline"
	"github.com/clipferry/bot/internal/session"
	"github.com/clipferry/bot/internal/source"
)

// Runner executes one accepted transfer. Implemented by pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) error
}

// Bot turns inbound Telegram updates into session-gated transfer tasks. Each
// update is handled in its own goroutine; the semaphore caps how many
// transfers run at once across all users.
type Bot struct {
	gateway  *Gateway
	provider source.Provider
	store    *session.Store
	runner   Runner
	sem      *semaphore.Weighted
	logger   *slog.Logger

	updates chan tgbotapi.Update
	wg      sync.WaitGroup
}

// NewBot wires the update handler.
func NewBot(gateway *Gateway, provider source.Provider, store *session.Store, runner Runner, maxTransfers int64, logger *slog.Logger) *Bot {
	if maxTransfers <= 0 {
		maxTransfers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		gateway:  gateway,
		provider: provider,
		store:    store,
		runner:   runner,
		sem:      semaphore.NewWeighted(maxTransfers),
		logger:   logger,
		updates:  make(chan tgbotapi.Update, 64),
	}
}

// Run consumes updates until the context is canceled, then waits for
// in-flight handlers to finish.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

// WebhookUpdates exposes the channel fed by HandleWebhookUpdate for webhook
// mode; pass it to Run.
func (b *Bot) WebhookUpdates() <-chan tgbotapi.Update {
	return b.updates
}

// HandleWebhookUpdate enqueues an update received over HTTP. It never blocks
// the webhook response; updates beyond the buffer are dropped.
func (b *Bot) HandleWebhookUpdate(update tgbotapi.Update) {
	select {
	case b.updates <- update:
	default:
		b.logger.Warn("update queue full, dropping update", "update_id", update.UpdateID)
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.logger.Error("panic recovered in update handler", "panic", rec)
			}
		}()
		b.handleUpdate(logging.WithLogger(ctx, b.logger), update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		m := update.Message
		chat := models.ChatRef{ChatID: m.Chat.ID, UserID: m.From.ID}
		ctx = logging.WithChat(ctx, chat.ChatID, chat.UserID)
		if m.IsCommand() {
			b.handleCommand(ctx, chat, m.Command())
			return
		}
		if text := strings.TrimSpace(m.Text); text != "" {
			b.handleLink(ctx, chat, text)
		}
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil && update.CallbackQuery.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chat models.ChatRef, command string) {
	var text string
	switch command {
	case "start":
		text = "Hi! Send me a video link and I'll fetch it for you.\n" +
			"You'll get to choose between best quality, a smaller file, or audio only."
	case "help":
		text = "Send a link to a video page. I'll look up the available encodings and " +
			"offer three options:\n" +
			"• Best video — highest quality with sound\n" +
			"• Smaller video — lower resolution, friendlier to size limits\n" +
			"• Audio only — MP3 of the soundtrack\n" +
			"Videos too large for the platform are sent as audio automatically."
	default:
		text = "Unknown command. Try /help."
	}
	if err := b.gateway.SendText(ctx, chat, text); err != nil {
		logging.FromContext(ctx).Warn("command reply failed", "command", command, "error", err)
	}
}

func (b *Bot) handleLink(ctx context.Context, chat models.ChatRef, rawURL string) {
	logger := logging.FromContext(ctx)

	if !looksLikeVideoURL(rawURL) {
		_ = b.gateway.SendText(ctx, chat, userMessage(pipeline.KindInvalidURL))
		return
	}

	if err := b.store.Begin(chat.UserID, rawURL); err != nil {
		_ = b.gateway.SendText(ctx, chat, userMessage(pipeline.KindDuplicateRequest))
		return
	}

	meta, err := b.provider.Lookup(ctx, rawURL)
	if err != nil {
		logger.Warn("metadata lookup failed", "url", rawURL, "error", err)
		b.store.End(chat.UserID)
		_ = b.gateway.SendText(ctx, chat, userMessage(pipeline.KindMetadataFetch))
		return
	}
	if err := b.store.Attach(chat.UserID, meta); err != nil {
		// The sweep expired the session between Begin and Attach.
		_ = b.gateway.SendText(ctx, chat, userMessage(pipeline.KindMetadataFetch))
		return
	}

	if err := b.gateway.SendModeKeyboard(ctx, chat, summarize(meta)); err != nil {
		logger.Warn("keyboard send failed", "error", err)
		b.store.End(chat.UserID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chat := models.ChatRef{ChatID: cb.Message.Chat.ID, UserID: cb.From.ID}
	ctx = logging.WithChat(ctx, chat.ChatID, chat.UserID)

	b.gateway.AckCallback(cb.ID)

	mode, ok := ParseCallback(cb.Data)
	if !ok {
		logging.FromContext(ctx).Warn("unrecognized callback token", "data", cb.Data)
		return
	}

	sess, err := b.store.Claim(chat.UserID)
	if err != nil {
		if errors.Is(err, session.ErrActiveSession) {
			_ = b.gateway.SendText(ctx, chat, userMessage(pipeline.KindDuplicateRequest))
		} else {
			_ = b.gateway.SendText(ctx, chat, "That request expired. Send the link again.")
		}
		return
	}

	b.transfer(ctx, chat, sess, mode)
}

func (b *Bot) transfer(ctx context.Context, chat models.ChatRef, sess session.Session, mode models.DeliveryMode) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		b.store.End(chat.UserID)
		return
	}
	defer b.sem.Release(1)
	defer b.store.End(chat.UserID)

	err := b.runner.Run(ctx, pipeline.Request{
		Chat: chat,
		URL:  sess.URL,
		Mode: mode,
		Meta: sess.Meta,
	})

	outcome := "success"
	if err != nil {
		kind := pipeline.KindOf(err)
		outcome = kind.String()
		logging.FromContext(ctx).Error("transfer failed",
			"url", sess.URL, "mode", mode, "kind", outcome, "error", err)
		_ = b.gateway.SendText(ctx, chat, userMessage(kind))
	}
	metrics.TransfersTotal.WithLabelValues(outcome).Inc()
}

// userMessage maps the closed error-kind set onto chat-visible text. Raw
// internal error detail never reaches the user.
func userMessage(kind pipeline.Kind) string {
	switch kind {
	case pipeline.KindInvalidURL:
		return "That doesn't look like a video link I can handle. Send a direct link to a video page."
	case pipeline.KindMetadataFetch:
		return "I couldn't read that video's details. The link may be private or unavailable."
	case pipeline.KindNoSuitableFormat:
		return "This video offers no encoding I can deliver. Try a different link."
	case pipeline.KindStream:
		return "The download failed partway through. Please try again."
	case pipeline.KindTranscode:
		return "Audio conversion failed. Please try again later."
	case pipeline.KindOversize:
		return "The file is too large for the platform to deliver."
	case pipeline.KindDuplicateRequest:
		return "You already have a download in progress. Wait for it to finish first."
	case pipeline.KindDownloadTimeout:
		return "The download took too long and was aborted. Please try again."
	}
	return "Something went wrong on my side. Please try again."
}

func looksLikeVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.Contains(u.Host, ".")
}

func summarize(meta source.Metadata) string {
	var sb strings.Builder
	sb.WriteString(meta.Title)
	if meta.Uploader != "" {
		sb.WriteString("\nby ")
		sb.WriteString(meta.Uploader)
	}
	if meta.Duration > 0 {
		sb.WriteString("\nduration ")
		sb.WriteString(formatDuration(meta.Duration))
	}
	sb.WriteString("\n\nHow should I deliver it?")
	return sb.String()
}

func formatDuration(seconds int) string {
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
