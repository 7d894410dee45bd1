package app

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clipferry/bot/internal/config"
	"github.com/clipferry/bot/internal/pipeline"
	"github.com/clipferry/bot/internal/session"
	"github.com/clipferry/bot/internal/source"
	"github.com/clipferry/bot/internal/telegram"
	"github.com/clipferry/bot/internal/transcode"
)

// Dependencies aggregates the long-lived collaborators serve needs to manage.
type Dependencies struct {
	Bot     *telegram.Bot
	Sweeper *session.Sweeper
}

// buildDependencies wires together the concrete implementations behind the
// update handler.
func buildDependencies(api *tgbotapi.BotAPI, cfg config.Config, logger *slog.Logger) Dependencies {
	provider := source.NewYTDLPProvider(cfg.YTDLPPath, cfg.YTDLPTimeout)
	opener := source.NewHTTPOpener(nil)
	transcoder := transcode.NewFFmpeg(cfg.FFmpegPath)
	gateway := telegram.NewGateway(api)
	pipe := pipeline.New(gateway, opener, transcoder, cfg.TempDir)
	store := session.NewStore(session.DefaultWindow)
	sweeper := session.NewSweeper(store, cfg.TempDir, cfg.SweepInterval, session.DefaultWindow, logger)
	bot := telegram.NewBot(gateway, provider, store, pipe, cfg.MaxTransfers, logger)

	return Dependencies{Bot: bot, Sweeper: sweeper}
}
