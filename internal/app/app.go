package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clipferry/bot/internal/config"
	"github.com/clipferry/bot/internal/handlers"
	"github.com/clipferry/bot/internal/httpserver"
	"github.com/clipferry/bot/internal/middleware"
)

// Run bootstraps the clipferry bot application.
func Run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		return serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("authorized on bot account", "username", api.Self.UserName)

	deps := buildDependencies(api, cfg, logger)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, handlers.Dependencies{Updates: deps.Bot})
	handler := middleware.RequestLogger(logger)(mux)
	srv := httpserver.New(cfg.AppPort, handler)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, err := updateSource(api, cfg, deps, logger)
	if err != nil {
		return err
	}

	deps.Sweeper.Start(runCtx)

	botDone := make(chan struct{})
	go func() {
		deps.Bot.Run(runCtx, updates)
		close(botDone)
	}()

	logger.Info("starting http server", "port", cfg.AppPort)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	cancel()
	api.StopReceivingUpdates()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		logger.Warn("timed out waiting for in-flight transfers")
	}

	if err := deps.Sweeper.Shutdown(shutdownCtx); err != nil {
		logger.Warn("sweeper shutdown", "error", err)
	}

	return srv.Shutdown(shutdownCtx)
}

// updateSource picks webhook intake when a public base URL is configured and
// long polling otherwise, mirroring the platform's dual transport.
func updateSource(api *tgbotapi.BotAPI, cfg config.Config, deps Dependencies, logger *slog.Logger) (<-chan tgbotapi.Update, error) {
	if cfg.WebhookBase != "" {
		endpoint := strings.TrimRight(cfg.WebhookBase, "/") + "/webhook"
		wh, err := tgbotapi.NewWebhook(endpoint)
		if err != nil {
			return nil, fmt.Errorf("build webhook config: %w", err)
		}
		if _, err := api.Request(wh); err != nil {
			return nil, fmt.Errorf("register webhook: %w", err)
		}
		logger.Info("webhook registered", "endpoint", endpoint)
		return deps.Bot.WebhookUpdates(), nil
	}

	// Polling mode must not fight a stale webhook registration.
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("delete webhook", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return api.GetUpdatesChan(u), nil
}
