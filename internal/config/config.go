package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the clipferry bot.
type Config struct {
	BotToken      string
	AppPort       int
	WebhookBase   string
	LogLevel      string
	TempDir       string
	YTDLPPath     string
	YTDLPTimeout  time.Duration
	FFmpegPath    string
	MaxTransfers  int64
	SweepInterval time.Duration
}

// ErrMissingBotToken is returned when the required bot credential is absent.
var ErrMissingBotToken = errors.New("config: CLIPFERRY_BOT_TOKEN is required")

// Load reads configuration from environment variables, applying sensible defaults
// while requiring the bot credential token. A local .env file is honoured when
// present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BotToken:      os.Getenv("CLIPFERRY_BOT_TOKEN"),
		AppPort:       getInt("CLIPFERRY_PORT", 8080),
		WebhookBase:   getString("CLIPFERRY_WEBHOOK_BASE", ""),
		LogLevel:      getString("CLIPFERRY_LOG_LEVEL", "info"),
		TempDir:       getString("CLIPFERRY_TEMP_DIR", filepath.Join(os.TempDir(), "clipferry")),
		YTDLPPath:     getString("CLIPFERRY_YTDLP_PATH", "yt-dlp"),
		YTDLPTimeout:  getDuration("CLIPFERRY_YTDLP_TIMEOUT", 30*time.Second),
		FFmpegPath:    getString("CLIPFERRY_FFMPEG_PATH", "ffmpeg"),
		MaxTransfers:  int64(getInt("CLIPFERRY_MAX_TRANSFERS", 4)),
		SweepInterval: getDuration("CLIPFERRY_SWEEP_INTERVAL", 5*time.Minute),
	}

	if cfg.BotToken == "" {
		return Config{}, ErrMissingBotToken
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
