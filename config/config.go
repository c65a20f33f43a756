package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/geezlabs/geez-bingo/utils/logger"
)

// Config holds everything read from the environment at startup.
type Config struct {
	BotToken   string
	WebhookURL string // empty means long polling
	WebAppURL  string
	AdminID    int64
	Port       string

	DatabaseURL string // empty disables round/transaction history
	RedisAddr   string // empty means in-memory sessions

	StateFile        string
	EntryFee         int
	WinPattern       string
	AutoCallInterval time.Duration
	AllowOrigins     []string
}

// Load reads .env (when present) and the environment. Only BOT_TOKEN is
// mandatory; everything else has a default.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8000")
	v.SetDefault("WEBAPP_URL", "https://abush-bingo-bot-webapp.netlify.app")
	v.SetDefault("ADMIN_ID", 0)
	v.SetDefault("STATE_FILE", "bingo_state.json")
	v.SetDefault("ENTRY_FEE", 10)
	v.SetDefault("WIN_PATTERN", "line")
	v.SetDefault("AUTOCALL_INTERVAL", "6s")
	v.SetDefault("ALLOW_ORIGINS", "http://localhost:3000")

	cfg := &Config{
		BotToken:         v.GetString("BOT_TOKEN"),
		WebhookURL:       strings.TrimRight(v.GetString("WEBHOOK_URL"), "/"),
		WebAppURL:        v.GetString("WEBAPP_URL"),
		AdminID:          v.GetInt64("ADMIN_ID"),
		Port:             v.GetString("PORT"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		StateFile:        v.GetString("STATE_FILE"),
		EntryFee:         v.GetInt("ENTRY_FEE"),
		WinPattern:       v.GetString("WIN_PATTERN"),
		AutoCallInterval: v.GetDuration("AUTOCALL_INTERVAL"),
		AllowOrigins:     strings.Split(v.GetString("ALLOW_ORIGINS"), ","),
	}

	if cfg.BotToken == "" {
		logger.Fatalf("BOT_TOKEN is required in .env or environment")
	}
	// GetDuration returns 0 for unparseable values; a zero-period ticker
	// panics, so fall back to the default.
	if cfg.AutoCallInterval <= 0 {
		logger.Warnf("invalid AUTOCALL_INTERVAL, using 6s")
		cfg.AutoCallInterval = 6 * time.Second
	}
	return cfg
}
