package bot

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/geezlabs/geez-bingo/config"
	"github.com/geezlabs/geez-bingo/game"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

// Bot is the Telegram transport around the game engine. It translates
// commands and button presses into engine operations and engine rejections
// into reply messages; it holds no game state of its own.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *game.Engine
	cfg    *config.Config

	mu   sync.Mutex
	auto *game.AutoCaller
}

func New(cfg *config.Config, engine *game.Engine) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}
	logger.Infof("authorized on telegram as @%s", api.Self.UserName)

	return &Bot{
		api:    api,
		engine: engine,
		cfg:    cfg,
	}, nil
}

// Notifier adapts Telegram point-to-point sends for the engine.
func (b *Bot) Notifier() game.Notifier {
	return func(userID int64, text string) error {
		_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
		return err
	}
}

// Run wires update delivery. With a webhook base URL configured the updates
// arrive on the shared gin router; otherwise a long-polling loop starts.
func (b *Bot) Run(r *gin.Engine) error {
	if b.cfg.WebhookURL != "" {
		return b.runWebhook(r)
	}
	return b.runPolling()
}

func (b *Bot) runWebhook(r *gin.Engine) error {
	path := "/bot" + b.cfg.BotToken
	wh, err := tgbotapi.NewWebhook(b.cfg.WebhookURL + path)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	r.POST(path, func(c *gin.Context) {
		update, err := b.api.HandleUpdate(c.Request)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		b.handleUpdate(*update)
		c.Status(http.StatusOK)
	})

	logger.Infof("telegram webhook registered at %s%s", b.cfg.WebhookURL, path)
	return nil
}

func (b *Bot) runPolling() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warnf("webhook cleanup failed: %v", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	go func() {
		for update := range updates {
			b.handleUpdate(update)
		}
	}()

	logger.Info("telegram long polling started")
	return nil
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("recovered while handling update: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	}
}

func (b *Bot) handleCommand(m *tgbotapi.Message) {
	user := m.From
	if user == nil {
		return
	}
	args := strings.TrimSpace(m.CommandArguments())

	switch m.Command() {
	case "start":
		b.engine.EnsureAdmin(user.ID)
		b.sendWelcome(m.Chat.ID, user)
	case "join":
		cardID := 0
		if args != "" {
			id, err := strconv.Atoi(args)
			if err != nil {
				b.reply(m.Chat.ID, "Usage: /join [card number]")
				return
			}
			cardID = id
		}
		b.join(m.Chat.ID, user.ID, user.FirstName, cardID)
	case "startgame":
		res, err := b.engine.Start(user.ID)
		if err != nil {
			b.replyError(m.Chat.ID, err)
			return
		}
		b.reply(m.Chat.ID, fmt.Sprintf("🚀 Game #%d started with %d players. Pot: %d coins.",
			res.GameID, res.PlayerCount, res.Pot))
	case "call":
		b.call(m.Chat.ID, user.ID)
	case "autocall":
		b.startAutoCall(m.Chat.ID, user.ID)
	case "stopcall":
		b.stopAutoCall(m.Chat.ID, user.ID)
	case "endgame":
		if err := b.engine.End(user.ID); err != nil {
			b.replyError(m.Chat.ID, err)
			return
		}
		b.stopTicker()
		b.reply(m.Chat.ID, "🛑 Round stopped. Players and pot carry over.")
	case "reset":
		if err := b.engine.Reset(user.ID); err != nil {
			b.replyError(m.Chat.ID, err)
			return
		}
		b.stopTicker()
		b.reply(m.Chat.ID, "♻️ Game reset. All 400 cards are available again.")
	case "setpattern":
		if err := b.engine.SetPattern(user.ID, game.Pattern(args)); err != nil {
			b.replyError(m.Chat.ID, err)
			return
		}
		b.reply(m.Chat.ID, fmt.Sprintf("Win pattern set to %s.", args))
	case "setfee":
		fee, err := strconv.Atoi(args)
		if err != nil {
			b.reply(m.Chat.ID, "Usage: /setfee <coins>")
			return
		}
		if err := b.engine.SetEntryFee(user.ID, fee); err != nil {
			b.replyError(m.Chat.ID, err)
			return
		}
		b.reply(m.Chat.ID, fmt.Sprintf("Entry fee set to %d coins.", fee))
	case "stats":
		b.reply(m.Chat.ID, statsText(b.engine.Stats()))
	case "wallet":
		b.reply(m.Chat.ID, walletText(b.engine.WalletOf(user.ID), b.engine.PlayerStatsOf(user.ID)))
	case "mycard":
		card, marked, ok := b.engine.PlayerCard(user.ID)
		if !ok {
			b.reply(m.Chat.ID, "You haven't joined the current game. Use /join first.")
			return
		}
		b.reply(m.Chat.ID, fmt.Sprintf("🎫 Your card (#%d):\n%s", card.CardID, game.FormatCard(card, marked)))
	default:
		b.reply(m.Chat.ID, "Unknown command. Try /start.")
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.Warnf("callback ack failed: %v", err)
	}
	user := cq.From
	chatID := user.ID
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
	}

	switch cq.Data {
	case "quick_join":
		b.join(chatID, user.ID, user.FirstName, 0)
	case "stats":
		b.editOrReply(cq, statsText(b.engine.Stats()))
	case "wallet":
		b.editOrReply(cq, walletText(b.engine.WalletOf(user.ID), b.engine.PlayerStatsOf(user.ID)))
	default:
		logger.Debugf("unknown callback data %q from user %d", cq.Data, user.ID)
	}
}

func (b *Bot) join(chatID, userID int64, username string, cardID int) {
	res, err := b.engine.Join(userID, username, cardID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, joinText(username, res))
}

func (b *Bot) call(chatID, userID int64) {
	res, err := b.engine.Call(userID)
	if errors.Is(err, game.ErrExhausted) {
		b.reply(chatID, "🎉 All 75 numbers called, no winner. Round over.")
		return
	}
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, callText(res))
}

func (b *Bot) startAutoCall(chatID, userID int64) {
	if !b.engine.IsAdmin(userID) {
		b.replyError(chatID, game.ErrUnauthorized)
		return
	}
	if !b.engine.Active() {
		b.reply(chatID, "❌ No active game. Use /startgame first.")
		return
	}

	b.mu.Lock()
	if b.auto == nil || !b.auto.Running() {
		b.auto = game.NewAutoCaller(b.engine, userID, b.cfg.AutoCallInterval)
		b.auto.Start()
	}
	b.mu.Unlock()

	b.reply(chatID, fmt.Sprintf("⏱ Auto-call started, one number every %s.", b.cfg.AutoCallInterval))
}

func (b *Bot) stopAutoCall(chatID, userID int64) {
	if !b.engine.IsAdmin(userID) {
		b.replyError(chatID, game.ErrUnauthorized)
		return
	}
	b.stopTicker()
	b.reply(chatID, "⏱ Auto-call stopped.")
}

func (b *Bot) stopTicker() {
	b.mu.Lock()
	if b.auto != nil {
		b.auto.Stop()
	}
	b.mu.Unlock()
}

func (b *Bot) sendWelcome(chatID int64, user *tgbotapi.User) {
	sum := b.engine.Summary()
	wallet := b.engine.WalletOf(user.ID)

	msg := tgbotapi.NewMessage(chatID, welcomeText(user.FirstName, wallet, sum))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🎮 Open Card Selector", b.cfg.WebAppURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Quick Join", "quick_join"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", "stats"),
			tgbotapi.NewInlineKeyboardButtonData("💰 My Wallet", "wallet"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		logger.Warnf("welcome to chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warnf("reply to chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	b.reply(chatID, rejectionText(err))
}

func (b *Bot) editOrReply(cq *tgbotapi.CallbackQuery, text string) {
	if cq.Message == nil {
		b.reply(cq.From.ID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		logger.Warnf("edit message in chat %d failed: %v", cq.Message.Chat.ID, err)
	}
}
