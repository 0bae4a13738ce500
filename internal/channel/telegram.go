package channel

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mailbridge/internal/domain"
	"mailbridge/internal/trace"
)

const (
	ChannelTelegram = "telegram"

	defaultPollTimeout = 30
)

// TelegramPollerConfig configures the Telegram long-polling loop.
type TelegramPollerConfig struct {
	Bot         *tgbotapi.BotAPI
	Handler     Handler
	PollTimeout int // seconds
	Logger      *slog.Logger
}

// TelegramPoller feeds Telegram messages into the same Handler as the
// WhatsApp webhook. Updates are handled one at a time.
type TelegramPoller struct {
	bot         *tgbotapi.BotAPI
	handler     Handler
	pollTimeout int
	logger      *slog.Logger
}

func NewTelegramPoller(cfg TelegramPollerConfig) *TelegramPoller {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TelegramPoller{
		bot:         cfg.Bot,
		handler:     cfg.Handler,
		pollTimeout: cfg.PollTimeout,
		logger:      cfg.Logger,
	}
}

// Run polls for updates until ctx is cancelled.
func (p *TelegramPoller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.pollTimeout
	updates := p.bot.GetUpdatesChan(u)

	p.logger.Info("telegram polling started", "username", p.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("telegram poller stopping")
			// StopReceivingUpdates panics when called twice; only call it here.
			p.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			p.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches text messages and ignores everything else. It
// reports whether the update was dispatched.
func (p *TelegramPoller) handleUpdate(ctx context.Context, update tgbotapi.Update) bool {
	if update.Message == nil || update.Message.Chat == nil {
		return false
	}

	ctx = trace.WithRequestID(ctx, trace.NewID())
	logger := trace.Logger(ctx, p.logger)

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	logger.Info("telegram message received", "chat", chatID, "text_len", len(update.Message.Text))

	res := p.handler.Handle(ctx, domain.InboundMessage{
		Channel:       ChannelTelegram,
		SenderAddress: chatID,
		Body:          update.Message.Text,
		ReceivedAt:    time.Now(),
	})
	if res.Status != http.StatusOK {
		logger.Warn("telegram message not answered", "chat", chatID, "status", res.Status, "err", res.Err)
	}
	return true
}
