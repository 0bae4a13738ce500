package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mailbridge/internal/domain"
)

const TransportTelegram = "telegram"

type TelegramConfig struct {
	Token      string
	Endpoint   string // Bot API endpoint format; empty means api.telegram.org
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Telegram sends replies through the Telegram Bot API. Destinations are
// numeric chat IDs.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewTelegram connects to the Bot API and verifies the token with getMe.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram: missing bot token")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = NewLongPollClient(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	return &Telegram{bot: bot, logger: logger}, nil
}

func (t *Telegram) Name() string { return TransportTelegram }

// Bot exposes the underlying client so the inbound poller can share it.
func (t *Telegram) Bot() *tgbotapi.BotAPI { return t.bot }

// Send posts body to the chat identified by to.
func (t *Telegram) Send(ctx context.Context, body, to string) (domain.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeliveryReceipt{}, err
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return domain.DeliveryReceipt{}, fmt.Errorf("telegram: invalid chat ID %q: %w", to, err)
	}

	sent, err := t.bot.Send(tgbotapi.NewMessage(chatID, body))
	if err != nil {
		return domain.DeliveryReceipt{}, fmt.Errorf("telegram send: %w", err)
	}

	id := strconv.Itoa(sent.MessageID)
	t.logger.Info("telegram message sent", "chat", chatID, "message_id", id, "len", len(body))
	return domain.DeliveryReceipt{ID: id, Transport: TransportTelegram}, nil
}
