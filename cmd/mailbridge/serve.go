package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mailbridge/internal/channel"
	"mailbridge/internal/command"
	"mailbridge/internal/config"
	"mailbridge/internal/mailbox"
	"mailbridge/internal/messaging"
	"mailbridge/internal/metrics"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server (and Telegram poller when enabled)",
		Long:  "Serves the WhatsApp webhook and health endpoint until interrupted. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	missing, openWhatsApp := splitPreflight(config.Preflight(cfg))
	if openWhatsApp {
		logger.Warn("ALLOWED_NUMBERS is empty: every sender is authorized")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mail := mailbox.NewFromConfig(cfg.Mailbox, logger.With("component", "mailbox"))

	twilio, err := messaging.NewTwilio(cfg.Twilio, logger.With("component", "twilio"))
	if err != nil {
		return err
	}

	router := command.NewRouter(command.Config{
		Mailbox:   mail,
		Messenger: twilio,
		Allowlist: command.NewAllowlist(cfg.WhatsApp.AllowedNumbers),
		Limit:     cfg.Mailbox.Limit,
		Transport: messaging.TransportTwilio,
		Logger:    logger,
	})

	hook := channel.WebhookConfig{
		Path:    cfg.WhatsApp.WebhookPath,
		Handler: router,
		Logger:  logger,
	}
	if cfg.WhatsApp.ValidateSignature {
		hook.AuthToken = cfg.Twilio.AuthToken
		hook.PublicURL = cfg.WhatsApp.PublicURL
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Collector.Handler()
	}

	server := channel.NewServer(channel.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		HealthPath:      cfg.Server.HealthPath,
		Version:         version,
		Webhook:         channel.NewWebhook(hook),
		Metrics:         metricsHandler,
		MetricsPath:     cfg.Metrics.Path,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		Logger:          logger,
	})

	if cfg.Telegram.Enabled {
		if err := startTelegram(ctx, cfg, mail); err != nil {
			return err
		}
	} else {
		logger.Info("telegram channel disabled")
	}

	logger.Info("mailbridge started",
		"webhook", "http://"+server.Addr()+cfg.WhatsApp.WebhookPath,
		"health", "http://"+server.Addr()+cfg.Server.HealthPath,
		"signature_check", cfg.WhatsApp.ValidateSignature,
	)

	err = server.Start(ctx)
	logger.Info("shutdown complete")
	return err
}

// splitPreflight separates the settings serve cannot start without from an
// empty WhatsApp allow-list, which only opens the webhook to every sender.
// An empty Telegram allow-list stays fatal.
func splitPreflight(names []string) (missing []string, openWhatsApp bool) {
	for _, name := range names {
		if name == "ALLOWED_NUMBERS" {
			openWhatsApp = true
			continue
		}
		missing = append(missing, name)
	}
	return missing, openWhatsApp
}

// startTelegram answers the same commands over a Telegram bot, with its own
// allow-list of chat IDs.
func startTelegram(ctx context.Context, cfg *config.Config, mail *mailbox.Gateway) error {
	allow := command.NewAllowlist(cfg.Telegram.AllowedChats)
	if allow.Open() {
		return fmt.Errorf("telegram is enabled but TELEGRAM_ALLOWED_CHATS is empty")
	}

	pollTimeout := time.Duration(cfg.Telegram.PollTimeoutSeconds) * time.Second
	tg, err := messaging.NewTelegram(messaging.TelegramConfig{
		Token:      cfg.Telegram.Token,
		HTTPClient: messaging.NewLongPollClient(pollTimeout),
		Logger:     logger.With("component", "telegram"),
	})
	if err != nil {
		return err
	}

	router := command.NewRouter(command.Config{
		Mailbox:   mail,
		Messenger: tg,
		Allowlist: allow,
		Limit:     cfg.Mailbox.Limit,
		Transport: messaging.TransportTelegram,
		Logger:    logger,
	})

	poller := channel.NewTelegramPoller(channel.TelegramPollerConfig{
		Bot:         tg.Bot(),
		Handler:     router,
		PollTimeout: cfg.Telegram.PollTimeoutSeconds,
		Logger:      logger,
	})
	go func() {
		if err := poller.Run(ctx); err != nil {
			logger.Error("telegram poller error", "err", err)
		}
	}()
	logger.Info("telegram channel enabled")
	return nil
}
