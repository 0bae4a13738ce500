package config

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   3000,
			HealthPath:             "/health",
			ShutdownTimeoutSeconds: 10,
		},
		Mailbox: MailboxConfig{
			Host:               "imap.gmail.com",
			Port:               993,
			TLS:                true,
			Mailbox:            "INBOX",
			Limit:              5,
			DialTimeoutSeconds: 10,
		},
		WhatsApp: WhatsAppConfig{
			WebhookPath: "/whatsapp",
		},
		Telegram: TelegramConfig{
			Enabled:            false,
			PollTimeoutSeconds: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}

// envBindings maps config keys to the environment variables that override
// them. The names match the variables the service has always been deployed
// with.
var envBindings = map[string]string{
	"server.host": "HOST",
	"server.port": "PORT",

	"mailbox.host":                 "EMAIL_HOST",
	"mailbox.port":                 "EMAIL_PORT",
	"mailbox.user":                 "EMAIL_USER",
	"mailbox.password":             "EMAIL_PASS",
	"mailbox.tls":                  "EMAIL_TLS",
	"mailbox.insecure_skip_verify": "EMAIL_TLS_INSECURE",
	"mailbox.mailbox":              "EMAIL_MAILBOX",
	"mailbox.limit":                "EMAIL_LIMIT",

	"twilio.account_sid":   "TWILIO_ACCOUNT_SID",
	"twilio.auth_token":    "TWILIO_AUTH_TOKEN",
	"twilio.whatsapp_from": "TWILIO_WHATSAPP_FROM",

	"whatsapp.webhook_path":       "WHATSAPP_WEBHOOK_PATH",
	"whatsapp.allowed_numbers":    "ALLOWED_NUMBERS",
	"whatsapp.validate_signature": "TWILIO_VALIDATE_SIGNATURE",
	"whatsapp.public_url":         "PUBLIC_URL",

	"telegram.enabled":       "TELEGRAM_ENABLED",
	"telegram.token":         "TELEGRAM_BOT_TOKEN",
	"telegram.allowed_chats": "TELEGRAM_ALLOWED_CHATS",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",

	"metrics.enabled": "METRICS_ENABLED",
}
