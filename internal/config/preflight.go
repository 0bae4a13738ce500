package config

// Preflight reports the environment variables whose settings are required to
// serve traffic but are empty in cfg. An empty result means the bridge can
// start. An enabled Telegram bot needs an explicit chat allow-list, since
// anyone can find a bot by its username.
func Preflight(cfg *Config) []string {
	required := []struct {
		env string
		val string
	}{
		{"EMAIL_HOST", cfg.Mailbox.Host},
		{"EMAIL_USER", cfg.Mailbox.User},
		{"EMAIL_PASS", cfg.Mailbox.Password},
		{"TWILIO_ACCOUNT_SID", cfg.Twilio.AccountSID},
		{"TWILIO_AUTH_TOKEN", cfg.Twilio.AuthToken},
		{"TWILIO_WHATSAPP_FROM", cfg.Twilio.WhatsAppFrom},
		{"ALLOWED_NUMBERS", cfg.WhatsApp.AllowedNumbers},
	}
	if cfg.Telegram.Enabled {
		required = append(required, []struct {
			env string
			val string
		}{
			{"TELEGRAM_BOT_TOKEN", cfg.Telegram.Token},
			{"TELEGRAM_ALLOWED_CHATS", cfg.Telegram.AllowedChats},
		}...)
	}

	var missing []string
	for _, r := range required {
		if r.val == "" {
			missing = append(missing, r.env)
		}
	}
	return missing
}
