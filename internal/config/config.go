package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for mailbridge. It is assembled once at
// startup and handed to each component as read-only input.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Mailbox  MailboxConfig  `mapstructure:"mailbox" yaml:"mailbox" json:"mailbox"`
	Twilio   TwilioConfig   `mapstructure:"twilio" yaml:"twilio" json:"twilio"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp" yaml:"whatsapp" json:"whatsapp"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram" json:"telegram"`
	Log      LogConfig      `mapstructure:"log" yaml:"log" json:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

type ServerConfig struct {
	Host                   string `mapstructure:"host" yaml:"host" json:"host"`
	Port                   int    `mapstructure:"port" yaml:"port" json:"port"`
	HealthPath             string `mapstructure:"health_path" yaml:"health_path" json:"healthPath"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" json:"shutdownTimeoutSeconds"`
}

// MailboxConfig holds the IMAP account the "check" command reads from.
type MailboxConfig struct {
	Host               string `mapstructure:"host" yaml:"host" json:"host"`
	Port               int    `mapstructure:"port" yaml:"port" json:"port"`
	User               string `mapstructure:"user" yaml:"user" json:"user"`
	Password           string `mapstructure:"password" yaml:"password" json:"password"`
	TLS                bool   `mapstructure:"tls" yaml:"tls" json:"tls"` // implicit TLS; STARTTLS when false
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify" json:"insecureSkipVerify"`
	Mailbox            string `mapstructure:"mailbox" yaml:"mailbox" json:"mailbox"`
	Limit              int    `mapstructure:"limit" yaml:"limit" json:"limit"`
	DialTimeoutSeconds int    `mapstructure:"dial_timeout_seconds" yaml:"dial_timeout_seconds" json:"dialTimeoutSeconds"`
}

type TwilioConfig struct {
	AccountSID   string `mapstructure:"account_sid" yaml:"account_sid" json:"accountSid"`
	AuthToken    string `mapstructure:"auth_token" yaml:"auth_token" json:"authToken"`
	WhatsAppFrom string `mapstructure:"whatsapp_from" yaml:"whatsapp_from" json:"whatsappFrom"`
}

// WhatsAppConfig configures the inbound Twilio webhook.
type WhatsAppConfig struct {
	WebhookPath string `mapstructure:"webhook_path" yaml:"webhook_path" json:"webhookPath"`
	// AllowedNumbers is matched by substring containment, not parsed.
	AllowedNumbers    string `mapstructure:"allowed_numbers" yaml:"allowed_numbers" json:"allowedNumbers"`
	ValidateSignature bool   `mapstructure:"validate_signature" yaml:"validate_signature" json:"validateSignature"`
	PublicURL         string `mapstructure:"public_url" yaml:"public_url" json:"publicUrl,omitempty"` // externally visible base URL Twilio signs
}

type TelegramConfig struct {
	Enabled            bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Token              string `mapstructure:"token" yaml:"token" json:"token"`
	AllowedChats       string `mapstructure:"allowed_chats" yaml:"allowed_chats" json:"allowedChats"`
	PollTimeoutSeconds int    `mapstructure:"poll_timeout_seconds" yaml:"poll_timeout_seconds" json:"pollTimeoutSeconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text | json
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

// LoadOptions selects the optional file sources layered under the environment.
type LoadOptions struct {
	Path    string // YAML/JSON config file; empty means environment only
	EnvFile string // .env file; empty means ".env" when present
}

const defaultEnvFile = ".env"

// Load assembles the configuration from defaults, the optional config file,
// the optional .env file and the process environment, in that order of
// increasing precedence, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()

	if opts.Path != "" {
		path := ExpandPath(opts.Path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}

		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))

		v.SetConfigType(configType(path))
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}

	cfg.WhatsApp.PublicURL = strings.TrimRight(cfg.WhatsApp.PublicURL, "/")

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("cannot load env file %s: %w", path, err)
	}
	return nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values. Missing credentials are
// reported by Preflight, not here, so that partial configs can still be
// inspected.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(cfg.Server.HealthPath, "/") {
		errs = append(errs, "server.health_path must start with /")
	}
	if cfg.Server.ShutdownTimeoutSeconds < 1 {
		errs = append(errs, "server.shutdown_timeout_seconds must be >= 1")
	}

	if cfg.Mailbox.Port < 1 || cfg.Mailbox.Port > 65535 {
		errs = append(errs, "mailbox.port must be between 1 and 65535")
	}
	if cfg.Mailbox.Limit < 1 || cfg.Mailbox.Limit > 50 {
		errs = append(errs, "mailbox.limit must be between 1 and 50")
	}
	if cfg.Mailbox.Mailbox == "" {
		errs = append(errs, "mailbox.mailbox must not be empty")
	}
	if cfg.Mailbox.DialTimeoutSeconds < 1 {
		errs = append(errs, "mailbox.dial_timeout_seconds must be >= 1")
	}

	if !strings.HasPrefix(cfg.WhatsApp.WebhookPath, "/") {
		errs = append(errs, "whatsapp.webhook_path must start with /")
	}
	if cfg.WhatsApp.ValidateSignature {
		if u, err := url.Parse(cfg.WhatsApp.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "whatsapp.public_url must be an absolute URL when validate_signature is set")
		}
	}

	if cfg.Telegram.PollTimeoutSeconds < 1 {
		errs = append(errs, "telegram.poll_timeout_seconds must be >= 1")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be one of: text, json")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
