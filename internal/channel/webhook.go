package channel

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"

	"mailbridge/internal/domain"
	"mailbridge/internal/trace"
)

const (
	ChannelWhatsApp = "whatsapp"

	defaultWebhookPath = "/whatsapp"
	maxWebhookBody     = 1 << 20 // 1MB
	signatureHeader    = "X-Twilio-Signature"
)

// WebhookConfig configures the Twilio WhatsApp webhook.
type WebhookConfig struct {
	Path    string
	Handler Handler
	// AuthToken enables X-Twilio-Signature checks when set. PublicURL is the
	// externally visible base URL Twilio signs against.
	AuthToken string
	PublicURL string
	Logger    *slog.Logger
}

// Webhook accepts Twilio's inbound message callbacks.
type Webhook struct {
	path      string
	handler   Handler
	validator *twilioclient.RequestValidator
	publicURL string
	logger    *slog.Logger
}

// webhookPayload carries the fields read from a JSON body. Twilio itself
// posts form-encoded data with the same names.
type webhookPayload struct {
	From string `json:"From"`
	Body string `json:"Body"`
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Path == "" {
		cfg.Path = defaultWebhookPath
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	w := &Webhook{
		path:      cfg.Path,
		handler:   cfg.Handler,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    cfg.Logger,
	}
	if cfg.AuthToken != "" {
		v := twilioclient.NewRequestValidator(cfg.AuthToken)
		w.validator = &v
	}
	return w
}

func (w *Webhook) Path() string { return w.path }

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if trace.RequestID(ctx) == "" {
		ctx = trace.WithRequestID(ctx, trace.NewID())
	}
	logger := trace.Logger(ctx, w.logger)

	r.Body = http.MaxBytesReader(rw, r.Body, maxWebhookBody)
	payload, params, err := readWebhook(r)
	if err != nil {
		logger.Warn("webhook bad payload", "err", err)
		writeError(rw, http.StatusBadRequest, "Bad request")
		return
	}

	if w.validator != nil {
		url := w.publicURL + r.URL.RequestURI()
		if !w.validator.Validate(url, params, r.Header.Get(signatureHeader)) {
			logger.Warn("webhook invalid signature", "url", url)
			writeError(rw, http.StatusForbidden, "Invalid signature")
			return
		}
	}

	if payload.From == "" {
		writeError(rw, http.StatusBadRequest, "Missing From")
		return
	}

	logger.Info("whatsapp message received", "from", payload.From, "text_len", len(payload.Body))

	res := w.handler.Handle(ctx, domain.InboundMessage{
		Channel:       ChannelWhatsApp,
		SenderAddress: payload.From,
		Body:          payload.Body,
		ReceivedAt:    time.Now(),
	})

	switch res.Status {
	case http.StatusOK:
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		io.WriteString(rw, "OK")
	case http.StatusForbidden:
		writeError(rw, http.StatusForbidden, "Unauthorized")
	default:
		writeError(rw, http.StatusInternalServerError, "Internal server error")
	}
}

// readWebhook decodes a JSON or form-encoded body. params holds every form
// field for signature validation; it is empty for JSON bodies.
func readWebhook(r *http.Request) (webhookPayload, map[string]string, error) {
	params := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				return p, params, nil
			}
			return p, params, err
		}
		return p, params, nil
	}

	if err := r.ParseForm(); err != nil {
		return webhookPayload{}, params, err
	}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return webhookPayload{
		From: r.PostForm.Get("From"),
		Body: r.PostForm.Get("Body"),
	}, params, nil
}
