// Package messaging delivers replies through an outbound chat API. Unlike
// the mailbox gateway, every transport failure is returned to the caller.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"mailbridge/internal/config"
	"mailbridge/internal/domain"
)

const (
	TransportTwilio = "twilio"
	whatsappPrefix  = "whatsapp:"
)

// messageCreator is the part of the Twilio REST API used here.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Twilio sends WhatsApp messages through the Twilio Messages API.
type Twilio struct {
	from   string
	api    messageCreator
	logger *slog.Logger
}

// NewTwilio validates the credentials in cfg and returns a ready gateway.
func NewTwilio(cfg config.TwilioConfig, logger *slog.Logger) (*Twilio, error) {
	if err := validateTwilio(cfg); err != nil {
		return nil, err
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilio(cfg.WhatsAppFrom, client.Api, logger), nil
}

func newTwilio(from string, api messageCreator, logger *slog.Logger) *Twilio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Twilio{from: from, api: api, logger: logger}
}

func validateTwilio(cfg config.TwilioConfig) error {
	var missing []string
	if cfg.AccountSID == "" {
		missing = append(missing, "account SID")
	}
	if cfg.AuthToken == "" {
		missing = append(missing, "auth token")
	}
	if cfg.WhatsAppFrom == "" {
		missing = append(missing, "WhatsApp from-number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("twilio: missing %s", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(cfg.WhatsAppFrom, whatsappPrefix) {
		return fmt.Errorf("twilio: from-number %q must start with %q", cfg.WhatsAppFrom, whatsappPrefix)
	}
	return nil
}

func (t *Twilio) Name() string { return TransportTwilio }

// Send creates one outbound message. The receipt ID is the message SID.
func (t *Twilio) Send(ctx context.Context, body, to string) (domain.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeliveryReceipt{}, err
	}
	if to == "" {
		return domain.DeliveryReceipt{}, errors.New("twilio: empty destination")
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return domain.DeliveryReceipt{}, fmt.Errorf("twilio create message: %w", err)
	}

	receipt := domain.DeliveryReceipt{Transport: TransportTwilio}
	if resp != nil && resp.Sid != nil {
		receipt.ID = *resp.Sid
	}
	t.logger.Info("whatsapp message sent", "to", to, "sid", receipt.ID, "len", len(body))
	return receipt, nil
}
