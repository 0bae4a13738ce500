// Package channel is the inbound side of the bridge: the Twilio webhook, the
// Telegram poller and the HTTP server that hosts the webhook.
package channel

import (
	"context"
	"encoding/json"
	"net/http"

	"mailbridge/internal/domain"
)

// Handler processes one inbound message. command.Router implements it.
type Handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) domain.Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg domain.InboundMessage) domain.Result

func (f HandlerFunc) Handle(ctx context.Context, msg domain.InboundMessage) domain.Result {
	return f(ctx, msg)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}
