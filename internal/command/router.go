package command

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mailbridge/internal/domain"
	"mailbridge/internal/metrics"
	"mailbridge/internal/trace"
)

const defaultLimit = 5

// Config wires a Router to its gateways.
type Config struct {
	Mailbox   domain.MailboxGateway
	Messenger domain.MessagingGateway
	Allowlist Allowlist
	Limit     int    // unread summaries per "check"; <= 0 means 5
	Transport string // name recorded on delivery errors, e.g. "twilio"
	Logger    *slog.Logger
}

// Router handles one inbound message end to end.
type Router struct {
	mailbox   domain.MailboxGateway
	messenger domain.MessagingGateway
	allow     Allowlist
	limit     int
	transport string
	logger    *slog.Logger
}

func NewRouter(cfg Config) *Router {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		mailbox:   cfg.Mailbox,
		messenger: cfg.Messenger,
		allow:     cfg.Allowlist,
		limit:     limit,
		transport: cfg.Transport,
		logger:    logger,
	}
}

// Handle authorizes the sender, builds the reply for the classified command
// and sends it back to the sender. Every authorized message produces exactly
// one Send call; rejected senders produce none.
func (r *Router) Handle(ctx context.Context, msg domain.InboundMessage) domain.Result {
	logger := trace.Logger(ctx, r.logger).With("channel", msg.Channel)
	metrics.MessagesTotal.Inc()

	to := NormalizeAddress(msg.SenderAddress)
	if !r.allow.Permits(to) {
		metrics.UnauthorizedTotal.Inc()
		logger.Warn("rejected message from unauthorized sender", "from", to)
		return domain.Result{Status: http.StatusForbidden, Err: domain.ErrUnauthorized}
	}

	action := Classify(msg.Body)
	metrics.CommandCounter(action.String()).Inc()
	logger.Info("handling command", "from", to, "action", action.String())

	reply := r.reply(ctx, action)

	start := time.Now()
	receipt, err := r.messenger.Send(ctx, reply, to)
	metrics.DeliveryLatency.ObserveSince(start)
	if err != nil {
		metrics.DeliveryFailures.Inc()
		derr := &domain.DeliveryError{Transport: r.transport, To: to, Err: err}
		logger.Error("reply delivery failed", "action", action.String(), "error", derr)
		return domain.Result{Status: http.StatusInternalServerError, Action: action.String(), Err: derr}
	}

	metrics.DeliveriesTotal.Inc()
	logger.Debug("reply delivered", "receipt", receipt.ID, "transport", receipt.Transport)
	return domain.Result{
		Status:  http.StatusOK,
		Action:  action.String(),
		Sent:    true,
		Receipt: receipt,
	}
}

func (r *Router) reply(ctx context.Context, action Action) string {
	switch action {
	case ActionHelp:
		return helpReply
	case ActionPing:
		return pingReply
	case ActionAbout:
		return aboutReply
	case ActionCheck:
		metrics.MailboxQueries.Inc()
		start := time.Now()
		defer metrics.MailboxLatency.ObserveSince(start)
		return r.mailbox.FetchUnreadSummary(ctx, r.limit)
	default:
		return defaultReply
	}
}
