// Package mailbox answers "check" by listing the unread messages of an IMAP
// mailbox. Every failure is contained here and reported to the user as a
// fixed apology string.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"

	"mailbridge/internal/config"
	"mailbridge/internal/metrics"
	"mailbridge/internal/trace"
)

const (
	defaultMailbox = "INBOX"
	defaultLimit   = 5
)

// Config wires a Gateway.
type Config struct {
	Mailbox string // mailbox to select; empty means INBOX
	Dial    DialFunc
	Logger  *slog.Logger
}

// Gateway implements domain.MailboxGateway over IMAP.
type Gateway struct {
	mailbox string
	dial    DialFunc
	logger  *slog.Logger
}

func New(cfg Config) *Gateway {
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = defaultMailbox
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{mailbox: mailbox, dial: cfg.Dial, logger: logger}
}

// NewFromConfig builds a Gateway that dials the account in cfg.
func NewFromConfig(cfg config.MailboxConfig, logger *slog.Logger) *Gateway {
	return New(Config{Mailbox: cfg.Mailbox, Dial: Dial(cfg), Logger: logger})
}

// FetchUnreadSummary lists up to limit unread messages (5 when limit <= 0).
// It never fails: errors are logged and replaced with a fixed message.
func (g *Gateway) FetchUnreadSummary(ctx context.Context, limit int) string {
	if limit <= 0 {
		limit = defaultLimit
	}
	logger := trace.Logger(ctx, g.logger)

	rep, err := g.fetch(ctx, limit, logger)
	if err != nil {
		metrics.MailboxFailures.Inc()
		logger.Error("error fetching unread emails", "mailbox", g.mailbox, "error", err)
		return fetchErrorReply
	}
	logger.Info("fetched unread emails", "mailbox", g.mailbox, "count", len(rep.Items), "unseen", rep.Unseen)
	return Format(rep.Items)
}

// Report is the outcome of one unread-mail query.
type Report struct {
	Unseen int       // unseen messages the server reported
	Items  []Summary // the first min(Unseen, limit) of them
}

// Fetch returns the parsed summaries without formatting. Errors are
// returned to the caller.
func (g *Gateway) Fetch(ctx context.Context, limit int) (Report, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return g.fetch(ctx, limit, trace.Logger(ctx, g.logger))
}

func (g *Gateway) fetch(ctx context.Context, limit int, logger *slog.Logger) (Report, error) {
	if g.dial == nil {
		return Report{}, fmt.Errorf("mailbox gateway has no dialer")
	}
	sess, err := g.dial(ctx)
	if err != nil {
		return Report{}, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("closing IMAP session", "error", err)
		}
	}()

	if err := sess.Select(ctx, g.mailbox); err != nil {
		return Report{}, err
	}

	uids, err := sess.SearchUnseen(ctx)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Unseen: len(uids)}
	if len(uids) == 0 {
		return rep, nil
	}
	if len(uids) > limit {
		uids = uids[:limit]
	}

	headers, err := sess.FetchHeaders(ctx, uids)
	if err != nil {
		return Report{}, err
	}

	items := make([]Summary, len(uids))
	for i := range uids {
		var raw []byte
		if i < len(headers) {
			raw = headers[i]
		}
		items[i] = parseSummary(raw)
	}
	rep.Items = items
	return rep, nil
}
