package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"mailbridge/internal/config"
)

// Session is one authenticated IMAP connection. Sessions are opened per
// query and never shared.
type Session interface {
	Select(ctx context.Context, mailbox string) error
	// SearchUnseen returns the UIDs of messages without the \Seen flag, in
	// the order the server reported them.
	SearchUnseen(ctx context.Context) ([]imap.UID, error)
	// FetchHeaders returns the raw header block of each UID, positionally.
	// A nil entry means the server returned no header for that UID.
	FetchHeaders(ctx context.Context, uids []imap.UID) ([][]byte, error)
	// Close logs out and releases the connection.
	Close() error
}

// DialFunc opens an authenticated Session.
type DialFunc func(ctx context.Context) (Session, error)

// Dial returns a DialFunc connecting to the account described by cfg.
// Implicit TLS is used when cfg.TLS is set, STARTTLS otherwise.
func Dial(cfg config.MailboxConfig) DialFunc {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	timeout := time.Duration(cfg.DialTimeoutSeconds) * time.Second

	return func(ctx context.Context) (Session, error) {
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
		}

		tlsConfig := &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}
		opts := &imapclient.Options{TLSConfig: tlsConfig}

		var client *imapclient.Client
		if cfg.TLS {
			client = imapclient.New(tls.Client(conn, tlsConfig), opts)
		} else {
			client, err = imapclient.NewStartTLS(conn, opts)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("starttls %s: %w", addr, err)
			}
		}

		if err := client.Login(cfg.User, cfg.Password).Wait(); err != nil {
			client.Close()
			return nil, fmt.Errorf("authentication failed for %s: %w", cfg.User, err)
		}
		return &imapSession{client: client}, nil
	}
}

type imapSession struct {
	client *imapclient.Client
}

func (s *imapSession) Select(ctx context.Context, mailbox string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}
	return nil
}

func (s *imapSession) SearchUnseen(ctx context.Context) ([]imap.UID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}
	return data.AllUIDs(), nil
}

func (s *imapSession) FetchHeaders(ctx context.Context, uids []imap.UID) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// PEEK keeps the messages unseen.
	section := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierHeader,
		Peek:      true,
	}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	byUID := make(map[imap.UID][]byte, len(uids))
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		byUID[buf.UID] = buf.FindBodySection(section)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching headers: %w", err)
	}

	// Servers answer FETCH in their own order; restore search order.
	headers := make([][]byte, len(uids))
	for i, uid := range uids {
		headers[i] = byUID[uid]
	}
	return headers, nil
}

func (s *imapSession) Close() error {
	logoutErr := s.client.Logout().Wait()
	closeErr := s.client.Close()
	if logoutErr != nil {
		return fmt.Errorf("logout: %w", logoutErr)
	}
	return closeErr
}
