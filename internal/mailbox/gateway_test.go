package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
)

type fakeSession struct {
	uids      []imap.UID
	headers   map[imap.UID]string
	selectErr error
	searchErr error
	fetchErr  error

	selected string
	fetched  []imap.UID
	closed   int
}

func (s *fakeSession) Select(_ context.Context, mailbox string) error {
	s.selected = mailbox
	return s.selectErr
}

func (s *fakeSession) SearchUnseen(context.Context) ([]imap.UID, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.uids, nil
}

func (s *fakeSession) FetchHeaders(_ context.Context, uids []imap.UID) ([][]byte, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.fetched = append(s.fetched, uids...)
	out := make([][]byte, len(uids))
	for i, uid := range uids {
		if h, ok := s.headers[uid]; ok {
			out[i] = []byte(h)
		}
	}
	return out, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

func newTestGateway(sess *fakeSession, dialErr error) *Gateway {
	return New(Config{
		Dial: func(context.Context) (Session, error) {
			if dialErr != nil {
				return nil, dialErr
			}
			return sess, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func header(from, subject string) string {
	return fmt.Sprintf("From: %s\r\nSubject: %s\r\nDate: Tue, 4 Mar 2025 09:30:00 +0000\r\n\r\n", from, subject)
}

func TestFetchUnreadSummary_NoUnread(t *testing.T) {
	sess := &fakeSession{}
	got := newTestGateway(sess, nil).FetchUnreadSummary(context.Background(), 5)
	if got != "No unread emails found." {
		t.Errorf("unexpected: %q", got)
	}
	if sess.selected != "INBOX" {
		t.Errorf("expected INBOX to be selected, got %q", sess.selected)
	}
	if sess.closed != 1 {
		t.Errorf("expected session closed once, got %d", sess.closed)
	}
}

func TestFetchUnreadSummary_SingleMessage(t *testing.T) {
	sess := &fakeSession{
		uids:    []imap.UID{42},
		headers: map[imap.UID]string{42: header("boss@company.com", "Important: Project Update")},
	}
	got := newTestGateway(sess, nil).FetchUnreadSummary(context.Background(), 5)

	want := "Found 1 unread email(s):\n\n" +
		"1.  From: boss@company.com\n    Subject: Important: Project Update\n    Date: 3/4/2025\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFetchUnreadSummary_RespectsLimitInSearchOrder(t *testing.T) {
	sess := &fakeSession{
		uids:    []imap.UID{9, 3, 7, 1, 5, 8, 2},
		headers: map[imap.UID]string{},
	}
	for _, uid := range sess.uids {
		sess.headers[uid] = header(fmt.Sprintf("u%d@example.com", uid), "s")
	}

	got := newTestGateway(sess, nil).FetchUnreadSummary(context.Background(), 3)

	if !strings.HasPrefix(got, "Found 3 unread email(s):") {
		t.Errorf("expected 3 entries, got %q", got)
	}
	if fmt.Sprint(sess.fetched) != fmt.Sprint([]imap.UID{9, 3, 7}) {
		t.Errorf("expected first three UIDs in search order, fetched %v", sess.fetched)
	}
	first := strings.Index(got, "u9@example.com")
	second := strings.Index(got, "u3@example.com")
	if first < 0 || second < 0 || first > second {
		t.Errorf("entries out of order:\n%s", got)
	}
}

func TestFetchUnreadSummary_DefaultLimit(t *testing.T) {
	sess := &fakeSession{headers: map[imap.UID]string{}}
	for i := 1; i <= 8; i++ {
		sess.uids = append(sess.uids, imap.UID(i))
	}
	got := newTestGateway(sess, nil).FetchUnreadSummary(context.Background(), 0)
	if len(sess.fetched) != 5 {
		t.Errorf("expected default limit of 5, fetched %d", len(sess.fetched))
	}
	// No headers came back: every slot is unreadable but still numbered.
	if strings.Count(got, "Error: Could not read email") != 5 {
		t.Errorf("expected 5 unreadable entries:\n%s", got)
	}
}

func TestFetchUnreadSummary_Failures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		sess    *fakeSession
		dialErr error
	}{
		{"dial", &fakeSession{}, boom},
		{"select", &fakeSession{selectErr: boom}, nil},
		{"search", &fakeSession{searchErr: boom}, nil},
		{"fetch", &fakeSession{uids: []imap.UID{1}, fetchErr: boom}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestGateway(tt.sess, tt.dialErr).FetchUnreadSummary(context.Background(), 5)
			if got != "Error fetching emails. Please try again later." {
				t.Errorf("unexpected reply %q", got)
			}
			wantClosed := 1
			if tt.dialErr != nil {
				wantClosed = 0
			}
			if tt.sess.closed != wantClosed {
				t.Errorf("expected %d Close calls, got %d", wantClosed, tt.sess.closed)
			}
		})
	}
}

func TestFetchUnreadSummary_ClosesSessionWhenSearchFails(t *testing.T) {
	sess := &fakeSession{searchErr: errors.New("connection reset")}
	newTestGateway(sess, nil).FetchUnreadSummary(context.Background(), 5)
	if sess.closed != 1 {
		t.Fatalf("expected session cleanup after search failure, got %d closes", sess.closed)
	}
}

func TestFetch_ReturnsErrors(t *testing.T) {
	sess := &fakeSession{searchErr: errors.New("nope")}
	if _, err := newTestGateway(sess, nil).Fetch(context.Background(), 5); err == nil {
		t.Fatal("expected Fetch to surface the error")
	}
}

func TestFetch_ReportsUnseenBeyondLimit(t *testing.T) {
	sess := &fakeSession{
		uids: []imap.UID{1, 2, 3, 4},
		headers: map[imap.UID]string{
			1: header("a@example.com", "one"),
			2: header("b@example.com", "two"),
		},
	}
	rep, err := newTestGateway(sess, nil).Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Unseen != 4 {
		t.Errorf("expected 4 unseen, got %d", rep.Unseen)
	}
	if len(rep.Items) != 2 || rep.Items[1].From != "b@example.com" {
		t.Errorf("unexpected items %+v", rep.Items)
	}
}

func TestNew_CustomMailbox(t *testing.T) {
	sess := &fakeSession{}
	g := New(Config{
		Mailbox: "Archive",
		Dial:    func(context.Context) (Session, error) { return sess, nil },
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	g.FetchUnreadSummary(context.Background(), 1)
	if sess.selected != "Archive" {
		t.Errorf("expected Archive, got %q", sess.selected)
	}
}

func TestNew_NoDialer(t *testing.T) {
	g := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if got := g.FetchUnreadSummary(context.Background(), 5); got != fetchErrorReply {
		t.Errorf("unexpected: %q", got)
	}
}
