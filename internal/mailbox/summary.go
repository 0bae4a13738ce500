package mailbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

const (
	noUnreadReply   = "No unread emails found."
	fetchErrorReply = "Error fetching emails. Please try again later."

	noSubject = "(No Subject)"
	noSender  = "(Unknown Sender)"
	noDate    = "(No Date)"

	dateLayout = "1/2/2006"

	// maxSummaryLen keeps the reply inside a single WhatsApp message.
	maxSummaryLen = 1500
)

// Summary is the displayable part of one unread message.
type Summary struct {
	From       string
	Subject    string
	Date       string
	Unreadable bool
}

// parseSummary extracts From, Subject and Date from a raw header block.
// Missing fields fall back to placeholders; a block that cannot be parsed
// at all is marked Unreadable.
func parseSummary(raw []byte) Summary {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Summary{Unreadable: true}
	}

	th, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	// A header block without the terminating blank line ends in EOF.
	if err != nil && !(errors.Is(err, io.EOF) && th.Len() > 0) {
		return Summary{Unreadable: true}
	}
	h := mail.Header{Header: message.Header{Header: th}}

	s := Summary{Subject: noSubject, From: noSender, Date: noDate}

	if subject, err := h.Subject(); err == nil && subject != "" {
		s.Subject = subject
	} else if rawSubject := h.Get("Subject"); rawSubject != "" {
		s.Subject = rawSubject
	}

	if from, err := h.Text("From"); err == nil && from != "" {
		s.From = from
	} else if rawFrom := h.Get("From"); rawFrom != "" {
		s.From = rawFrom
	}

	if h.Has("Date") {
		if date, err := h.Date(); err == nil && !date.IsZero() {
			s.Date = date.Format(dateLayout)
		}
	}
	return s
}

// Format renders summaries as the numbered reply text, capped at
// maxSummaryLen characters.
func Format(items []Summary) string {
	if len(items) == 0 {
		return noUnreadReply
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d unread email(s):\n\n", len(items))
	for i, s := range items {
		if s.Unreadable {
			fmt.Fprintf(&sb, "%d.  Error: Could not read email\n\n", i+1)
			continue
		}
		fmt.Fprintf(&sb, "%d.  From: %s\n", i+1, s.From)
		fmt.Fprintf(&sb, "    Subject: %s\n", s.Subject)
		fmt.Fprintf(&sb, "    Date: %s\n\n", s.Date)
	}
	return truncate(sb.String(), maxSummaryLen)
}

// truncate cuts s to at most max characters, marking the cut with "...".
// Length is counted in runes so multi-byte characters are never split.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
