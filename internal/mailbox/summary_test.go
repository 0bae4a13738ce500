package mailbox

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseSummary_AllFields(t *testing.T) {
	raw := "From: boss@company.com\r\n" +
		"Subject: Important: Project Update\r\n" +
		"Date: Tue, 4 Mar 2025 09:30:00 +0000\r\n" +
		"\r\n"
	got := parseSummary([]byte(raw))
	want := Summary{From: "boss@company.com", Subject: "Important: Project Update", Date: "3/4/2025"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseSummary_DisplayNameAndEncodedSubject(t *testing.T) {
	raw := "From: Jane Doe <jane@example.com>\r\n" +
		"Subject: =?UTF-8?B?Q2Fmw6k=?=\r\n\r\n"
	got := parseSummary([]byte(raw))
	if got.From != "Jane Doe <jane@example.com>" {
		t.Errorf("unexpected from %q", got.From)
	}
	if got.Subject != "Café" {
		t.Errorf("expected decoded subject, got %q", got.Subject)
	}
}

func TestParseSummary_Defaults(t *testing.T) {
	got := parseSummary([]byte("X-Mailer: test\r\n\r\n"))
	want := Summary{From: noSender, Subject: noSubject, Date: noDate}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseSummary_BadDate(t *testing.T) {
	got := parseSummary([]byte("Subject: hi\r\nDate: sometime last week\r\n\r\n"))
	if got.Date != noDate {
		t.Errorf("expected %q for unparseable date, got %q", noDate, got.Date)
	}
	if got.Subject != "hi" {
		t.Errorf("unexpected subject %q", got.Subject)
	}
}

func TestParseSummary_MissingTerminator(t *testing.T) {
	got := parseSummary([]byte("Subject: no blank line"))
	if got.Unreadable || got.Subject != "no blank line" {
		t.Errorf("expected header without terminator to parse, got %+v", got)
	}
}

func TestParseSummary_Unreadable(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		[]byte("   \r\n"),
		[]byte("this is not a header\r\n\r\n"),
		[]byte(" leading continuation\r\n\r\n"),
	} {
		if got := parseSummary(raw); !got.Unreadable {
			t.Errorf("expected %q to be unreadable, got %+v", raw, got)
		}
	}
}

func TestFormat_Empty(t *testing.T) {
	if got := Format(nil); got != "No unread emails found." {
		t.Errorf("unexpected: %q", got)
	}
}

func TestFormat_Entries(t *testing.T) {
	got := Format([]Summary{
		{From: "a@example.com", Subject: "First", Date: "1/2/2025"},
		{Unreadable: true},
		{From: "c@example.com", Subject: "Third", Date: noDate},
	})
	want := "Found 3 unread email(s):\n\n" +
		"1.  From: a@example.com\n    Subject: First\n    Date: 1/2/2025\n\n" +
		"2.  Error: Could not read email\n\n" +
		"3.  From: c@example.com\n    Subject: Third\n    Date: (No Date)\n\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormat_Truncates(t *testing.T) {
	var items []Summary
	for i := 0; i < 5; i++ {
		items = append(items, Summary{
			From:    fmt.Sprintf("sender%d@example.com", i),
			Subject: strings.Repeat("long subject ", 40),
			Date:    "1/1/2025",
		})
	}
	got := Format(items)
	if n := utf8.RuneCountInString(got); n != maxSummaryLen {
		t.Errorf("expected exactly %d chars, got %d", maxSummaryLen, n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected truncated text to end with ...")
	}
	if !strings.HasPrefix(got, "Found 5 unread email(s):") {
		t.Error("expected header to survive truncation")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected: %q", got)
	}
	exact := strings.Repeat("x", 10)
	if got := truncate(exact, 10); got != exact {
		t.Errorf("text at the limit must not be cut, got %q", got)
	}
	if got := truncate(strings.Repeat("é", 11), 10); got != strings.Repeat("é", 7)+"..." {
		t.Errorf("unexpected: %q", got)
	}
}
