package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testToken = "123:abc"

type botServer struct {
	mu   sync.Mutex
	sent []map[string]string
	fail bool
}

func (b *botServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Mail","username":"mailbridge_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			b.mu.Lock()
			b.sent = append(b.sent, map[string]string{
				"chat_id": r.PostForm.Get("chat_id"),
				"text":    r.PostForm.Get("text"),
			})
			fail := b.fail
			b.mu.Unlock()
			if fail {
				w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":1001,"type":"private"},"text":"ok"}}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestTelegram(t *testing.T, b *botServer) *Telegram {
	t.Helper()
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	tg, err := NewTelegram(TelegramConfig{
		Token:      testToken,
		Endpoint:   srv.URL + "/bot%s/%s",
		HTTPClient: srv.Client(),
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	return tg
}

func TestNewTelegram_MissingToken(t *testing.T) {
	if _, err := NewTelegram(TelegramConfig{Token: "  "}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNewTelegram_VerifiesBot(t *testing.T) {
	tg := newTestTelegram(t, &botServer{})
	if tg.Bot().Self.UserName != "mailbridge_bot" {
		t.Errorf("unexpected bot identity %+v", tg.Bot().Self)
	}
}

func TestTelegram_Send(t *testing.T) {
	b := &botServer{}
	tg := newTestTelegram(t, b)

	receipt, err := tg.Send(context.Background(), "Service is running successfully", "1001")
	if err != nil {
		t.Fatal(err)
	}
	if receipt.ID != "77" || receipt.Transport != TransportTelegram {
		t.Errorf("unexpected receipt %+v", receipt)
	}
	if len(b.sent) != 1 || b.sent[0]["chat_id"] != "1001" || b.sent[0]["text"] != "Service is running successfully" {
		t.Errorf("unexpected request %+v", b.sent)
	}
}

func TestTelegram_SendInvalidChatID(t *testing.T) {
	b := &botServer{}
	tg := newTestTelegram(t, b)
	if _, err := tg.Send(context.Background(), "hi", "whatsapp:+1"); err == nil {
		t.Fatal("expected error for non-numeric chat ID")
	}
	if len(b.sent) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestTelegram_SendAPIError(t *testing.T) {
	tg := newTestTelegram(t, &botServer{fail: true})
	_, err := tg.Send(context.Background(), "hi", "1001")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
}
