package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mailbridge/internal/domain"
	"mailbridge/internal/metrics"
)

func newTestServer(h Handler) *Server {
	return NewServer(ServerConfig{
		Host:        "127.0.0.1",
		Port:        0,
		Version:     "2.0.0",
		Webhook:     NewWebhook(WebhookConfig{Handler: h, Logger: testLogger()}),
		Metrics:     metrics.NewRegistry().Handler(),
		MetricsPath: "/metrics",
		Logger:      testLogger(),
	})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(&recordingHandler{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := HealthResponse{OK: true, Service: "whatsapp-email-notifier", Version: "2.0.0"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestServer_RoutesWebhookWithRequestID(t *testing.T) {
	h := &recordingHandler{result: domain.Result{Status: http.StatusOK}}
	s := newTestServer(h)

	req := httptest.NewRequest(http.MethodPost, "/whatsapp",
		strings.NewReader(url.Values{"From": {"whatsapp:+1"}, "Body": {"ping"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) != "req-123" {
		t.Errorf("expected request ID echoed, got %q", rec.Header().Get(requestIDHeader))
	}
	if len(h.ids) != 1 || h.ids[0] != "req-123" {
		t.Errorf("expected handler to see req-123, got %v", h.ids)
	}
}

func TestServer_WebhookRejectsGET(t *testing.T) {
	s := newTestServer(&recordingHandler{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whatsapp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(&recordingHandler{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "mailbridge_uptime_seconds") {
		t.Fatalf("unexpected metrics response %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	s := NewServer(ServerConfig{Port: 3000, Logger: testLogger()})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_StartStops(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0, Logger: testLogger()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
