package trace

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	id := NewID()
	if id == "" {
		t.Fatal("expected non-empty id")
	}
	ctx := WithRequestID(context.Background(), id)
	if got := RequestID(ctx); got != id {
		t.Errorf("expected %s, got %s", id, got)
	}
}

func TestRequestID_Absent(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestNewID_Unique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("two ids should differ")
	}
}

func TestLogger_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithRequestID(context.Background(), "req-123")
	Logger(ctx, base).Info("hello")

	if !strings.Contains(buf.String(), "request_id=req-123") {
		t.Errorf("expected request_id in log line, got %q", buf.String())
	}
}
