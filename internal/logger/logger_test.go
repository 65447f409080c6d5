package logger

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "INFY-123")
	if got := TraceID(ctx); got != "INFY-123" {
		t.Fatalf("TraceID = %q, want INFY-123", got)
	}
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("TraceID on empty context = %q, want empty", got)
	}
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)
	id := GenerateTraceID("INFY", ts)
	if !strings.HasPrefix(id, "INFY-") {
		t.Fatalf("trace ID = %q, want symbol prefix", id)
	}
}

func TestLogWithTrace(t *testing.T) {
	if attrs := LogWithTrace(context.Background()); attrs != nil {
		t.Fatalf("attrs without a trace ID = %v, want nil", attrs)
	}
	ctx := WithTraceID(context.Background(), "TCS-9")
	attrs := LogWithTrace(ctx)
	if len(attrs) != 1 {
		t.Fatalf("got %d attrs, want 1", len(attrs))
	}
}
