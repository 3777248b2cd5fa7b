package kafkax

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestEventHeadersCarryTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	headers := EventHeaders(ctx, "evt-1", "appointment.booked")
	if got := HeaderValue(headers, "event_id"); got != "evt-1" {
		t.Fatalf("event_id = %q", got)
	}
	if got := HeaderValue(headers, "event_type"); got != "appointment.booked" {
		t.Fatalf("event_type = %q", got)
	}
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	restored := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), &headerCarrier{headers: headers}))
	if restored.TraceID() != traceID {
		t.Fatalf("trace id not restored: %v", restored.TraceID())
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error without brokers")
	}
}
