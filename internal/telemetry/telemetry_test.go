package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	tel, err := New(context.Background(), Config{ServiceName: "notionsync"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, span := tel.Tracer("test").Start(context.Background(), "op")
	if span.SpanContext().IsValid() {
		t.Error("no-op tracer produced a valid span context")
	}
	span.End()
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewWithProvider_RecordsSpans(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	tel := NewWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, span := tel.Tracer("test").Start(context.Background(), "sync.run")
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != "sync.run" {
		t.Fatalf("ended spans = %v", ended)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
