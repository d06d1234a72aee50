package app

import (
	"context"
	"math/rand"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"durak/internal/domain"
	"durak/internal/stats"
)

func TestWorldRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	w := NewWorld(stats.NewLedger(stats.DefaultPolicy()), Options{
		Rand:           rand.New(rand.NewSource(1)),
		TracerProvider: tp,
	})
	ctx := context.Background()

	_, _ = w.Join(ctx, "a", "Alice")
	_, _ = w.Join(ctx, "b", "Bob")
	_, _ = w.Attack(ctx, "nobody", domain.Card{Suit: domain.Clubs, Rank: domain.Rank7})
	_, _ = w.Disconnect(ctx, "a")

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, span := range recorder.Ended() {
		byName[span.Name()] = span
	}
	for _, name := range []string{"World.Join", "World.Attack", "World.Disconnect", "World.finalize"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("missing span %s", name)
		}
	}
	if got := byName["World.Attack"].Status().Code; got != codes.Error {
		t.Fatalf("failed attack span status = %v, want error", got)
	}
	if parent := byName["World.finalize"].Parent(); parent.SpanID() != byName["World.Disconnect"].SpanContext().SpanID() {
		t.Fatalf("finalize span should be a child of the disconnect span")
	}
}
