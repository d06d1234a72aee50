package telemetry

import (
	"context"
	"testing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), "  ", "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable addresses so no export happens.
	for _, endpoint := range []string{"http://192.0.2.1:4318", "192.0.2.1:4318"} {
		shutdown, err := Setup(context.Background(), endpoint, "test-service")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", endpoint, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("%s: shutdown error: %v", endpoint, err)
		}
	}
}
