package keepalive

import (
	"context"
	"testing"
	"time"
)

func TestReleaseIsExactlyOnce(t *testing.T) {
	registry := NewRegistry(0)

	token := registry.Acquire("upload")
	if got := registry.Active(); got != 1 {
		t.Fatalf("got %d active tokens, want 1", got)
	}

	token.Release()
	token.Release()
	token.Release()

	if got := registry.Active(); got != 0 {
		t.Errorf("got %d active tokens after repeated release, want 0", got)
	}
}

func TestDrainWaitsForTokens(t *testing.T) {
	registry := NewRegistry(0)
	token := registry.Acquire("upload")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := registry.Drain(ctx); err == nil {
		t.Fatal("Drain returned before the token was released")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		token.Release()
	}()

	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := registry.Drain(ctx); err != nil {
		t.Errorf("Drain after release: %v", err)
	}
}

func TestExpiredTokenIsForceReleased(t *testing.T) {
	registry := NewRegistry(10 * time.Millisecond)
	token := registry.Acquire("upload")

	deadline := time.Now().Add(time.Second)
	for registry.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("token was not force-released after its deadline")
		}
		time.Sleep(time.Millisecond)
	}

	// A late release after expiry must stay a no-op.
	token.Release()
	if got := registry.Active(); got != 0 {
		t.Errorf("got %d active tokens, want 0", got)
	}
}
