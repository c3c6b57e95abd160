package retry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestSucceedsAfterRetries(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), testConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != 42 || calls != 3 {
		t.Fatalf("expected 42 after 3 calls, got %d after %d", result, calls)
	}
}

func TestExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), testConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("always fails")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestNonRetriableReturnsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := testConfig()
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := Do(context.Background(), cfg, slog.Default(), "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, testConfig(), slog.Default(), "op", func(ctx context.Context) (int, error) {
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
