package http

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeSuccess},
		{errors.New("connection refused"), ErrorTypeNetwork},
		{errors.New("i/o timeout"), ErrorTypeNetwork},
		{errors.New("gateway returned 503 service unavailable"), ErrorTypeRetryable},
		{errors.New("status 429"), ErrorTypeRetryable},
		{errors.New("status 401 unauthorized"), ErrorTypeAuth},
		{errors.New("status 404: file not found"), ErrorTypeFatal},
		{errors.New("something odd happened"), ErrorTypeFatal},
	}

	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Errorf("ClassifyError(%v) = %s, want %s", tc.err, ErrorTypeName(got), ErrorTypeName(tc.want))
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second

	if got := CalculateBackoff(0, initial, max); got != 0 {
		t.Errorf("attempt 0 backoff = %v, want 0", got)
	}

	for attempt := 1; attempt <= 10; attempt++ {
		got := CalculateBackoff(attempt, initial, max)
		if got < 0 || got > max {
			t.Errorf("attempt %d backoff = %v, outside [0, %v]", attempt, got, max)
		}
	}
}

func TestExecuteWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond

	attempts := 0
	err := ExecuteWithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithRetry error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteWithRetryStopsOnFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond

	attempts := 0
	fatal := errors.New("status 404: file not found")
	err := ExecuteWithRetry(context.Background(), cfg, func() error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal error returned directly, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteWithRetryHonorsContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.MaxDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ExecuteWithRetry(ctx, cfg, func() error {
		return errors.New("connection refused")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecuteWithRetryExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	retries := 0
	cfg.OnRetry = func(attempt int, err error, errType ErrorType) {
		retries++
		if errType != ErrorTypeNetwork {
			t.Errorf("OnRetry errType = %s, want network", ErrorTypeName(errType))
		}
	}

	attempts := 0
	err := ExecuteWithRetry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("broken pipe")
	})
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if retries != 2 {
		t.Errorf("OnRetry calls = %d, want 2", retries)
	}
}
