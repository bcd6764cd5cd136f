package http

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ErrorType is the retry class assigned to a failed operation.
type ErrorType int

const (
	// ErrorTypeSuccess indicates the operation succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeNetwork indicates connection issues (timeouts, refused, reset)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors worth retrying (5xx, 429)
	ErrorTypeRetryable
	// ErrorTypeAuth indicates the session is not authorized (401/403)
	ErrorTypeAuth
	// ErrorTypeFatal indicates client errors that should not be retried
	ErrorTypeFatal
)

func (t ErrorType) retryable() bool {
	return t == ErrorTypeNetwork || t == ErrorTypeRetryable
}

// Config holds retry parameters for ExecuteWithRetry.
type Config struct {
	// MaxRetries is the maximum number of attempts (default: 5)
	MaxRetries int
	// InitialDelay is the base delay for exponential backoff (default: 200ms)
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries (default: 15s)
	MaxDelay time.Duration
	// OnRetry is invoked before each retry attempt
	OnRetry func(attempt int, err error, errorType ErrorType)
}

// DefaultConfig returns the retry parameters used by the CLI transfer paths.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     15 * time.Second,
	}
}

// Ordered: the first class whose marker matches wins. Auth is checked before
// network so "401 unauthorized ... connection closed" does not retry forever.
var errorMarkers = []struct {
	class   ErrorType
	markers []string
}{
	{ErrorTypeAuth, []string{
		"401", "403", "unauthorized", "not logged in",
	}},
	{ErrorTypeNetwork, []string{
		"tls handshake timeout", "connection reset", "i/o timeout", "eof",
		"connection refused", "broken pipe", "no such host", "timeout",
	}},
	{ErrorTypeRetryable, []string{
		"429", "500", "502", "503", "504", "service unavailable",
	}},
}

// ClassifyError assigns a retry class to an error. Classification is by
// message text because errors arrive from several layers (net, gateway JSON,
// context) without shared types. Unmatched errors are fatal so an unexpected
// failure never loops.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}
	msg := strings.ToLower(err.Error())
	for _, group := range errorMarkers {
		for _, marker := range group.markers {
			if strings.Contains(msg, marker) {
				return group.class
			}
		}
	}
	return ErrorTypeFatal
}

// CalculateBackoff returns random(0, min(maxDelay, initialDelay * 2^attempt)).
// Full jitter spreads out synchronized retries.
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	ceiling := initialDelay << uint(attempt)
	if ceiling > maxDelay || ceiling <= 0 {
		ceiling = maxDelay
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// ExecuteWithRetry runs operation until it succeeds, fails with a
// non-retryable class, or exhausts config.MaxRetries attempts. Network and
// server errors back off with jitter; auth and client errors return
// immediately; context cancellation aborts between attempts.
//
// The navigator's listing fetch never goes through here: listing failures
// surface to the caller, which owns the retry decision.
func ExecuteWithRetry(ctx context.Context, config Config, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		class := ClassifyError(lastErr)
		if !class.retryable() {
			return lastErr
		}
		if attempt == config.MaxRetries-1 {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, lastErr, class)
		}
		select {
		case <-time.After(CalculateBackoff(attempt, config.InitialDelay, config.MaxDelay)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries, lastErr)
}

// ErrorTypeName returns the log label for an ErrorType.
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
