// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the language-model completion API used by the
// classification and metadata stages. Callers depend on the Completer
// interface; AnthropicClient is the production implementation and tests
// substitute their own.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Request is one completion call.
type Request struct {
	// Kind labels the call for metrics and logs ("classify", "metadata").
	Kind      string
	Prompt    string
	MaxTokens int
	Model     string
}

// Completion is the text returned for a Request.
type Completion struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// Completer sends a single prompt and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// ErrorKind classifies a completion failure by how the caller must react.
type ErrorKind string

const (
	// KindAuth means the credentials were rejected. Every later call will
	// fail the same way, so the run aborts.
	KindAuth ErrorKind = "auth"
	// KindTransient covers network failures, timeouts, rate limiting and
	// server errors. Retryable.
	KindTransient ErrorKind = "transient"
	// KindInvalid is a request the API refused for a non-retryable reason.
	KindInvalid ErrorKind = "invalid"
	// KindEmpty is a successful response with no text.
	KindEmpty ErrorKind = "empty"
)

// APIError is returned by Completer implementations for every failure other
// than caller cancellation.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return hasKind(err, KindAuth) }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool { return hasKind(err, KindTransient) }

// IsEmpty reports whether err is an empty-response failure.
func IsEmpty(err error) bool { return hasKind(err, KindEmpty) }

// BackoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var BackoffBase = time.Second

// Retry calls fn until it succeeds, returns a non-transient error, or
// maxRetries retries have been spent. The wait before retry n is
// BackoffBase * 2^(n-1). Cancellation during a wait returns ctx.Err().
func Retry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BackoffBase
			zap.L().Debug("llm: retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
