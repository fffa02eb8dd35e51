package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/logger"
)

const (
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// StatusError is an HTTP-level failure reported by a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Body)
}

// ResilienceOptions configures WithResilience. Zero values take the defaults.
type ResilienceOptions struct {
	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the first backoff; it doubles on every retry.
	RetryDelay time.Duration

	Logger *slog.Logger
}

type resilient struct {
	next Generator
	opts ResilienceOptions
}

// WithResilience wraps g with a per-attempt timeout and bounded retries for
// transient failures (rate limits, server errors, timeouts).
func WithResilience(g Generator, opts ResilienceOptions) Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &resilient{next: g, opts: opts}
}

func (r *resilient) Model() string {
	return r.next.Model()
}

func (r *resilient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	delay := r.opts.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			r.opts.Logger.Warn("retrying generation",
				"schema", req.Name,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		out, err := r.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// The caller gave up; don't mistake that for a per-attempt timeout.
		if ctx.Err() != nil || !IsRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", r.opts.MaxRetries+1, lastErr)
}

func (r *resilient) attempt(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	out, err := r.next.GenerateJSON(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyOutput) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
