// Package executor wraps remote calls with the benchmark's retry policy:
// server-throttled calls wait exactly the server-dictated interval, transport
// failures wait a fixed delay, and everything else propagates to the caller.
// There is no retry cap and no added jitter; the service's retry-after value
// is the authoritative backoff signal.
package executor

import (
	"context"
	"errors"
	"net"
	"time"
)

// transientDelay is the fixed wait applied when the call failed before the
// server could respond.
const transientDelay = time.Second

// ServerBackoff is implemented by errors that carry a server-dictated wait.
// Backoff returns false when the failure is terminal.
type ServerBackoff interface {
	Backoff() (time.Duration, bool)
}

// RetryLogger receives a diagnostic callback before each retry wait.
type RetryLogger interface {
	LogRetry(wait time.Duration, err error)
}

// Option customizes Execute.
type Option func(*settings)

type settings struct {
	logger RetryLogger
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetryLogging emits a diagnostic line with the wait duration before
// every retry.
func WithRetryLogging(logger RetryLogger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithSleep replaces the wait implementation. Tests use this to avoid real
// delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *settings) { s.sleep = sleep }
}

// Execute invokes op until it succeeds or fails with a non-retryable error.
// Retryable failures never exhaust: a throttled call waits the interval the
// server reported, a transport failure waits a fixed second.
func Execute[T any](ctx context.Context, op func(context.Context) (T, error), opts ...Option) (T, error) {
	s := settings{sleep: sleepContext}
	for _, opt := range opts {
		opt(&s)
	}

	for {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}

		wait, retryable := classify(err)
		if !retryable {
			var zero T
			return zero, err
		}
		if s.logger != nil {
			s.logger.LogRetry(wait, err)
		}
		if sleepErr := s.sleep(ctx, wait); sleepErr != nil {
			var zero T
			return zero, sleepErr
		}
	}
}

// classify decides whether err is retryable and with what wait. A structured
// store error wins over transport classification; errors.As unwraps both
// single-cause and joined composite errors to find it.
func classify(err error) (time.Duration, bool) {
	var backoff ServerBackoff
	if errors.As(err, &backoff) {
		wait, ok := backoff.Backoff()
		if !ok {
			return 0, false
		}
		if wait <= 0 {
			wait = transientDelay
		}
		return wait, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return transientDelay, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
