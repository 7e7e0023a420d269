package executor_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/torosent/docsurge/internal/executor"
)

// throttleErr simulates a structured store error carrying a server wait.
type throttleErr struct {
	wait      time.Duration
	retryable bool
}

func (e *throttleErr) Error() string { return fmt.Sprintf("throttled for %s", e.wait) }

func (e *throttleErr) Backoff() (time.Duration, bool) { return e.wait, e.retryable }

// fakeNetErr simulates a transport failure with no server response.
type fakeNetErr struct{}

func (fakeNetErr) Error() string   { return "connection reset" }
func (fakeNetErr) Timeout() bool   { return false }
func (fakeNetErr) Temporary() bool { return true }

var _ net.Error = fakeNetErr{}

type recordingLogger struct {
	waits []time.Duration
}

func (l *recordingLogger) LogRetry(wait time.Duration, _ error) {
	l.waits = append(l.waits, wait)
}

func noSleep(waits *[]time.Duration) executor.Option {
	return executor.WithSleep(func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
}

// TestExecuteHonorsServerWaits verifies the executor waits exactly the
// server-dictated durations and invokes the operation once per attempt.
func TestExecuteHonorsServerWaits(t *testing.T) {
	var attempts int
	var slept []time.Duration

	op := func(context.Context) (string, error) {
		attempts++
		switch attempts {
		case 1:
			return "", &throttleErr{wait: 200 * time.Millisecond, retryable: true}
		case 2:
			return "", &throttleErr{wait: 50 * time.Millisecond, retryable: true}
		default:
			return "ok", nil
		}
	}

	value, err := executor.Execute(context.Background(), op, noSleep(&slept))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "ok" {
		t.Errorf("expected ok, got %q", value)
	}
	if attempts != 3 {
		t.Errorf("expected 3 invocations, got %d", attempts)
	}
	want := []time.Duration{200 * time.Millisecond, 50 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("wait %d: expected %s, got %s", i, want[i], slept[i])
		}
	}
}

func TestExecuteNonRetryablePropagatesUnchanged(t *testing.T) {
	var attempts int
	terminal := &throttleErr{retryable: false}

	_, err := executor.Execute(context.Background(), func(context.Context) (int, error) {
		attempts++
		return 0, terminal
	})

	if attempts != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", attempts)
	}
	if !errors.Is(err, terminal) {
		t.Errorf("expected original error back, got %v", err)
	}
}

func TestExecutePlainErrorNotRetried(t *testing.T) {
	var attempts int
	boom := errors.New("malformed document")

	_, err := executor.Execute(context.Background(), func(context.Context) (int, error) {
		attempts++
		return 0, boom
	})

	if attempts != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", attempts)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected original error back, got %v", err)
	}
}

// TestExecuteTransportFailureFixedDelay verifies network-level failures are
// retried with the fixed one-second delay.
func TestExecuteTransportFailureFixedDelay(t *testing.T) {
	var attempts int
	var slept []time.Duration

	_, err := executor.Execute(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, fakeNetErr{}
		}
		return 42, nil
	}, noSleep(&slept))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 waits, got %v", slept)
	}
	for i, d := range slept {
		if d != time.Second {
			t.Errorf("wait %d: expected 1s fixed delay, got %s", i, d)
		}
	}
}

// TestExecuteFindsBackoffInCompositeError verifies a retry-after value nested
// inside a joined error is still honored.
func TestExecuteFindsBackoffInCompositeError(t *testing.T) {
	var attempts int
	var slept []time.Duration

	wrapped := errors.Join(errors.New("request failed"), &throttleErr{wait: 75 * time.Millisecond, retryable: true})

	_, err := executor.Execute(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, wrapped
		}
		return 1, nil
	}, noSleep(&slept))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 1 || slept[0] != 75*time.Millisecond {
		t.Errorf("expected single 75ms wait, got %v", slept)
	}
}

func TestExecuteThrottleWithoutWaitUsesFixedDelay(t *testing.T) {
	var attempts int
	var slept []time.Duration

	_, err := executor.Execute(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, &throttleErr{wait: 0, retryable: true}
		}
		return 1, nil
	}, noSleep(&slept))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Errorf("expected fallback 1s wait, got %v", slept)
	}
}

func TestExecuteLogsRetries(t *testing.T) {
	logger := &recordingLogger{}
	var attempts int
	var slept []time.Duration

	_, err := executor.Execute(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, &throttleErr{wait: 30 * time.Millisecond, retryable: true}
		}
		return 1, nil
	}, noSleep(&slept), executor.WithRetryLogging(logger))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logger.waits) != 1 || logger.waits[0] != 30*time.Millisecond {
		t.Errorf("expected one logged 30ms wait, got %v", logger.waits)
	}
}

func TestExecuteCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, func(context.Context) (int, error) {
		return 0, fakeNetErr{}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
