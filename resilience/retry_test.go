package resilience

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return "request failed" }
func (e *statusErr) StatusCode() int { return e.code }

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", r.config.MaxRetries)
	}
	if r.config.BaseDelay != 100*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 100ms", r.config.BaseDelay)
	}
	if r.config.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", r.config.MaxDelay)
	}
	if r.config.ExponentialBase != 2.0 {
		t.Errorf("ExponentialBase = %v, want 2.0", r.config.ExponentialBase)
	}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 3})

	calls := 0
	outcome, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if outcome.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", outcome.Attempts)
	}
	if outcome.TotalDelay != 0 {
		t.Errorf("TotalDelay = %v, want 0", outcome.TotalDelay)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Jitter:     -1,
	})

	calls := 0
	testErr := errors.New("timeout talking to upstream")
	outcome, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return testErr
	})

	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	// MaxRetries+1 invocations at most.
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if outcome.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", outcome.Attempts)
	}
	if outcome.TotalDelay <= 0 {
		t.Errorf("TotalDelay = %v, want > 0", outcome.TotalDelay)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond})

	calls := 0
	appErr := errors.New("validation failed: missing field")
	outcome, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return appErr
	})

	if err != appErr {
		t.Errorf("Execute() error = %v, want %v", err, appErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 for non-retryable error", calls)
	}
	if outcome.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", outcome.Attempts)
	}
}

func TestRetry_Classification(t *testing.T) {
	r := NewRetry(RetryConfig{
		RetryableStatusCodes: []int{503},
		RetryableErrors:      []string{"connection reset"},
	})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"substring match", errors.New("read tcp: connection reset by peer"), true},
		{"no substring match", errors.New("permission denied"), false},
		{"status code in set", &statusErr{code: 503}, true},
		{"status code not in set", &statusErr{code: 404}, false},
		{"explicit retryable", ErrTimeout, true},
		{"explicit non-retryable", ErrCircuitOpen, false},
		{"structured error with retryable status", &Error{Code: CodeConfig, Message: "upstream", StatusCode: 503}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_BreakerOpenStopsLoop(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond})

	calls := 0
	_, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return ErrCircuitOpen
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1: breaker rejection is non-retryable", calls)
	}
}

func TestRetry_DelayBounds(t *testing.T) {
	base := 10 * time.Millisecond
	jitter := 5 * time.Millisecond
	maxDelay := 60 * time.Millisecond
	r := NewRetry(RetryConfig{
		BaseDelay:       base,
		MaxDelay:        maxDelay,
		ExponentialBase: 2.0,
		Jitter:          jitter,
	})

	for attempt := 1; attempt <= 5; attempt++ {
		pure := time.Duration(float64(base) * math.Pow(2.0, float64(attempt-1)))
		lo := pure
		hi := pure + jitter
		if lo > maxDelay {
			lo = maxDelay
		}
		if hi > maxDelay {
			hi = maxDelay
		}

		for i := 0; i < 50; i++ {
			d := r.delay(attempt)
			if d < lo || d > hi {
				t.Fatalf("delay(%d) = %v, want within [%v, %v]", attempt, d, lo, hi)
			}
		}
	}
}

func TestRetry_NoJitter(t *testing.T) {
	r := NewRetry(RetryConfig{
		BaseDelay:       10 * time.Millisecond,
		ExponentialBase: 3.0,
		Jitter:          -1,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 30 * time.Millisecond},
		{3, 90 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := r.delay(tt.attempt); got != tt.want {
			t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		Jitter:     -1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Execute(ctx, func(ctx context.Context) error {
		return errors.New("timeout")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	r := NewRetry(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Jitter:     -1,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	_, _ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("timeout")
	})

	if len(attempts) != 2 {
		t.Fatalf("OnRetry calls = %d, want 2", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
}
