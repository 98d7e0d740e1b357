package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jonwraymond/bastion/observe"
)

// RetryConfig configures the retry behavior. A config is immutable once
// handed to NewRetry.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so
	// the operation runs at most MaxRetries+1 times.
	// Default: 3
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// ExponentialBase is the backoff multiplier per attempt.
	// Default: 2.0
	ExponentialBase float64

	// Jitter is the upper bound of the random delay component added to
	// each backoff to avoid synchronized retry storms.
	// Default: 100ms. Set negative to disable.
	Jitter time.Duration

	// RetryableStatusCodes are status codes that mark an error retryable.
	// Default: 408, 429, 500, 502, 503, 504
	RetryableStatusCodes []int

	// RetryableErrors are message substrings that mark an error retryable.
	// Default: "timeout", "connection reset", "connection refused",
	// "temporarily unavailable"
	RetryableErrors []string

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Logger receives a structured record of every backoff decision.
	Logger observe.Logger
}

// Outcome reports how a retried execution went, for observability.
type Outcome struct {
	// Attempts is the number of times the operation was invoked.
	Attempts int

	// TotalDelay is the cumulative backoff time spent between attempts.
	TotalDelay time.Duration
}

// Retry executes operations with exponential backoff, classifying
// errors as retryable or not.
type Retry struct {
	config     RetryConfig
	statusSet  map[int]bool
	substrings []string
	logger     observe.Logger
}

// NewRetry creates a new retry manager.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.ExponentialBase <= 0 {
		config.ExponentialBase = 2.0
	}
	if config.Jitter == 0 {
		config.Jitter = 100 * time.Millisecond
	}
	if config.RetryableStatusCodes == nil {
		config.RetryableStatusCodes = []int{408, 429, 500, 502, 503, 504}
	}
	if config.RetryableErrors == nil {
		config.RetryableErrors = []string{
			"timeout",
			"connection reset",
			"connection refused",
			"temporarily unavailable",
		}
	}

	statusSet := make(map[int]bool, len(config.RetryableStatusCodes))
	for _, code := range config.RetryableStatusCodes {
		statusSet[code] = true
	}

	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	return &Retry{
		config:     config,
		statusSet:  statusSet,
		substrings: config.RetryableErrors,
		logger:     logger.WithComponent("retry"),
	}
}

// Execute runs the operation with retry logic.
//
// The operation is invoked at most MaxRetries+1 times. A non-retryable
// error stops the loop immediately. The returned Outcome counts
// invocations and accumulated backoff regardless of the final result.
//
// Retries are not transactional: the operation must itself be
// idempotent or safely retryable.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) (Outcome, error) {
	var (
		outcome Outcome
		lastErr error
	)

	for attempt := 1; attempt <= r.config.MaxRetries+1; attempt++ {
		outcome.Attempts = attempt
		err := op(ctx)

		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if attempt > r.config.MaxRetries {
			break
		}
		if !r.retryable(err) {
			r.logger.Debug(ctx, "error not retryable, giving up",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return outcome, err
		}

		delay := r.delay(attempt)
		outcome.TotalDelay += delay

		r.logger.Debug(ctx, "retrying after backoff",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-time.After(delay):
		}
	}

	return outcome, lastErr
}

// retryable classifies an error. An explicit *Error is authoritative;
// otherwise the configured status-code set and message substrings
// decide.
func (r *Retry) retryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable || r.statusSet[re.StatusCode]
	}

	var sc StatusCoder
	if errors.As(err, &sc) && r.statusSet[sc.StatusCode()] {
		return true
	}

	msg := err.Error()
	for _, sub := range r.substrings {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

// delay computes the backoff before the retry that follows attempt:
// min(BaseDelay * ExponentialBase^(attempt-1) + random(0, Jitter), MaxDelay).
func (r *Retry) delay(attempt int) time.Duration {
	multiplier := math.Pow(r.config.ExponentialBase, float64(attempt-1))
	delay := time.Duration(float64(r.config.BaseDelay) * multiplier)

	if r.config.Jitter > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int63n(int64(r.config.Jitter)))
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
