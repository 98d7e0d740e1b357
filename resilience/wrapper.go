package resilience

import (
	"context"

	"github.com/jonwraymond/bastion/observe"
)

// MetricsGetter returns a point-in-time snapshot of a breaker's
// metrics. Sinks call it from their own collection cycle.
type MetricsGetter func() CircuitBreakerMetrics

// MetricsSink receives circuit breaker metrics registrations. The
// wrapper calls it; implementations live elsewhere (MeterSink is the
// OpenTelemetry-backed one).
type MetricsSink interface {
	// RegisterCircuitBreaker registers a metrics getter under a unique name.
	RegisterCircuitBreaker(name string, getter MetricsGetter) error

	// UnregisterCircuitBreaker removes a previously registered getter.
	UnregisterCircuitBreaker(name string) error
}

// WrapperConfig configures a Wrapper.
type WrapperConfig struct {
	// Name identifies the wrapper in logs and metrics registrations.
	Name string

	// CircuitBreaker configures the inner breaker.
	CircuitBreaker CircuitBreakerConfig

	// Retry configures the outer retry loop.
	Retry RetryConfig

	// Metrics, when set, receives the breaker's metrics getter at
	// construction.
	Metrics MetricsSink

	// AllowMetricsFailure permits degraded operation when metrics
	// registration fails. The default is fail-fast: silently losing
	// observability for a resilience component is worse than refusing
	// to start.
	AllowMetricsFailure bool

	// Logger is shared with the breaker and retry manager.
	Logger observe.Logger
}

// Wrapper composes a retry loop around circuit-breaker-gated calls.
// Each retry attempt re-enters the breaker, so a breaker that opens
// mid-sequence rejects the remaining attempts of the same loop.
type Wrapper struct {
	name          string
	breaker       *CircuitBreaker
	retry         *Retry
	sink          MetricsSink
	allowDegraded bool
	logger        observe.Logger
}

// NewWrapper creates a wrapper and, if a metrics sink is configured,
// registers the breaker's metrics getter under the wrapper's name.
func NewWrapper(config WrapperConfig) (*Wrapper, error) {
	if config.Name == "" {
		return nil, configError("wrapper requires a name", nil)
	}

	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	if config.CircuitBreaker.Logger == nil {
		config.CircuitBreaker.Logger = logger
	}
	if config.Retry.Logger == nil {
		config.Retry.Logger = logger
	}

	w := &Wrapper{
		name:          config.Name,
		breaker:       NewCircuitBreaker(config.CircuitBreaker),
		retry:         NewRetry(config.Retry),
		sink:          config.Metrics,
		allowDegraded: config.AllowMetricsFailure,
		logger:        logger.WithComponent("resilient_wrapper"),
	}

	if w.sink != nil {
		if err := w.sink.RegisterCircuitBreaker(w.name, w.breaker.Metrics); err != nil {
			if !config.AllowMetricsFailure {
				return nil, configError("metrics registration failed for "+w.name, err)
			}
			w.logger.Warn(context.Background(), "metrics registration failed, continuing degraded",
				observe.Field{Key: "name", Value: w.name},
				observe.Field{Key: "error", Value: err.Error()},
			)
			w.sink = nil
		}
	}

	return w, nil
}

// Execute runs the operation with retry around the circuit breaker.
func (w *Wrapper) Execute(ctx context.Context, op func(context.Context) error) (Outcome, error) {
	return w.retry.Execute(ctx, func(ctx context.Context) error {
		return w.breaker.Execute(ctx, op)
	})
}

// Name returns the wrapper's registered name.
func (w *Wrapper) Name() string {
	return w.name
}

// Breaker returns the inner circuit breaker.
func (w *Wrapper) Breaker() *CircuitBreaker {
	return w.breaker
}

// Metrics returns the inner breaker's metrics snapshot.
func (w *Wrapper) Metrics() CircuitBreakerMetrics {
	return w.breaker.Metrics()
}

// Cleanup unregisters the wrapper from its metrics sink, applying the
// same fail-fast/override policy as registration.
func (w *Wrapper) Cleanup() error {
	if w.sink == nil {
		return nil
	}
	if err := w.sink.UnregisterCircuitBreaker(w.name); err != nil {
		if !w.allowDegraded {
			return configError("metrics unregistration failed for "+w.name, err)
		}
		w.logger.Warn(context.Background(), "metrics unregistration failed",
			observe.Field{Key: "name", Value: w.name},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	w.sink = nil
	return nil
}
