package resilience

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterSink is an OpenTelemetry-backed MetricsSink. Every registered
// breaker is published as a set of observable gauges, one attribute
// per breaker name, collected by a single batched callback.
type MeterSink struct {
	mu      sync.Mutex
	getters map[string]MetricsGetter

	registration metric.Registration

	state     metric.Int64ObservableGauge
	failures  metric.Int64ObservableGauge
	successes metric.Int64ObservableGauge
	calls     metric.Int64ObservableCounter
	rejected  metric.Int64ObservableCounter
}

// NewMeterSink creates a MeterSink on the given meter.
func NewMeterSink(meter metric.Meter) (*MeterSink, error) {
	s := &MeterSink{getters: make(map[string]MetricsGetter)}

	var err error
	if s.state, err = meter.Int64ObservableGauge("resilience.circuit_breaker.state",
		metric.WithDescription("Circuit state: 0 closed, 1 open, 2 half-open")); err != nil {
		return nil, fmt.Errorf("resilience: create state gauge: %w", err)
	}
	if s.failures, err = meter.Int64ObservableGauge("resilience.circuit_breaker.failures",
		metric.WithDescription("Consecutive failure count")); err != nil {
		return nil, fmt.Errorf("resilience: create failures gauge: %w", err)
	}
	if s.successes, err = meter.Int64ObservableGauge("resilience.circuit_breaker.successes",
		metric.WithDescription("Consecutive half-open success count")); err != nil {
		return nil, fmt.Errorf("resilience: create successes gauge: %w", err)
	}
	if s.calls, err = meter.Int64ObservableCounter("resilience.circuit_breaker.calls",
		metric.WithDescription("Total calls through the breaker")); err != nil {
		return nil, fmt.Errorf("resilience: create calls counter: %w", err)
	}
	if s.rejected, err = meter.Int64ObservableCounter("resilience.circuit_breaker.rejected",
		metric.WithDescription("Calls rejected while open")); err != nil {
		return nil, fmt.Errorf("resilience: create rejected counter: %w", err)
	}

	s.registration, err = meter.RegisterCallback(s.collect,
		s.state, s.failures, s.successes, s.calls, s.rejected)
	if err != nil {
		return nil, fmt.Errorf("resilience: register metrics callback: %w", err)
	}

	return s, nil
}

// RegisterCircuitBreaker registers a metrics getter under a unique
// name. Duplicate names error so two breakers cannot silently shadow
// each other's metrics.
func (s *MeterSink) RegisterCircuitBreaker(name string, getter MetricsGetter) error {
	if name == "" {
		return fmt.Errorf("resilience: breaker name is empty")
	}
	if getter == nil {
		return fmt.Errorf("resilience: metrics getter for %q is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.getters[name]; exists {
		return fmt.Errorf("resilience: breaker %q already registered", name)
	}
	s.getters[name] = getter
	return nil
}

// UnregisterCircuitBreaker removes a registered getter.
func (s *MeterSink) UnregisterCircuitBreaker(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.getters[name]; !exists {
		return fmt.Errorf("resilience: breaker %q is not registered", name)
	}
	delete(s.getters, name)
	return nil
}

// Shutdown unregisters the collection callback.
func (s *MeterSink) Shutdown() error {
	if s.registration != nil {
		return s.registration.Unregister()
	}
	return nil
}

func (s *MeterSink) collect(_ context.Context, o metric.Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, getter := range s.getters {
		m := getter()
		attrs := metric.WithAttributes(attribute.String("breaker", name))

		o.ObserveInt64(s.state, int64(m.State), attrs)
		o.ObserveInt64(s.failures, int64(m.Failures), attrs)
		o.ObserveInt64(s.successes, int64(m.Successes), attrs)
		o.ObserveInt64(s.calls, m.TotalCalls, attrs)
		o.ObserveInt64(s.rejected, m.RejectedCalls, attrs)
	}
	return nil
}

// Ensure MeterSink implements MetricsSink
var _ MetricsSink = (*MeterSink)(nil)
