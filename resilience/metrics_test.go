package resilience

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeterSink(t *testing.T) (*MeterSink, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	sink, err := NewMeterSink(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMeterSink() error = %v", err)
	}
	return sink, reader
}

func TestMeterSink_Register(t *testing.T) {
	sink, _ := newTestMeterSink(t)

	getter := func() CircuitBreakerMetrics {
		return CircuitBreakerMetrics{State: StateClosed}
	}

	if err := sink.RegisterCircuitBreaker("upstream", getter); err != nil {
		t.Fatalf("RegisterCircuitBreaker() error = %v", err)
	}
	if err := sink.RegisterCircuitBreaker("upstream", getter); err == nil {
		t.Error("duplicate registration error = nil, want error")
	}
	if err := sink.RegisterCircuitBreaker("", getter); err == nil {
		t.Error("empty name registration error = nil, want error")
	}
	if err := sink.RegisterCircuitBreaker("other", nil); err == nil {
		t.Error("nil getter registration error = nil, want error")
	}
}

func TestMeterSink_Unregister(t *testing.T) {
	sink, _ := newTestMeterSink(t)

	if err := sink.UnregisterCircuitBreaker("unknown"); err == nil {
		t.Error("unknown unregistration error = nil, want error")
	}

	getter := func() CircuitBreakerMetrics { return CircuitBreakerMetrics{} }
	if err := sink.RegisterCircuitBreaker("upstream", getter); err != nil {
		t.Fatalf("RegisterCircuitBreaker() error = %v", err)
	}
	if err := sink.UnregisterCircuitBreaker("upstream"); err != nil {
		t.Errorf("UnregisterCircuitBreaker() error = %v", err)
	}

	// Name is free for reuse after unregistration.
	if err := sink.RegisterCircuitBreaker("upstream", getter); err != nil {
		t.Errorf("re-registration error = %v, want nil", err)
	}
}

func TestMeterSink_Collect(t *testing.T) {
	sink, reader := newTestMeterSink(t)

	err := sink.RegisterCircuitBreaker("upstream", func() CircuitBreakerMetrics {
		return CircuitBreakerMetrics{
			State:         StateOpen,
			Failures:      5,
			TotalCalls:    42,
			RejectedCalls: 7,
		}
	})
	if err != nil {
		t.Fatalf("RegisterCircuitBreaker() error = %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	found := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				continue
			}
			for _, dp := range gauge.DataPoints {
				found[m.Name] = dp.Value
			}
		}
	}

	if got := found["resilience.circuit_breaker.state"]; got != int64(StateOpen) {
		t.Errorf("state gauge = %d, want %d", got, int64(StateOpen))
	}
	if got := found["resilience.circuit_breaker.failures"]; got != 5 {
		t.Errorf("failures gauge = %d, want 5", got)
	}
}

func TestMeterSink_Shutdown(t *testing.T) {
	sink, reader := newTestMeterSink(t)

	err := sink.RegisterCircuitBreaker("upstream", func() CircuitBreakerMetrics {
		return CircuitBreakerMetrics{TotalCalls: 1}
	})
	if err != nil {
		t.Fatalf("RegisterCircuitBreaker() error = %v", err)
	}

	if err := sink.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// After shutdown the callback no longer observes.
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if gauge, ok := m.Data.(metricdata.Gauge[int64]); ok && len(gauge.DataPoints) > 0 {
				t.Fatalf("metric %s still observed after Shutdown()", m.Name)
			}
		}
	}
}
