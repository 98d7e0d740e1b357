// Package observe wires OpenTelemetry tracing, metrics, and structured
// logging for the resilience and cache subsystems.
//
// An Observer owns the tracer, meter, and logger for one process and
// shuts them down together. Loggers are component-scoped: cache
// managers and circuit breakers log hits, misses, evictions, backoff
// decisions, and state transitions through the same Logger interface.
package observe
