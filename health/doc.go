// Package health exposes the resilience and cache subsystems to
// liveness/readiness probes: circuit breaker state, cache statistics,
// and persistence-directory writability, aggregated behind standard
// HTTP handlers.
package health
