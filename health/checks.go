package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonwraymond/bastion/cache"
	"github.com/jonwraymond/bastion/resilience"
)

// CircuitBreakerChecker reports a breaker's state as health: open is
// unhealthy, half-open is degraded (probing), closed is healthy.
type CircuitBreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewCircuitBreakerChecker creates a checker for one breaker.
func NewCircuitBreakerChecker(name string, breaker *resilience.CircuitBreaker) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{name: name, breaker: breaker}
}

// Name returns the checker name.
func (c *CircuitBreakerChecker) Name() string { return c.name }

// Check reports the breaker state.
func (c *CircuitBreakerChecker) Check(_ context.Context) Result {
	m := c.breaker.Metrics()
	details := map[string]any{
		"state":          m.State.String(),
		"failures":       m.Failures,
		"total_calls":    m.TotalCalls,
		"rejected_calls": m.RejectedCalls,
	}

	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("circuit breaker is open", nil).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit breaker is probing recovery").WithDetails(details)
	default:
		return Healthy("circuit breaker is closed").WithDetails(details)
	}
}

// CacheChecker reports a cache namespace's statistics as health
// details. The cache itself cannot fail, so the check is always
// healthy; the details feed dashboards.
type CacheChecker struct {
	name      string
	manager   *cache.Manager
	namespace string
}

// NewCacheChecker creates a checker for one cache namespace.
func NewCacheChecker(name string, manager *cache.Manager, namespace string) *CacheChecker {
	return &CacheChecker{name: name, manager: manager, namespace: namespace}
}

// Name returns the checker name.
func (c *CacheChecker) Name() string { return c.name }

// Check reports the namespace statistics.
func (c *CacheChecker) Check(_ context.Context) Result {
	s := c.manager.GetStats(c.namespace)
	return Healthy("cache operational").WithDetails(map[string]any{
		"namespace": c.namespace,
		"hits":      s.Hits,
		"misses":    s.Misses,
		"evictions": s.Evictions,
		"size":      s.Size,
	})
}

// PersistenceChecker verifies the cache directory is writable with a
// blocking probe: it stats the directory and writes a marker file.
type PersistenceChecker struct {
	name string
	dir  string
}

// NewPersistenceChecker creates a checker for a cache directory.
func NewPersistenceChecker(name, dir string) *PersistenceChecker {
	return &PersistenceChecker{name: name, dir: dir}
}

// Name returns the checker name.
func (c *PersistenceChecker) Name() string { return c.name }

// Check probes the directory.
func (c *PersistenceChecker) Check(_ context.Context) Result {
	info, err := os.Stat(c.dir)
	if err != nil {
		return Unhealthy("cache directory unavailable", err)
	}
	if !info.IsDir() {
		return Unhealthy("cache path is not a directory", fmt.Errorf("health: %s is not a directory", c.dir))
	}

	probe := filepath.Join(c.dir, ".health_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Degraded("cache directory not writable, falling back to memory-only").
			WithDetails(map[string]any{"error": err.Error()})
	}
	_ = os.Remove(probe)

	return Healthy("cache directory writable")
}
