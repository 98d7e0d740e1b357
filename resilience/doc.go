// Package resilience protects calls to unreliable external
// dependencies.
//
// It provides three composable pieces:
//
//   - CircuitBreaker: a three-state (closed/open/half-open) gate that
//     stops calling a failing dependency for a cooldown period, racing
//     each admitted call against a timeout.
//
//   - Retry: exponential backoff with jitter, classifying errors as
//     retryable by explicit flag, status code, or message substring.
//
//   - Wrapper: retry composed around circuit-breaker-gated calls under
//     one name, with metrics registration against a MetricsSink.
//
// # Usage
//
//	w, err := resilience.NewWrapper(resilience.WrapperConfig{
//	    Name: "search-api",
//	    CircuitBreaker: resilience.CircuitBreakerConfig{
//	        FailureThreshold: 5,
//	        ResetTimeout:     30 * time.Second,
//	    },
//	    Retry: resilience.RetryConfig{
//	        MaxRetries: 3,
//	        BaseDelay:  100 * time.Millisecond,
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer w.Cleanup()
//
//	outcome, err := w.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
//
// Failures surface as *Error values carrying a closed Code, a
// retryability flag, and an optional status code and cause, so callers
// can re-decide policy at a higher level without string matching.
package resilience
