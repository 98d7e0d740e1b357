// Package cache provides a generic namespaced TTL cache with optional
// two-tier (memory + file) storage and refresh-ahead signaling.
//
// Keys live in one flat space as "{namespace}:{key}", so namespaces can
// be cleared by prefix scan. Expiry is TTL-only with an exclusive
// boundary; there is no size-bound eviction. A periodic cleanup task,
// owned by the Manager and stopped by Close, purges expired entries.
//
// Get returns a Result pairing the value with a refresh-recommended
// signal: once an entry's age crosses a configurable percentage of its
// TTL, callers are told to recompute in the background while the
// still-valid value keeps serving the fast path.
package cache
