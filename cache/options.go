package cache

import "time"

// Options is a per-call configuration, merged with the manager's
// defaults. Merging never mutates the defaults.
type Options struct {
	// TTL overrides the manager's default TTL when positive.
	TTL time.Duration

	// Namespace selects the logical partition. Empty means the
	// manager's default namespace.
	Namespace string

	// Persistent requests durable storage for this entry. Effective
	// only when the manager itself has persistence enabled.
	Persistent bool

	// RefreshThreshold (0-100) overrides the manager's refresh-ahead
	// percentage when positive.
	RefreshThreshold int

	// Metadata is stored verbatim on the entry.
	Metadata map[string]string

	// Source labels where the value came from, for observability.
	Source string
}

// Result is what Get hands back: the cached value plus the
// refresh-ahead signal. The signal never discards a still-valid value;
// callers may trigger an asynchronous recompute while serving it.
type Result struct {
	Value              any
	RefreshRecommended bool
}

func (c Config) effective(o Options) Options {
	if o.TTL <= 0 {
		o.TTL = c.DefaultTTL
	}
	if o.Namespace == "" {
		o.Namespace = c.DefaultNamespace
	}
	if o.RefreshThreshold <= 0 {
		o.RefreshThreshold = c.RefreshThreshold
	}
	return o
}
