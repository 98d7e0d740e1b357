package cache

import "time"

// Stats is a snapshot of one namespace's counters. A namespace's stats
// are created lazily on first use and live until the namespace is
// cleared.
type Stats struct {
	Hits        int64
	Misses      int64
	Puts        int64
	Evictions   int64
	Size        int
	OldestEntry time.Time
	NewestEntry time.Time
}

// counters is the mutable backing store; guarded by the manager mutex.
type counters struct {
	hits      int64
	misses    int64
	puts      int64
	evictions int64
}
