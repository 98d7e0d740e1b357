package cache

import "time"

// Entry is a single cached value with its expiry bookkeeping. Entries
// are owned exclusively by the manager that created them and are never
// shared by reference across namespaces.
type Entry struct {
	Value     any
	CreatedAt time.Time
	TTL       time.Duration
	Metadata  map[string]string
	Source    string
}

// Age returns how long ago the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Valid reports whether the entry is still live. The boundary is
// exclusive: an entry whose age equals its TTL is expired.
func (e *Entry) Valid(now time.Time) bool {
	return e.Age(now) < e.TTL
}

// RefreshDue reports whether the entry's age has crossed the
// refresh-ahead threshold, expressed as a percentage of TTL. A
// threshold outside (0, 100) disables the signal.
func (e *Entry) RefreshDue(now time.Time, thresholdPct int) bool {
	if thresholdPct <= 0 || thresholdPct >= 100 {
		return false
	}
	return e.Age(now) > e.TTL*time.Duration(thresholdPct)/100
}
