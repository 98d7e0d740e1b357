package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/bastion/observe"
)

// Config configures a Manager. Zero values get sensible defaults.
type Config struct {
	// DefaultTTL applies when a call does not override it.
	// Default: 1 hour
	DefaultTTL time.Duration

	// DefaultNamespace applies when a call does not name one.
	// Default: "default"
	DefaultNamespace string

	// RefreshThreshold is the refresh-ahead percentage of TTL (0-100).
	// Default: 80
	RefreshThreshold int

	// CleanupInterval is how often the background task purges expired
	// entries. Default: 5 minutes. Set negative to disable.
	CleanupInterval time.Duration

	// Persistent enables the file-backed second tier.
	Persistent bool

	// Dir is the persistence directory.
	// Default: ".bastion-cache" when Persistent is set.
	Dir string

	// Logger receives hit/miss/eviction and persistence records.
	Logger observe.Logger
}

// Manager is a namespaced TTL cache with optional two-tier (memory +
// file) storage. Namespaces are a pure prefix partition over one key
// space; the in-memory map is authoritative and the file tier is
// best-effort.
type Manager struct {
	cfg    Config
	logger observe.Logger
	store  *fileStore // nil when persistence is disabled or unavailable

	mu      sync.RWMutex
	entries map[string]*Entry
	stats   map[string]*counters

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a Manager and starts its cleanup task. Callers own
// the returned manager and must Close it to stop the task.
//
// A persistence directory that cannot be created degrades the manager
// to memory-only; persistence I/O problems are logged and never
// surface to callers.
func NewManager(cfg Config) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = "default"
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = 80
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	m := &Manager{
		cfg:     cfg,
		logger:  logger.WithComponent("cache_manager"),
		entries: make(map[string]*Entry),
		stats:   make(map[string]*counters),
		done:    make(chan struct{}),
	}

	if cfg.Persistent {
		dir := cfg.Dir
		if dir == "" {
			dir = ".bastion-cache"
		}
		store, err := newFileStore(dir)
		if err != nil {
			m.logger.Warn(context.Background(), "persistence unavailable, running memory-only",
				observe.Field{Key: "dir", Value: dir},
				observe.Field{Key: "error", Value: err.Error()},
			)
		} else {
			m.store = store
		}
	}

	if cfg.CleanupInterval > 0 {
		go m.cleanupLoop()
	}

	return m
}

// Close stops the background cleanup task. Idempotent.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func compositeKey(namespace, key string) string {
	return namespace + ":" + key
}

// statsLocked returns the namespace counters, creating them lazily.
// Callers must hold m.mu.
func (m *Manager) statsLocked(namespace string) *counters {
	c, ok := m.stats[namespace]
	if !ok {
		c = &counters{}
		m.stats[namespace] = c
	}
	return c
}

// Get retrieves a cached value.
//
// An expired in-memory entry is purged and counted as an eviction
// before the miss path runs. When the call requests persistence the
// miss path consults the file tier and promotes a still-valid entry
// into memory. The returned Result carries the refresh-ahead signal
// alongside the value.
func (m *Manager) Get(ctx context.Context, key string, opts Options) (Result, bool) {
	o := m.cfg.effective(opts)
	full := compositeKey(o.Namespace, key)
	now := time.Now()

	m.mu.Lock()
	entry, ok := m.entries[full]
	if ok && entry.Valid(now) {
		m.statsLocked(o.Namespace).hits++
		res := Result{
			Value:              entry.Value,
			RefreshRecommended: entry.RefreshDue(now, o.RefreshThreshold),
		}
		m.mu.Unlock()

		m.logger.Debug(ctx, "cache hit",
			observe.Field{Key: "namespace", Value: o.Namespace},
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "refresh_recommended", Value: res.RefreshRecommended},
		)
		return res, true
	}
	if ok {
		// Expired: purge before any further lookup on the same key.
		delete(m.entries, full)
		m.statsLocked(o.Namespace).evictions++
	}
	m.mu.Unlock()

	if ok {
		m.logger.Debug(ctx, "cache entry expired",
			observe.Field{Key: "namespace", Value: o.Namespace},
			observe.Field{Key: "key", Value: key},
		)
		if m.store != nil {
			if err := m.store.remove(full); err != nil {
				m.logPersistenceError(ctx, "remove expired entry", full, err)
			}
		}
	}

	if o.Persistent && m.store != nil {
		if res, loaded := m.loadPersistent(ctx, full, o, now); loaded {
			return res, true
		}
	}

	m.mu.Lock()
	m.statsLocked(o.Namespace).misses++
	m.mu.Unlock()

	m.logger.Debug(ctx, "cache miss",
		observe.Field{Key: "namespace", Value: o.Namespace},
		observe.Field{Key: "key", Value: key},
	)
	return Result{}, false
}

// loadPersistent promotes a still-valid file-tier entry into memory.
func (m *Manager) loadPersistent(ctx context.Context, full string, o Options, now time.Time) (Result, bool) {
	if !m.store.exists(full) {
		return Result{}, false
	}

	p, err := m.store.read(full)
	if err != nil {
		m.logPersistenceError(ctx, "read entry", full, err)
		return Result{}, false
	}
	if !p.valid(now) {
		if err := m.store.remove(full); err != nil {
			m.logPersistenceError(ctx, "remove expired entry", full, err)
		}
		return Result{}, false
	}

	var value any
	if err := json.Unmarshal(p.Value, &value); err != nil {
		m.logPersistenceError(ctx, "decode entry", full, err)
		return Result{}, false
	}

	entry := &Entry{
		Value:     value,
		CreatedAt: p.CreatedAt,
		TTL:       p.TTL,
		Metadata:  p.Metadata,
		Source:    p.Source,
	}

	m.mu.Lock()
	m.entries[full] = entry
	m.statsLocked(o.Namespace).hits++
	m.mu.Unlock()

	m.logger.Debug(ctx, "cache hit from persistent tier",
		observe.Field{Key: "namespace", Value: o.Namespace},
		observe.Field{Key: "key", Value: full},
	)
	return Result{
		Value:              value,
		RefreshRecommended: entry.RefreshDue(now, o.RefreshThreshold),
	}, true
}

// Set stores a value, always overwriting in memory. When both the
// manager and the call enable persistence the entry is additionally
// written to the file tier, best-effort.
func (m *Manager) Set(ctx context.Context, key string, value any, opts Options) {
	o := m.cfg.effective(opts)
	full := compositeKey(o.Namespace, key)

	entry := &Entry{
		Value:     value,
		CreatedAt: time.Now(),
		TTL:       o.TTL,
		Metadata:  o.Metadata,
		Source:    o.Source,
	}

	m.mu.Lock()
	m.entries[full] = entry
	m.statsLocked(o.Namespace).puts++
	m.mu.Unlock()

	if o.Persistent && m.store != nil {
		if err := m.store.write(full, entry); err != nil {
			m.logPersistenceError(ctx, "write entry", full, err)
		}
	}
}

// Has reports whether a valid entry exists in memory.
func (m *Manager) Has(key, namespace string) bool {
	if namespace == "" {
		namespace = m.cfg.DefaultNamespace
	}
	full := compositeKey(namespace, key)

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[full]
	return ok && entry.Valid(time.Now())
}

// Remove deletes an entry from memory and the file tier.
func (m *Manager) Remove(ctx context.Context, key, namespace string) {
	if namespace == "" {
		namespace = m.cfg.DefaultNamespace
	}
	full := compositeKey(namespace, key)

	m.mu.Lock()
	delete(m.entries, full)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.remove(full); err != nil {
			m.logPersistenceError(ctx, "remove entry", full, err)
		}
	}
}

// ClearNamespace removes every entry in one namespace, selected by
// prefix scan, and resets its stats.
func (m *Manager) ClearNamespace(ctx context.Context, namespace string) {
	if namespace == "" {
		namespace = m.cfg.DefaultNamespace
	}
	prefix := namespace + ":"

	m.mu.Lock()
	var removed []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			removed = append(removed, k)
		}
	}
	delete(m.stats, namespace)
	m.mu.Unlock()

	if m.store != nil {
		for _, k := range removed {
			if err := m.store.remove(k); err != nil {
				m.logPersistenceError(ctx, "remove entry", k, err)
			}
		}
	}

	m.logger.Info(ctx, "cache namespace cleared",
		observe.Field{Key: "namespace", Value: namespace},
		observe.Field{Key: "removed", Value: len(removed)},
	)
}

// Clear removes all entries and stats across every namespace.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	removed := make([]string, 0, len(m.entries))
	for k := range m.entries {
		removed = append(removed, k)
	}
	m.entries = make(map[string]*Entry)
	m.stats = make(map[string]*counters)
	m.mu.Unlock()

	if m.store != nil {
		for _, k := range removed {
			if err := m.store.remove(k); err != nil {
				m.logPersistenceError(ctx, "remove entry", k, err)
			}
		}
	}

	m.logger.Info(ctx, "cache cleared",
		observe.Field{Key: "removed", Value: len(removed)},
	)
}

// Cleanup purges expired entries from memory, recording one eviction
// per purged entry. The background task calls it on a fixed interval;
// it is also safe to call directly.
func (m *Manager) Cleanup() int {
	now := time.Now()

	m.mu.Lock()
	var purged []string
	for k, entry := range m.entries {
		if !entry.Valid(now) {
			delete(m.entries, k)
			purged = append(purged, k)
			ns, _, found := strings.Cut(k, ":")
			if found {
				m.statsLocked(ns).evictions++
			}
		}
	}
	m.mu.Unlock()

	if m.store != nil {
		for _, k := range purged {
			if err := m.store.remove(k); err != nil {
				m.logPersistenceError(context.Background(), "remove expired entry", k, err)
			}
		}
	}

	if len(purged) > 0 {
		m.logger.Debug(context.Background(), "cache cleanup purged expired entries",
			observe.Field{Key: "purged", Value: len(purged)},
		)
	}
	return len(purged)
}

// Preload scans the persistence directory, discards expired or corrupt
// files, and loads valid entries into memory. It returns the number of
// entries loaded. Call it once at startup, before concurrent use.
func (m *Manager) Preload(ctx context.Context) int {
	if m.store == nil {
		return 0
	}

	persisted, corrupt, err := m.store.scan()
	if err != nil {
		m.logger.Warn(ctx, "cache preload failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return 0
	}

	for _, name := range corrupt {
		if err := m.store.removeFile(name); err != nil {
			m.logger.Warn(ctx, "cache preload could not remove corrupt file",
				observe.Field{Key: "file", Value: name},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	now := time.Now()
	loaded := 0
	for _, p := range persisted {
		if !p.valid(now) {
			if err := m.store.remove(p.Key); err != nil {
				m.logPersistenceError(ctx, "remove expired entry", p.Key, err)
			}
			continue
		}

		var value any
		if err := json.Unmarshal(p.Value, &value); err != nil {
			m.logPersistenceError(ctx, "decode entry", p.Key, err)
			continue
		}

		m.mu.Lock()
		m.entries[p.Key] = &Entry{
			Value:     value,
			CreatedAt: p.CreatedAt,
			TTL:       p.TTL,
			Metadata:  p.Metadata,
			Source:    p.Source,
		}
		m.mu.Unlock()
		loaded++
	}

	m.logger.Info(ctx, "cache preload complete",
		observe.Field{Key: "loaded", Value: loaded},
		observe.Field{Key: "corrupt", Value: len(corrupt)},
	)
	return loaded
}

// GetStats returns a snapshot of one namespace's counters plus its
// current size and entry-age bounds.
func (m *Manager) GetStats(namespace string) Stats {
	if namespace == "" {
		namespace = m.cfg.DefaultNamespace
	}
	prefix := namespace + ":"

	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	if c, ok := m.stats[namespace]; ok {
		s.Hits = c.hits
		s.Misses = c.misses
		s.Puts = c.puts
		s.Evictions = c.evictions
	}

	for k, entry := range m.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		s.Size++
		if s.OldestEntry.IsZero() || entry.CreatedAt.Before(s.OldestEntry) {
			s.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(s.NewestEntry) {
			s.NewestEntry = entry.CreatedAt
		}
	}
	return s
}

func (m *Manager) logPersistenceError(ctx context.Context, op, key string, err error) {
	m.logger.Warn(ctx, "cache persistence error, memory remains authoritative",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
}
