package cache

import (
	"context"
	"testing"
	"time"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = -1
	}
	m := NewManager(cfg)
	t.Cleanup(m.Close)
	return m
}

// backdate rewinds an entry's creation time so expiry paths can be
// tested without sleeping.
func backdate(m *Manager, namespace, key string, by time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[compositeKey(namespace, key)]; ok {
		e.CreatedAt = e.CreatedAt.Add(-by)
	}
}

func TestManager_SetGet(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v", Options{})

	res, ok := m.Get(ctx, "k", Options{})
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if res.Value != "v" {
		t.Errorf("Value = %v, want v", res.Value)
	}
	if res.RefreshRecommended {
		t.Error("RefreshRecommended = true for a fresh entry")
	}
}

func TestManager_Miss(t *testing.T) {
	m := newTestManager(t, Config{})

	if _, ok := m.Get(context.Background(), "absent", Options{}); ok {
		t.Error("Get() ok = true for absent key")
	}

	s := m.GetStats("")
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
}

func TestManager_NamespaceIsolation(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "alpha", Options{Namespace: "a"})
	m.Set(ctx, "k", "beta", Options{Namespace: "b"})

	resA, _ := m.Get(ctx, "k", Options{Namespace: "a"})
	resB, _ := m.Get(ctx, "k", Options{Namespace: "b"})

	if resA.Value != "alpha" || resB.Value != "beta" {
		t.Errorf("values = %v/%v, want alpha/beta", resA.Value, resB.Value)
	}
	if _, ok := m.Get(ctx, "k", Options{Namespace: "c"}); ok {
		t.Error("Get() in untouched namespace ok = true")
	}
}

func TestManager_SetOverwrites(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", 1, Options{})
	m.Set(ctx, "k", 2, Options{})

	res, _ := m.Get(ctx, "k", Options{})
	if res.Value != 2 {
		t.Errorf("Value = %v, want 2", res.Value)
	}
	if s := m.GetStats(""); s.Puts != 2 || s.Size != 1 {
		t.Errorf("Puts/Size = %d/%d, want 2/1", s.Puts, s.Size)
	}
}

func TestManager_ExpiryBoundary(t *testing.T) {
	m := newTestManager(t, Config{DefaultTTL: time.Hour})
	ctx := context.Background()

	m.Set(ctx, "k", "v", Options{})

	// Just short of the TTL the entry is still valid.
	backdate(m, "default", "k", time.Hour-time.Second)
	if _, ok := m.Get(ctx, "k", Options{}); !ok {
		t.Error("Get() just before expiry ok = false, want true")
	}

	// At exactly the TTL the boundary is exclusive: expired.
	backdate(m, "default", "k", time.Second)
	if _, ok := m.Get(ctx, "k", Options{}); ok {
		t.Error("Get() at expiry ok = true, want false")
	}

	s := m.GetStats("")
	if s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
	if s.Size != 0 {
		t.Errorf("Size = %d, want 0 after expiry purge", s.Size)
	}
}

func TestManager_RefreshRecommended(t *testing.T) {
	m := newTestManager(t, Config{DefaultTTL: 100 * time.Second, RefreshThreshold: 80})
	ctx := context.Background()

	m.Set(ctx, "k", "v", Options{})
	backdate(m, "default", "k", 90*time.Second)

	res, ok := m.Get(ctx, "k", Options{})
	if !ok {
		t.Fatal("Get() ok = false, want true: entry is past threshold but still valid")
	}
	if !res.RefreshRecommended {
		t.Error("RefreshRecommended = false, want true past 80% of TTL")
	}
	if res.Value != "v" {
		t.Errorf("Value = %v, want v: the signal never discards the value", res.Value)
	}
}

func TestManager_PerCallTTLOverride(t *testing.T) {
	m := newTestManager(t, Config{DefaultTTL: time.Hour})
	ctx := context.Background()

	m.Set(ctx, "k", "v", Options{TTL: 10 * time.Second})
	backdate(m, "default", "k", 11*time.Second)

	if _, ok := m.Get(ctx, "k", Options{}); ok {
		t.Error("Get() ok = true, want false: per-call TTL should govern expiry")
	}
}

func TestManager_Has(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v", Options{})

	if !m.Has("k", "") {
		t.Error("Has() = false, want true")
	}
	if m.Has("absent", "") {
		t.Error("Has() = true for absent key")
	}

	backdate(m, "default", "k", 2*time.Hour)
	if m.Has("k", "") {
		t.Error("Has() = true for expired entry")
	}
	// Has is read-only: no eviction recorded.
	if s := m.GetStats(""); s.Evictions != 0 {
		t.Errorf("Evictions = %d, want 0 after Has()", s.Evictions)
	}
}

func TestManager_Remove(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k", "v", Options{})
	m.Remove(ctx, "k", "")

	if _, ok := m.Get(ctx, "k", Options{}); ok {
		t.Error("Get() ok = true after Remove()")
	}
}

func TestManager_ClearNamespace(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k1", 1, Options{Namespace: "a"})
	m.Set(ctx, "k2", 2, Options{Namespace: "a"})
	m.Set(ctx, "k1", 3, Options{Namespace: "b"})

	m.ClearNamespace(ctx, "a")

	if _, ok := m.Get(ctx, "k1", Options{Namespace: "a"}); ok {
		t.Error("namespace a still has k1 after ClearNamespace")
	}
	if _, ok := m.Get(ctx, "k1", Options{Namespace: "b"}); !ok {
		t.Error("namespace b lost k1 after clearing a")
	}

	// Stats for the cleared namespace reset, then the miss above
	// re-created the counters.
	s := m.GetStats("a")
	if s.Puts != 0 {
		t.Errorf("Puts = %d, want 0 after namespace clear", s.Puts)
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k1", 1, Options{Namespace: "a"})
	m.Set(ctx, "k2", 2, Options{Namespace: "b"})

	m.Clear(ctx)

	if s := m.GetStats("a"); s.Size != 0 || s.Puts != 0 {
		t.Errorf("namespace a stats = %+v, want zeroed", s)
	}
	if s := m.GetStats("b"); s.Size != 0 || s.Puts != 0 {
		t.Errorf("namespace b stats = %+v, want zeroed", s)
	}
}

func TestManager_Cleanup(t *testing.T) {
	m := newTestManager(t, Config{DefaultTTL: time.Hour})
	ctx := context.Background()

	m.Set(ctx, "live", 1, Options{Namespace: "a"})
	m.Set(ctx, "dead1", 2, Options{Namespace: "a"})
	m.Set(ctx, "dead2", 3, Options{Namespace: "b"})
	backdate(m, "a", "dead1", 2*time.Hour)
	backdate(m, "b", "dead2", 2*time.Hour)

	if purged := m.Cleanup(); purged != 2 {
		t.Errorf("Cleanup() = %d, want 2", purged)
	}

	if !m.Has("live", "a") {
		t.Error("live entry purged by Cleanup()")
	}
	if s := m.GetStats("a"); s.Evictions != 1 {
		t.Errorf("namespace a Evictions = %d, want 1", s.Evictions)
	}
	if s := m.GetStats("b"); s.Evictions != 1 {
		t.Errorf("namespace b Evictions = %d, want 1", s.Evictions)
	}
}

func TestManager_GetStats(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	m.Set(ctx, "k1", 1, Options{Namespace: "a"})
	m.Set(ctx, "k2", 2, Options{Namespace: "a"})
	backdate(m, "a", "k1", 10*time.Minute)

	_, _ = m.Get(ctx, "k1", Options{Namespace: "a"})
	_, _ = m.Get(ctx, "absent", Options{Namespace: "a"})

	s := m.GetStats("a")
	if s.Hits != 1 || s.Misses != 1 || s.Puts != 2 {
		t.Errorf("Hits/Misses/Puts = %d/%d/%d, want 1/1/2", s.Hits, s.Misses, s.Puts)
	}
	if s.Size != 2 {
		t.Errorf("Size = %d, want 2", s.Size)
	}
	if !s.OldestEntry.Before(s.NewestEntry) {
		t.Errorf("OldestEntry %v not before NewestEntry %v", s.OldestEntry, s.NewestEntry)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	m := NewManager(Config{CleanupInterval: time.Minute})
	m.Close()
	m.Close()
}

func TestManager_Defaults(t *testing.T) {
	m := newTestManager(t, Config{CleanupInterval: -1})

	if m.cfg.DefaultTTL != time.Hour {
		t.Errorf("DefaultTTL = %v, want 1h", m.cfg.DefaultTTL)
	}
	if m.cfg.DefaultNamespace != "default" {
		t.Errorf("DefaultNamespace = %q, want default", m.cfg.DefaultNamespace)
	}
	if m.cfg.RefreshThreshold != 80 {
		t.Errorf("RefreshThreshold = %d, want 80", m.cfg.RefreshThreshold)
	}
}
