package research

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/bastion/cache"
	"github.com/jonwraymond/bastion/observe"
)

// Config configures a research Cache.
type Config struct {
	// Manager is the backing cache manager. Required.
	Manager *cache.Manager

	// TTLs are the per-kind TTLs; zero fields take defaults.
	TTLs TTLConfig

	// Persistent requests the file tier for every entry, effective only
	// when the manager has persistence enabled.
	Persistent bool

	// Logger receives refresh-ahead records.
	Logger observe.Logger
}

// Cache is a thin domain layer over cache.Manager for research/lookup
// workloads: one namespace per operation kind, each with its own TTL,
// and deterministic hashed keys derived from structured inputs.
type Cache struct {
	manager    *cache.Manager
	ttls       TTLConfig
	persistent bool
	logger     observe.Logger
	group      singleflight.Group
}

// New creates a research cache over the given manager.
func New(cfg Config) (*Cache, error) {
	if cfg.Manager == nil {
		return nil, errors.New("research: cache manager is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	return &Cache{
		manager:    cfg.Manager,
		ttls:       cfg.TTLs.withDefaults(),
		persistent: cfg.Persistent,
		logger:     logger.WithComponent("research_cache"),
	}, nil
}

func (c *Cache) options(kind Kind) cache.Options {
	return cache.Options{
		TTL:        c.ttls.For(kind),
		Namespace:  kind.Namespace(),
		Persistent: c.persistent,
		Source:     kind.String(),
	}
}

// Get retrieves a cached result for one operation kind.
func (c *Cache) Get(ctx context.Context, kind Kind, key string) (cache.Result, bool) {
	return c.manager.Get(ctx, key, c.options(kind))
}

// Set stores a result under the kind's namespace and TTL.
func (c *Cache) Set(ctx context.Context, kind Kind, key string, value any) {
	c.manager.Set(ctx, key, value, c.options(kind))
}

// GetOrCompute returns the cached value for key, computing and caching
// it on a miss. Concurrent computes for the same key are deduplicated.
// A hit that carries the refresh-ahead signal is served immediately
// while a background recompute refreshes the entry. Compute errors are
// never cached.
func (c *Cache) GetOrCompute(ctx context.Context, kind Kind, key string, compute func(context.Context) (any, error)) (any, error) {
	if res, ok := c.Get(ctx, kind, key); ok {
		if res.RefreshRecommended {
			c.refreshAsync(ctx, kind, key, compute)
		}
		return res.Value, nil
	}

	value, err, _ := c.group.Do(kind.Namespace()+":"+key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, kind, key, v)
		return v, nil
	})
	return value, err
}

// refreshAsync recomputes an entry in the background. The singleflight
// group collapses concurrent refreshes of the same key; the detached
// context outlives the request that triggered the refresh.
func (c *Cache) refreshAsync(ctx context.Context, kind Kind, key string, compute func(context.Context) (any, error)) {
	bg := context.WithoutCancel(ctx)
	c.logger.Debug(ctx, "refresh-ahead triggered",
		observe.Field{Key: "kind", Value: kind.String()},
		observe.Field{Key: "key", Value: key},
	)

	go func() {
		_, err, _ := c.group.Do(kind.Namespace()+":"+key, func() (any, error) {
			v, err := compute(bg)
			if err != nil {
				return nil, err
			}
			c.Set(bg, kind, key, v)
			return v, nil
		})
		if err != nil {
			c.logger.Warn(bg, "refresh-ahead recompute failed",
				observe.Field{Key: "kind", Value: kind.String()},
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}()
}

// Clear empties one kind's namespace.
func (c *Cache) Clear(ctx context.Context, kind Kind) {
	c.manager.ClearNamespace(ctx, kind.Namespace())
}

// ClearAll empties every recognized kind's namespace.
func (c *Cache) ClearAll(ctx context.Context) {
	for _, kind := range Kinds() {
		c.manager.ClearNamespace(ctx, kind.Namespace())
	}
}

// StatsByKind returns per-kind cache statistics.
func (c *Cache) StatsByKind() map[Kind]cache.Stats {
	out := make(map[Kind]cache.Stats, len(Kinds()))
	for _, kind := range Kinds() {
		out[kind] = c.manager.GetStats(kind.Namespace())
	}
	return out
}

// Stats aggregates statistics across all recognized kinds.
func (c *Cache) Stats() cache.Stats {
	var agg cache.Stats
	for _, kind := range Kinds() {
		s := c.manager.GetStats(kind.Namespace())
		agg.Hits += s.Hits
		agg.Misses += s.Misses
		agg.Puts += s.Puts
		agg.Evictions += s.Evictions
		agg.Size += s.Size
		if agg.OldestEntry.IsZero() || (!s.OldestEntry.IsZero() && s.OldestEntry.Before(agg.OldestEntry)) {
			agg.OldestEntry = s.OldestEntry
		}
		if s.NewestEntry.After(agg.NewestEntry) {
			agg.NewestEntry = s.NewestEntry
		}
	}
	return agg
}
