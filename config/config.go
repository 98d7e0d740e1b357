package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jonwraymond/bastion/cache"
	"github.com/jonwraymond/bastion/research"
)

// Environment variable names consumed by FromEnv.
const (
	EnvCachePersistent     = "BASTION_CACHE_PERSISTENT"
	EnvCacheDir            = "BASTION_CACHE_DIR"
	EnvCacheTTL            = "BASTION_CACHE_TTL"
	EnvCacheCleanup        = "BASTION_CACHE_CLEANUP_INTERVAL"
	EnvResearchCache       = "BASTION_RESEARCH_CACHE"
	EnvTTLSearch           = "BASTION_TTL_SEARCH"
	EnvTTLFacts            = "BASTION_TTL_FACTS"
	EnvTTLValidation       = "BASTION_TTL_VALIDATION"
	EnvTTLCrossDomain      = "BASTION_TTL_CROSSDOMAIN"
	EnvTTLEnrichment       = "BASTION_TTL_ENRICHMENT"
	EnvAllowMetricsFailure = "BASTION_ALLOW_METRICS_FAILURE"
)

// Config is the environment-driven configuration surface of the
// library. Unset variables leave the corresponding fields zero, so the
// consuming constructors apply their own defaults.
type Config struct {
	// CachePersistent enables the file-backed cache tier.
	CachePersistent bool

	// CacheDir is the persistence directory.
	CacheDir string

	// CacheTTL is the default entry TTL.
	CacheTTL time.Duration

	// CacheCleanupInterval is the background purge interval.
	CacheCleanupInterval time.Duration

	// ResearchCache enables the research cache layer.
	ResearchCache bool

	// TTLs are the per-operation-kind overrides.
	TTLSearch      time.Duration
	TTLFacts       time.Duration
	TTLValidation  time.Duration
	TTLCrossDomain time.Duration
	TTLEnrichment  time.Duration

	// AllowMetricsFailure permits resilience wrappers to start without
	// metrics registration instead of failing fast.
	AllowMetricsFailure bool
}

// FromEnv loads configuration from the environment. Malformed values
// error rather than being silently ignored.
func FromEnv() (Config, error) {
	var (
		cfg Config
		err error
	)

	if cfg.CachePersistent, err = boolVar(EnvCachePersistent); err != nil {
		return Config{}, err
	}
	cfg.CacheDir = os.Getenv(EnvCacheDir)
	if cfg.CacheTTL, err = durationVar(EnvCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.CacheCleanupInterval, err = durationVar(EnvCacheCleanup); err != nil {
		return Config{}, err
	}
	if cfg.ResearchCache, err = boolVar(EnvResearchCache); err != nil {
		return Config{}, err
	}
	if cfg.TTLSearch, err = durationVar(EnvTTLSearch); err != nil {
		return Config{}, err
	}
	if cfg.TTLFacts, err = durationVar(EnvTTLFacts); err != nil {
		return Config{}, err
	}
	if cfg.TTLValidation, err = durationVar(EnvTTLValidation); err != nil {
		return Config{}, err
	}
	if cfg.TTLCrossDomain, err = durationVar(EnvTTLCrossDomain); err != nil {
		return Config{}, err
	}
	if cfg.TTLEnrichment, err = durationVar(EnvTTLEnrichment); err != nil {
		return Config{}, err
	}
	if cfg.AllowMetricsFailure, err = boolVar(EnvAllowMetricsFailure); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	if c.CachePersistent && c.CacheDir == "" {
		return fmt.Errorf("%s requires %s to be set", EnvCachePersistent, EnvCacheDir)
	}
	return nil
}

// Cache translates the configuration into a cache.Config.
func (c Config) Cache() cache.Config {
	return cache.Config{
		DefaultTTL:      c.CacheTTL,
		CleanupInterval: c.CacheCleanupInterval,
		Persistent:      c.CachePersistent,
		Dir:             c.CacheDir,
	}
}

// TTLs translates the per-kind overrides into a research.TTLConfig.
func (c Config) TTLs() research.TTLConfig {
	return research.TTLConfig{
		Search:         c.TTLSearch,
		FactExtraction: c.TTLFacts,
		Validation:     c.TTLValidation,
		CrossDomain:    c.TTLCrossDomain,
		Enrichment:     c.TTLEnrichment,
	}
}

func boolVar(name string) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s: invalid boolean %q", name, raw)
	}
	return v, nil
}

func durationVar(name string) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid duration %q", name, raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("config: %s: duration must be positive, got %q", name, raw)
	}
	return v, nil
}
