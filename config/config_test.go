package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.CachePersistent {
		t.Error("CachePersistent = true, want false by default")
	}
	if cfg.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0 so the cache applies its own default", cfg.CacheTTL)
	}
}

func TestFromEnv_Values(t *testing.T) {
	t.Setenv(EnvCachePersistent, "true")
	t.Setenv(EnvCacheDir, "/tmp/bastion")
	t.Setenv(EnvCacheTTL, "30m")
	t.Setenv(EnvCacheCleanup, "1m")
	t.Setenv(EnvResearchCache, "1")
	t.Setenv(EnvTTLSearch, "45m")
	t.Setenv(EnvTTLEnrichment, "72h")
	t.Setenv(EnvAllowMetricsFailure, "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if !cfg.CachePersistent || cfg.CacheDir != "/tmp/bastion" {
		t.Errorf("persistence config = %v/%q", cfg.CachePersistent, cfg.CacheDir)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", cfg.CacheTTL)
	}
	if cfg.CacheCleanupInterval != time.Minute {
		t.Errorf("CacheCleanupInterval = %v, want 1m", cfg.CacheCleanupInterval)
	}
	if !cfg.ResearchCache {
		t.Error("ResearchCache = false, want true")
	}
	if cfg.TTLSearch != 45*time.Minute {
		t.Errorf("TTLSearch = %v, want 45m", cfg.TTLSearch)
	}
	if cfg.TTLEnrichment != 72*time.Hour {
		t.Errorf("TTLEnrichment = %v, want 72h", cfg.TTLEnrichment)
	}
	if !cfg.AllowMetricsFailure {
		t.Error("AllowMetricsFailure = false, want true")
	}
}

func TestFromEnv_MalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad bool", EnvCachePersistent, "yes please"},
		{"bad duration", EnvCacheTTL, "soon"},
		{"negative duration", EnvCacheTTL, "-5m"},
		{"zero duration", EnvTTLSearch, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("FromEnv() error = nil with %s=%q, want error", tt.env, tt.value)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	c := Config{CachePersistent: true}
	if err := c.Validate(); err == nil {
		t.Error("Validate() error = nil, want error when persistent without dir")
	}

	c.CacheDir = "/tmp/bastion"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestConfig_Cache(t *testing.T) {
	c := Config{
		CachePersistent:      true,
		CacheDir:             "/tmp/bastion",
		CacheTTL:             time.Hour,
		CacheCleanupInterval: time.Minute,
	}

	cc := c.Cache()
	if cc.DefaultTTL != time.Hour || cc.CleanupInterval != time.Minute {
		t.Errorf("Cache() = %+v", cc)
	}
	if !cc.Persistent || cc.Dir != "/tmp/bastion" {
		t.Errorf("Cache() persistence = %v/%q", cc.Persistent, cc.Dir)
	}
}

func TestConfig_TTLs(t *testing.T) {
	c := Config{TTLSearch: time.Minute, TTLFacts: 2 * time.Hour}

	ttls := c.TTLs()
	if ttls.Search != time.Minute {
		t.Errorf("Search = %v, want 1m", ttls.Search)
	}
	if ttls.FactExtraction != 2*time.Hour {
		t.Errorf("FactExtraction = %v, want 2h", ttls.FactExtraction)
	}
	if ttls.Validation != 0 {
		t.Errorf("Validation = %v, want 0 so defaults apply downstream", ttls.Validation)
	}
}
