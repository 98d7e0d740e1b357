package research

import "time"

// Kind identifies one research operation kind. The set is closed;
// every kind has its own cache namespace and TTL.
type Kind int

const (
	// KindSearch caches external search results (volatile, short TTL).
	KindSearch Kind = iota
	// KindFactExtraction caches facts extracted from text (stable).
	KindFactExtraction
	// KindValidation caches claim-validation verdicts.
	KindValidation
	// KindCrossDomain caches cross-domain lookups.
	KindCrossDomain
	// KindEnrichment caches entity enrichment (most stable, longest TTL).
	KindEnrichment
)

// Kinds returns all recognized kinds, for stats aggregation and clears.
func Kinds() []Kind {
	return []Kind{KindSearch, KindFactExtraction, KindValidation, KindCrossDomain, KindEnrichment}
}

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindFactExtraction:
		return "fact_extraction"
	case KindValidation:
		return "validation"
	case KindCrossDomain:
		return "cross_domain"
	case KindEnrichment:
		return "enrichment"
	default:
		return "unknown"
	}
}

// Namespace returns the cache namespace backing this kind.
func (k Kind) Namespace() string {
	return "research_" + k.String()
}

// TTLConfig holds one TTL per operation kind. Zero fields take the
// defaults.
type TTLConfig struct {
	Search         time.Duration
	FactExtraction time.Duration
	Validation     time.Duration
	CrossDomain    time.Duration
	Enrichment     time.Duration
}

// DefaultTTLs returns the default per-kind TTLs: shorter for volatile
// results, longer for stable ones.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		Search:         time.Hour,
		FactExtraction: 24 * time.Hour,
		Validation:     6 * time.Hour,
		CrossDomain:    12 * time.Hour,
		Enrichment:     7 * 24 * time.Hour,
	}
}

// For returns the TTL configured for a kind.
func (c TTLConfig) For(k Kind) time.Duration {
	switch k {
	case KindSearch:
		return c.Search
	case KindFactExtraction:
		return c.FactExtraction
	case KindValidation:
		return c.Validation
	case KindCrossDomain:
		return c.CrossDomain
	case KindEnrichment:
		return c.Enrichment
	default:
		return 0
	}
}

func (c TTLConfig) withDefaults() TTLConfig {
	def := DefaultTTLs()
	if c.Search <= 0 {
		c.Search = def.Search
	}
	if c.FactExtraction <= 0 {
		c.FactExtraction = def.FactExtraction
	}
	if c.Validation <= 0 {
		c.Validation = def.Validation
	}
	if c.CrossDomain <= 0 {
		c.CrossDomain = def.CrossDomain
	}
	if c.Enrichment <= 0 {
		c.Enrichment = def.Enrichment
	}
	return c
}
