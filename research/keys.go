package research

import (
	"sort"
	"strings"

	"github.com/jonwraymond/bastion/cache"
)

// Key fragments are truncated SHA-256 hex. Two fragments of 16 chars
// keep keys short while making collisions between distinct requests
// negligible.
const fragmentLen = 16

// SearchOptions is the option subset that participates in search keys.
type SearchOptions struct {
	Domains    []string `json:"domains,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	Depth      string   `json:"depth,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// SearchKey derives a deterministic key from a query and its options.
// The query is normalized (trim + lowercase) and the options are
// serialized with sorted keys, so logically identical requests map to
// the same key regardless of whitespace or key ordering.
func SearchKey(query string, opts SearchOptions) (string, error) {
	canonical, err := cache.Canonicalize(opts)
	if err != nil {
		return "", err
	}
	return cache.HashText(query, fragmentLen) + ":" + cache.HashFragment(canonical, fragmentLen), nil
}

// ExtractionKey derives a key from the text content to extract from.
func ExtractionKey(text string) string {
	return cache.HashText(text, 2*fragmentLen)
}

// ValidationKey derives a key from a claim and its supporting evidence.
func ValidationKey(claim string, evidence any) (string, error) {
	canonical, err := cache.Canonicalize(evidence)
	if err != nil {
		return "", err
	}
	return cache.HashText(claim, fragmentLen) + ":" + cache.HashFragment(canonical, fragmentLen), nil
}

// CrossDomainKey derives a key from a query and the domain set it
// spans. Domains are normalized and sorted: the set, not its order,
// identifies the request.
func CrossDomainKey(query string, domains []string) string {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		normalized = append(normalized, cache.NormalizeText(d))
	}
	sort.Strings(normalized)

	joined := strings.Join(normalized, ",")
	return cache.HashText(query, fragmentLen) + ":" + cache.HashFragment([]byte(joined), fragmentLen)
}

// EnrichmentKey derives a key from an entity name and the attribute
// payload requested for it.
func EnrichmentKey(entity string, attrs any) (string, error) {
	canonical, err := cache.Canonicalize(attrs)
	if err != nil {
		return "", err
	}
	return cache.HashText(entity, fragmentLen) + ":" + cache.HashFragment(canonical, fragmentLen), nil
}
