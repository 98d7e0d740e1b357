// Package research specializes the generic cache for a research/lookup
// workload.
//
// Each operation kind (search, fact extraction, validation,
// cross-domain, enrichment) gets its own namespace and TTL. Keys are
// derived by normalizing free-text inputs and hashing a canonical
// serialization of the relevant options, so identical logical requests
// map to one key regardless of key ordering or whitespace.
// GetOrCompute deduplicates concurrent computes and refreshes entries
// in the background once the refresh-ahead threshold is crossed.
package research
