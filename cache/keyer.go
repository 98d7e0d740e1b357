package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NormalizeText prepares free-text input for key derivation: trimmed
// and lowercased, so incidental whitespace and casing do not fragment
// the key space.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HashFragment returns the first n hex characters of SHA-256(data).
// Derived keys concatenate fragments so logically identical requests
// map to one key while distinct requests collide with negligible
// probability.
func HashFragment(data []byte, n int) string {
	sum := sha256.Sum256(data)
	frag := hex.EncodeToString(sum[:])
	if n > 0 && n < len(frag) {
		frag = frag[:n]
	}
	return frag
}

// HashText is shorthand for hashing normalized text.
func HashText(s string, n int) string {
	return HashFragment([]byte(NormalizeText(s)), n)
}

// Canonicalize produces a deterministic JSON representation of v.
// Map keys are sorted so the result is independent of iteration order.
func Canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// Round-trip through generic JSON so struct fields and typed
		// maps canonicalize the same way as map[string]any inputs.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: failed to canonicalize input: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("cache: failed to canonicalize input: %w", err)
		}
		if _, isMap := generic.(map[string]any); !isMap {
			if _, isSlice := generic.([]any); !isSlice {
				return raw, nil
			}
		}
		return Canonicalize(generic)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := Canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := Canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
