package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	filePrefix = "cache_"
	fileExt    = ".json"
)

// Non-alphanumeric key characters are replaced before use as a
// filename. Every operation must agree on this one sanitizer or reads
// and writes will miss each other.
var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

func sanitizeKey(key string) string {
	return unsafeKeyChars.ReplaceAllString(key, "_")
}

// persistedEntry is the on-disk form of an Entry: one JSON document per
// file. Values round-trip through JSON, so a loaded entry holds generic
// JSON types (map[string]any, []any, float64) rather than the original
// Go type.
type persistedEntry struct {
	Key       string            `json:"key"`
	Value     json.RawMessage   `json:"value"`
	CreatedAt time.Time         `json:"created_at"`
	TTL       time.Duration     `json:"ttl"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Source    string            `json:"source,omitempty"`
}

func (p *persistedEntry) valid(now time.Time) bool {
	return now.Sub(p.CreatedAt) < p.TTL
}

// fileStore persists one entry per file under a single directory.
// Writes are fire-and-forget from the manager's point of view; memory
// stays authoritative.
type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if dir == "" {
		return nil, errors.New("cache: persistence directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cache: create persistence directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(key string) string {
	return filepath.Join(s.dir, filePrefix+sanitizeKey(key)+fileExt)
}

// exists performs a blocking stat. Kept explicit so callers never rely
// on a racy read-after-check.
func (s *fileStore) exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

func (s *fileStore) write(key string, e *Entry) error {
	raw, err := json.Marshal(e.Value)
	if err != nil {
		return fmt.Errorf("cache: marshal value for %q: %w", key, err)
	}

	p := persistedEntry{
		Key:       key,
		Value:     raw,
		CreatedAt: e.CreatedAt,
		TTL:       e.TTL,
		Metadata:  e.Metadata,
		Source:    e.Source,
	}
	data, err := json.Marshal(&p)
	if err != nil {
		return fmt.Errorf("cache: marshal entry for %q: %w", key, err)
	}

	if err := os.WriteFile(s.path(key), data, 0o600); err != nil {
		return fmt.Errorf("cache: write entry for %q: %w", key, err)
	}
	return nil
}

func (s *fileStore) read(key string) (*persistedEntry, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}

	var p persistedEntry
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache: parse entry for %q: %w", key, err)
	}
	return &p, nil
}

func (s *fileStore) remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// scan parses every cache file in the directory. Unparseable files are
// returned by name so the caller can decide whether to delete them.
func (s *fileStore) scan() (entries []*persistedEntry, corrupt []string, err error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: read persistence directory: %w", err)
	}

	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}

		data, readErr := os.ReadFile(filepath.Join(s.dir, name))
		if readErr != nil {
			corrupt = append(corrupt, name)
			continue
		}

		var p persistedEntry
		if unmarshalErr := json.Unmarshal(data, &p); unmarshalErr != nil || p.Key == "" {
			corrupt = append(corrupt, name)
			continue
		}
		entries = append(entries, &p)
	}
	return entries, corrupt, nil
}

func (s *fileStore) removeFile(name string) error {
	return os.Remove(filepath.Join(s.dir, name))
}
