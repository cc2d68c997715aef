// Package cache provides read-through, write-on-miss file caches.
//
// Each Store is one namespace: a single JSON object on disk mapping string
// keys to raw JSON values. The file is read once when the store is opened
// and rewritten atomically (temp file + rename) after every Put, so partial
// runs still keep their progress.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store is a single cache namespace backed by one JSON file.
type Store struct {
	path    string
	entries map[string]json.RawMessage
}

// Open loads the cache file at path. A missing, unreadable, or corrupt file
// degrades to an empty cache; a fresh run simply recomputes.
func Open(path string) *Store {
	s := &Store{
		path:    path,
		entries: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cache file unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("cache file corrupt, starting empty", "path", path, "error", err)
		return s
	}

	for k, v := range raw {
		// Explicit "not found" entries (null) are dropped on load so a
		// later run retries them.
		if isNull(v) {
			continue
		}
		s.entries[k] = v
	}

	slog.Debug("cache loaded", "path", path, "entries", len(s.entries))
	return s
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || strings.TrimSpace(string(v)) == "null"
}

// Get unmarshals the cached value for key into v. The second return reports
// whether the key was present. A cached null reports present with v untouched,
// so callers can distinguish "known miss" from "never looked up".
func (s *Store) Get(key string, v any) (found, ok bool) {
	raw, exists := s.entries[key]
	if !exists {
		return false, false
	}
	if isNull(raw) {
		return true, false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Debug("cache entry undecodable, treating as miss", "path", s.path, "key", key, "error", err)
		return false, false
	}
	return true, true
}

// Put stores a value under key and flushes the namespace to disk. A nil
// value records an explicit "not found" so the same run does not retry.
func (s *Store) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache value for %q: %w", key, err)
	}
	s.entries[key] = raw
	return s.flush()
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// flush writes the whole namespace to a temp file and renames it over the
// target, so readers never observe a partial write.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache %s: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
