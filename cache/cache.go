// Package cache stores query results on disk, one JSON file per
// (source, key) pair, with TTL-based invalidation. Read failures of any kind
// degrade to a cache miss so a broken cache never breaks a query.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"vulnquery/types"
)

// keySanitizer replaces path-separator-like characters so a package name such
// as "golang.org/x/net" yields a filesystem-safe file name.
var keySanitizer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// entry is the serialized unit of one cache file.
type entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Records   []types.CveRecord `json:"records"`
}

type Cache struct {
	fs     afero.Fs
	dir    string
	prefix string
}

// New returns a cache rooted at dir whose files carry the given source
// prefix. The directory is created recursively if absent.
func New(fs afero.Fs, dir, prefix string) (Cache, error) {
	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return Cache{}, xerrors.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return Cache{fs: fs, dir: dir, prefix: prefix}, nil
}

// Path returns the cache file path for key.
func (c Cache) Path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.json", c.prefix, keySanitizer.Replace(key)))
}

// Read returns the cached records for key if the file exists, parses, and is
// no older than ttlHours. An entry exactly at the boundary is still valid.
func (c Cache) Read(key string, ttlHours int) ([]types.CveRecord, bool) {
	b, err := afero.ReadFile(c.fs, c.Path(key))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}

	if time.Since(e.Timestamp) > time.Duration(ttlHours)*time.Hour {
		return nil, false
	}
	return e.Records, true
}

// Write overwrites the cache file for key with the current timestamp.
func (c Cache) Write(key string, records []types.CveRecord) error {
	e := entry{
		Timestamp: time.Now().UTC(),
		Records:   records,
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.Path(key), b, 0644); err != nil {
		return xerrors.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Clear removes every cache file carrying this cache's prefix. Files written
// under a different source prefix are left untouched.
func (c Cache) Clear() error {
	matches, err := afero.Glob(c.fs, filepath.Join(c.dir, c.prefix+"_*.json"))
	if err != nil {
		return xerrors.Errorf("failed to list cache files: %w", err)
	}
	for _, m := range matches {
		if err := c.fs.Remove(m); err != nil {
			return xerrors.Errorf("failed to remove %s: %w", m, err)
		}
	}
	return nil
}
