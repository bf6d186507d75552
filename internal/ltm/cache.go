package ltm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tjfontaine/kb-agent/internal/domain"
)

// Entry is one cached request/response pair. Entries are created once per
// fingerprint, on the first successful completion, and never mutated.
type Entry struct {
	Request   domain.TaskRequest  `json:"request"`
	Response  domain.TaskResponse `json:"response"`
	Timestamp string              `json:"timestamp"`
}

// Cache maps fingerprints to entries, held in memory and mirrored to a JSON
// file. Every insert rewrites the file in full; a failed flush keeps the
// in-memory entry and is reported to the caller.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	logger  *slog.Logger
}

// Open loads the cache from path. A missing file, unreadable file, or
// malformed content yields an empty cache; the agent must stay usable
// cache-cold.
func Open(path string, logger *slog.Logger) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]Entry),
		logger:  logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no existing cache found, starting fresh", slog.String("path", path))
		} else {
			logger.Error("failed to read cache file, starting fresh",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return c
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Error("failed to parse cache file, starting fresh",
			slog.String("path", path), slog.String("error", err.Error()))
		c.entries = make(map[string]Entry)
		return c
	}

	logger.Info("loaded cached responses", slog.Int("count", len(c.entries)), slog.String("path", path))
	return c
}

// Lookup returns the entry for key, if present.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Insert adds an entry and flushes the full cache to disk. The in-memory
// insertion survives a flush failure; the returned error reports it so the
// caller can log the unpersisted entry.
func (c *Cache) Insert(key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry
	if err := c.flushLocked(); err != nil {
		return fmt.Errorf("cache entry %s not persisted: %w", key[:8], err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) flushLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
