package ltm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/tjfontaine/kb-agent/internal/domain"
)

// wikiDocument is the on-disk shape of the wiki content slot.
type wikiDocument struct {
	Content     string `json:"content"`
	Size        int    `json:"size"`
	LastUpdated string `json:"last_updated"`
}

// WikiStore holds the single wiki content slot, loaded at start and
// rewritten in full on every successful write.
type WikiStore struct {
	mu      sync.RWMutex
	path    string
	content string
	logger  *slog.Logger
}

// OpenWiki loads the wiki slot from path. Missing or malformed files yield
// empty content.
func OpenWiki(path string, logger *slog.Logger) *WikiStore {
	w := &WikiStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read wiki file, starting empty",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return w
	}

	var doc wikiDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Error("failed to parse wiki file, starting empty",
			slog.String("path", path), slog.String("error", err.Error()))
		return w
	}

	w.content = doc.Content
	return w
}

// Content returns the current wiki content.
func (w *WikiStore) Content() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.content
}

// Write replaces the wiki content and rewrites the slot file. The in-memory
// content is updated only when the file write succeeds.
func (w *WikiStore) Write(content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := wikiDocument{
		Content:     content,
		Size:        utf8.RuneCountInString(content),
		LastUpdated: domain.Now(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wiki document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create wiki directory: %w", err)
	}
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write wiki file: %w", err)
	}

	w.content = content
	return nil
}
