package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tjfontaine/kb-agent/internal/domain"
	"github.com/tjfontaine/kb-agent/internal/ltm"
)

// WikiStrategy mutates the wiki content slot: overwrite by default, or
// append (existing + blank line + new) when update_mode says so and prior
// content exists.
type WikiStrategy struct {
	wiki   *ltm.WikiStore
	logger *slog.Logger
}

// NewWikiStrategy creates the wiki mutation strategy.
func NewWikiStrategy(wiki *ltm.WikiStore, logger *slog.Logger) *WikiStrategy {
	return &WikiStrategy{wiki: wiki, logger: logger}
}

func (s *WikiStrategy) Name() string { return domain.OpUpdateWiki }

func (s *WikiStrategy) Execute(ctx context.Context, req domain.TaskRequest) domain.TaskResponse {
	raw, present := req["wiki_update_content"]
	if !present || raw == nil {
		return domain.FailureFrom(domain.ErrMissingParameter("wiki_update_content"))
	}
	content := coerceString(raw)

	mode := "overwrite"
	if m, ok := req["update_mode"].(string); ok && strings.EqualFold(m, "append") {
		mode = "append"
	}

	existing := s.wiki.Content()
	final := content
	// Append falls back to a plain write when there is nothing to append to.
	if mode == "append" && existing != "" {
		final = existing + "\n\n" + content
	}

	if err := s.wiki.Write(final); err != nil {
		s.logger.Error("failed to write wiki content", slog.String("error", err.Error()))
		return domain.Failure(domain.ErrorCodeLTMWriteFailed, "Failed to write wiki content to long-term memory")
	}

	size := utf8.RuneCountInString(final)
	s.logger.Info("wiki updated", slog.String("mode", mode), slog.Int("size", size))

	return domain.Success("Wiki updated successfully", map[string]any{
		"wiki_size":   size,
		"update_mode": mode,
	})
}

// coerceString renders a JSON value as the string written to the wiki.
// Strings pass through; anything else keeps its JSON form.
func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
