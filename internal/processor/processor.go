// Package processor runs task strategies behind the request/response cache.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/kb-agent/internal/domain"
	"github.com/tjfontaine/kb-agent/internal/ltm"
)

// Strategy is one interchangeable task behavior, selected by the envelope's
// task name or intent.
type Strategy interface {
	// Name is the operation name the strategy serves.
	Name() string

	// Execute runs the task. Failures are reported in the response, never
	// panicked or returned out of band.
	Execute(ctx context.Context, req domain.TaskRequest) domain.TaskResponse
}

// Processor consults the cache before invoking a strategy and records
// successful results afterwards. Failures are never cached, so a corrected
// retry with identical input can succeed later.
type Processor struct {
	cache  *ltm.Cache
	logger *slog.Logger
}

// New creates a processor over the given cache.
func New(cache *ltm.Cache, logger *slog.Logger) *Processor {
	return &Processor{cache: cache, logger: logger}
}

// Process serves the request from cache when possible, otherwise runs the
// strategy and caches a successful result. A cache-flush failure is logged
// and does not change the returned response.
func (p *Processor) Process(ctx context.Context, req domain.TaskRequest, strategy Strategy) (resp domain.TaskResponse) {
	// Blanket fallback for unexpected strategy faults; expected failures
	// travel as error responses, not panics.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("unexpected fault during task processing",
				slog.String("strategy", strategy.Name()),
				slog.Any("panic", r))
			resp = domain.Failure(domain.ErrorCodeProcessing, fmt.Sprintf("Error processing task: %v", r))
		}
	}()

	key := ltm.Fingerprint(req)

	if entry, ok := p.cache.Lookup(key); ok {
		p.logger.Info("returning cached response",
			slog.String("strategy", strategy.Name()),
			slog.String("fingerprint", key[:8]))
		return entry.Response
	}

	p.logger.Info("request not found in cache, executing strategy",
		slog.String("strategy", strategy.Name()),
		slog.String("fingerprint", key[:8]))

	result := strategy.Execute(ctx, req)

	if result.Status == domain.StatusSuccess {
		entry := ltm.Entry{Request: req, Response: result, Timestamp: domain.Now()}
		if err := p.cache.Insert(key, entry); err != nil {
			p.logger.Error("cache flush failed", slog.String("error", err.Error()))
		}
	}

	return result
}
