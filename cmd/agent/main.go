package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tjfontaine/kb-agent/internal/agent"
	"github.com/tjfontaine/kb-agent/internal/config"
	"github.com/tjfontaine/kb-agent/internal/llm"
	"github.com/tjfontaine/kb-agent/internal/ltm"
	"github.com/tjfontaine/kb-agent/internal/processor"
	"github.com/tjfontaine/kb-agent/internal/server"
	"github.com/tjfontaine/kb-agent/internal/taskstore"
	"github.com/tjfontaine/kb-agent/internal/taskstore/mongo"
	"github.com/tjfontaine/kb-agent/internal/taskstore/sqlite"
	"github.com/tjfontaine/kb-agent/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("kb-agent", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.LTM.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create LTM directory: %v", err)
	}

	cache := ltm.Open(filepath.Join(cfg.LTM.Dir, "cache.json"), logger)
	wiki := ltm.OpenWiki(filepath.Join(cfg.LTM.Dir, "wiki.json"), logger)

	// The task store and LLM parser are optional. When either is
	// unavailable the agent still serves wiki updates and health checks;
	// create_task requests report INITIALIZATION_ERROR instead.
	store := openTaskStore(cfg, logger)
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close task store", slog.String("error", err.Error()))
			}
		}()
	}

	var parser processor.TaskParser
	if cfg.OpenAI.APIKey != "" {
		client := llm.NewClient(cfg.OpenAI.APIKey,
			llm.WithBaseURL(cfg.OpenAI.BaseURL),
			llm.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.OpenAI.TimeoutMS) * time.Millisecond,
			}),
		)
		parser = llm.NewTaskParser(client, cfg.OpenAI.Model, logger)
	} else {
		logger.Warn("no OpenAI API key configured, task creation disabled")
	}

	proc := processor.New(cache, logger)
	wikiStrategy := processor.NewWikiStrategy(wiki, logger)
	createStrategy := processor.NewCreateTaskStrategy(parser, store, logger)

	handler := agent.NewHandler(cfg.Agent.ID, proc, wikiStrategy, createStrategy, store, logger)

	srv := server.New(cfg.Server.Port, logger)
	handler.Routes(srv.Router)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	logger.Info("agent started",
		slog.String("agent_id", cfg.Agent.ID),
		slog.Int("port", cfg.Server.Port),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Int("cached_responses", cache.Len()),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Agent shutdown complete")
}

// openTaskStore connects to the configured task store. Failures are logged
// and leave the agent in degraded mode rather than aborting startup.
func openTaskStore(cfg *config.Config, logger *slog.Logger) taskstore.Store {
	switch cfg.Store.Driver {
	case "mongodb":
		store, err := mongo.New(cfg.Store.DSN, cfg.Store.Database, cfg.Store.Collection)
		if err != nil {
			logger.Error("failed to connect to MongoDB, task creation disabled",
				slog.String("error", err.Error()))
			return nil
		}
		return store
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Error("failed to create task store directory, task creation disabled",
					slog.String("error", err.Error()))
				return nil
			}
		}
		store, err := sqlite.New(cfg.Store.DSN)
		if err != nil {
			logger.Error("failed to open SQLite task store, task creation disabled",
				slog.String("error", err.Error()))
			return nil
		}
		return store
	default:
		logger.Error("unknown task store driver, task creation disabled",
			slog.String("driver", cfg.Store.Driver))
		return nil
	}
}
