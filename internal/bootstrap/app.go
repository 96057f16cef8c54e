// Package bootstrap handles application initialization and lifecycle
// management for the feedback-insights service.
package bootstrap

import (
	"fmt"

	"github.com/snacklabs/feedback-insights/internal/logger"
)

const version = "dev"

// Start initializes and runs the feedback-insights application.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 2: Setup artifact storage
	store, err := SetupStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup storage: %w", err)
	}

	// Phase 3: Setup optional job index
	index, err := SetupJobIndex(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup job index: %w", err)
	}
	if index != nil {
		defer func() {
			if closeErr := index.Close(); closeErr != nil {
				log.Error("Failed to close database", logger.Error(closeErr))
			}
		}()
	}

	// Phase 4: Setup analysis pipeline
	svc, err := SetupPipeline(cfg, store, index, log)
	if err != nil {
		return fmt.Errorf("failed to setup pipeline: %w", err)
	}

	// Phase 5: Run HTTP server
	log.Info("Starting HTTP server",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
		logger.Bool("job_index", index != nil),
	)
	if runErr := RunHTTPServer(cfg, svc, index, log); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
