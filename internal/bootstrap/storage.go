package bootstrap

import (
	"time"

	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/storage"
)

// SetupStorage prepares the on-disk job store and, when a retention period
// is configured, starts the background sweep of expired jobs.
func SetupStorage(cfg *config.Config, log logger.Logger) (*storage.Store, error) {
	store, err := storage.NewStore(cfg.Storage.BasePath, log)
	if err != nil {
		return nil, err
	}
	log.Info("Artifact storage ready",
		logger.String("base_path", cfg.Storage.BasePath),
		logger.Duration("retention", cfg.Storage.Retention),
	)

	if cfg.Storage.Retention > 0 {
		go runJanitor(store, cfg.Storage.Retention, cfg.Storage.CleanupInterval, log)
	}
	return store, nil
}

func runJanitor(store *storage.Store, retention, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := store.CleanupOlderThan(retention); err != nil {
			log.Warn("Job cleanup sweep failed", logger.Error(err))
		}
	}
}
