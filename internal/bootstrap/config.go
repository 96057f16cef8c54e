package bootstrap

import (
	"fmt"

	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/logger"
)

// LoadConfig resolves the config file path and loads the configuration.
func LoadConfig() (*config.Config, error) {
	path := config.GetConfigPath("config.yml")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// CreateLogger builds the application logger from config.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return log.With(logger.String("service", "feedback-insights"), logger.String("version", version)), nil
}
