package bootstrap

import (
	"fmt"

	"github.com/snacklabs/feedback-insights/internal/analysis"
	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/export"
	"github.com/snacklabs/feedback-insights/internal/importer"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/repository"
	"github.com/snacklabs/feedback-insights/internal/service"
	"github.com/snacklabs/feedback-insights/internal/storage"
)

// SetupPipeline assembles the feedback service from its stages.
func SetupPipeline(cfg *config.Config, store *storage.Store, index *JobIndex, log logger.Logger) (*service.Feedback, error) {
	client, err := analysis.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	analyzer := analysis.NewAnalyzer(client, log)
	coordinator := analysis.NewCoordinator(analyzer, cfg.OpenAI.MaxConcurrency, log)

	svc := service.NewFeedback(
		importer.NewParser(log),
		coordinator,
		analysis.NewAggregator(log),
		store,
		export.NewExporter(log),
		jobRepo(index),
		cfg.OpenAI.Model,
		log,
	)
	return svc, nil
}

func jobRepo(index *JobIndex) *repository.JobRepository {
	if index == nil {
		return nil
	}
	return index.Repo
}
