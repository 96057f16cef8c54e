package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

// RecordAnalyzer judges a single comment record.
type RecordAnalyzer interface {
	Analyze(ctx context.Context, record models.CommentRecord) models.CommentJudgment
}

// Coordinator fans a batch of records out to concurrent analysis workers.
// A buffered-channel semaphore caps in-flight model calls; results land at
// the same index as their record so pairing survives the concurrency.
type Coordinator struct {
	analyzer       RecordAnalyzer
	maxConcurrency int
	logger         logger.Logger
}

func NewCoordinator(analyzer RecordAnalyzer, maxConcurrency int, log logger.Logger) *Coordinator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Coordinator{
		analyzer:       analyzer,
		maxConcurrency: maxConcurrency,
		logger:         log,
	}
}

// AnalyzeBatch judges every record and returns the judgments in record
// order. It waits for all workers before returning; individual failures are
// absorbed by the analyzer's fallback, so the slice length always matches
// the input.
func (c *Coordinator) AnalyzeBatch(ctx context.Context, records []models.CommentRecord) []models.CommentJudgment {
	if len(records) == 0 {
		return []models.CommentJudgment{}
	}

	start := time.Now()
	c.logger.Info("Starting batch analysis",
		logger.Int("comments", len(records)),
		logger.Int("max_concurrency", c.maxConcurrency),
	)

	judgments := make([]models.CommentJudgment, len(records))
	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup

	for i, record := range records {
		wg.Add(1)
		go func(i int, record models.CommentRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			judgments[i] = c.analyzer.Analyze(ctx, record)
		}(i, record)
	}
	wg.Wait()

	c.logger.Info("Batch analysis complete",
		logger.Int("comments", len(records)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return judgments
}
