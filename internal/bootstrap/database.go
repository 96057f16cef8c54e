package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/database"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/repository"
)

const schemaTimeout = 10 * time.Second

// JobIndex bundles the optional database connection with its repository.
type JobIndex struct {
	DB   *database.DB
	Repo *repository.JobRepository
}

func (j *JobIndex) Close() error {
	return j.DB.Close()
}

// SetupJobIndex connects the job index when the feature is enabled. Returns
// nil without error when it is not.
func SetupJobIndex(cfg *config.Config, log logger.Logger) (*JobIndex, error) {
	if !cfg.Database.Enabled {
		log.Info("Job index disabled, running on filesystem storage only")
		return nil, nil
	}

	db, err := database.New(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	repo := repository.NewJobRepository(db.DB(), log)
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &JobIndex{DB: db, Repo: repo}, nil
}
