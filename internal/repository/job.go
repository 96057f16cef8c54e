// Package repository indexes analysis jobs in PostgreSQL. The index is
// optional: when the database feature flag is off the service runs purely on
// filesystem storage and this package is never constructed.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

var ErrNotFound = errors.New("job not found")

type JobRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewJobRepository(db *sql.DB, log logger.Logger) *JobRepository {
	return &JobRepository{db: db, logger: log}
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	job_id          UUID PRIMARY KEY,
	source_file     TEXT NOT NULL,
	model           TEXT NOT NULL,
	comment_count   INTEGER NOT NULL,
	sentiment_label TEXT NOT NULL,
	sentiment_score DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the jobs table when it does not exist yet.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("creating analysis_jobs table: %w", err)
	}
	return nil
}

const insertJobSQL = `
INSERT INTO analysis_jobs (job_id, source_file, model, comment_count, sentiment_label, sentiment_score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Insert records a completed job in the index.
func (r *JobRepository) Insert(ctx context.Context, meta models.JobMetadata) error {
	_, err := r.db.ExecContext(ctx, insertJobSQL,
		meta.JobID,
		meta.SourceFile,
		meta.Model,
		meta.CommentCount,
		meta.Report.OverallSentiment.Label,
		meta.Report.OverallSentiment.Score,
		meta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", meta.JobID, err)
	}

	r.logger.Debug("Job indexed", logger.String("job_id", meta.JobID))
	return nil
}

const getJobSQL = `
SELECT job_id, source_file, model, comment_count, sentiment_label, sentiment_score, created_at
FROM analysis_jobs
WHERE job_id = $1`

// Get returns one indexed job.
func (r *JobRepository) Get(ctx context.Context, jobID string) (models.JobSummary, error) {
	var s models.JobSummary
	err := r.db.QueryRowContext(ctx, getJobSQL, jobID).Scan(
		&s.JobID,
		&s.SourceFile,
		&s.Model,
		&s.CommentCount,
		&s.SentimentLabel,
		&s.SentimentScore,
		&s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JobSummary{}, ErrNotFound
	}
	if err != nil {
		return models.JobSummary{}, fmt.Errorf("querying job %s: %w", jobID, err)
	}
	return s, nil
}

const listJobsSQL = `
SELECT job_id, source_file, model, comment_count, sentiment_label, sentiment_score, created_at
FROM analysis_jobs
ORDER BY created_at DESC
LIMIT $1`

// List returns the most recent jobs, newest first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]models.JobSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listJobsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var jobs []models.JobSummary
	for rows.Next() {
		var s models.JobSummary
		if err := rows.Scan(
			&s.JobID,
			&s.SourceFile,
			&s.Model,
			&s.CommentCount,
			&s.SentimentLabel,
			&s.SentimentScore,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job rows: %w", err)
	}
	return jobs, nil
}

const deleteJobSQL = `DELETE FROM analysis_jobs WHERE job_id = $1`

// Delete removes a job from the index.
func (r *JobRepository) Delete(ctx context.Context, jobID string) error {
	result, err := r.db.ExecContext(ctx, deleteJobSQL, jobID)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", jobID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
