package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

const testJobID = "7b0d4b6e-9a70-4a2d-8a0e-5f3a2e1c9d00"

func newMockRepo(t *testing.T) (*JobRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewJobRepository(db, logger.NewNop()), mock
}

func TestJobRepositoryInsert(t *testing.T) {
	repo, mock := newMockRepo(t)

	meta := models.JobMetadata{
		JobID:        testJobID,
		SourceFile:   "feedback.csv",
		Model:        "gpt-4o",
		CreatedAt:    time.Now(),
		CommentCount: 12,
		Report: models.AggregatedReport{
			OverallSentiment: models.SentimentScore{Label: models.SentimentPositive, Score: 0.82},
		},
	}

	mock.ExpectExec("INSERT INTO analysis_jobs").
		WithArgs(meta.JobID, meta.SourceFile, meta.Model, meta.CommentCount,
			models.SentimentPositive, 0.82, meta.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), meta)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryGet(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Now()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"job_id", "source_file", "model", "comment_count",
			"sentiment_label", "sentiment_score", "created_at",
		}).AddRow(testJobID, "feedback.csv", "gpt-4o", 12, models.SentimentPositive, 0.82, created)
		mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").
			WithArgs(testJobID).
			WillReturnRows(rows)

		summary, err := repo.Get(context.Background(), testJobID)
		require.NoError(t, err)
		assert.Equal(t, testJobID, summary.JobID)
		assert.Equal(t, 12, summary.CommentCount)
		assert.Equal(t, models.SentimentPositive, summary.SentimentLabel)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").
			WithArgs(testJobID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), testJobID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryList(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"job_id", "source_file", "model", "comment_count",
		"sentiment_label", "sentiment_score", "created_at",
	}).
		AddRow(testJobID, "a.csv", "gpt-4o", 5, models.SentimentNeutral, 0.5, time.Now()).
		AddRow("11111111-2222-3333-4444-555555555555", "b.xlsx", "gpt-4o", 9, models.SentimentNegative, 0.7, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").
		WithArgs(50).
		WillReturnRows(rows)

	jobs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a.csv", jobs[0].SourceFile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	t.Run("deletes existing job", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM analysis_jobs").
			WithArgs(testJobID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), testJobID))
	})

	t.Run("not found when nothing deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM analysis_jobs").
			WithArgs(testJobID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), testJobID), ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryEnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analysis_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
