package models

import "time"

// JobMetadata is the persisted record of one analysis job.
type JobMetadata struct {
	JobID        string           `json:"job_id"`
	SourceFile   string           `json:"source_file"`
	Model        string           `json:"model"`
	CreatedAt    time.Time        `json:"created_at"`
	CommentCount int              `json:"comment_count"`
	Report       AggregatedReport `json:"report"`
}

// JobSummary is the database index row for a job, without the full report.
type JobSummary struct {
	JobID          string    `json:"job_id"`
	SourceFile     string    `json:"source_file"`
	Model          string    `json:"model"`
	CommentCount   int       `json:"comment_count"`
	SentimentLabel string    `json:"sentiment_label"`
	SentimentScore float64   `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}
