// Package service orchestrates the feedback pipeline: parse an uploaded
// file, judge every comment, aggregate, and persist the job.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/snacklabs/feedback-insights/internal/analysis"
	"github.com/snacklabs/feedback-insights/internal/export"
	"github.com/snacklabs/feedback-insights/internal/importer"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
	"github.com/snacklabs/feedback-insights/internal/repository"
	"github.com/snacklabs/feedback-insights/internal/storage"
)

// ErrNoValidComments means the file parsed fine but every row was dropped,
// so there is nothing to analyze.
var ErrNoValidComments = errors.New("no valid comments found in file")

// ErrJobNotFound mirrors the storage error at the service boundary.
var ErrJobNotFound = storage.ErrJobNotFound

// FallbackJobID marks a completed analysis whose results could not be
// persisted. The report is still returned to the caller.
const FallbackJobID = "error"

// Artifact filenames within a job directory.
const (
	exportDataFile = "export_data.json"
	workbookFile   = "feedback_analysis.xlsx"
)

// exportPayload is the persisted per-comment detail that feeds the Excel
// export's Comments sheet.
type exportPayload struct {
	Records   []models.CommentRecord   `json:"records"`
	Judgments []models.CommentJudgment `json:"judgments"`
}

// Feedback wires the pipeline stages together. The job index repository is
// nil when the database feature flag is off.
type Feedback struct {
	parser      *importer.Parser
	coordinator *analysis.Coordinator
	aggregator  *analysis.Aggregator
	store       *storage.Store
	exporter    *export.Exporter
	jobs        *repository.JobRepository
	model       string
	logger      logger.Logger
}

func NewFeedback(
	parser *importer.Parser,
	coordinator *analysis.Coordinator,
	aggregator *analysis.Aggregator,
	store *storage.Store,
	exporter *export.Exporter,
	jobs *repository.JobRepository,
	model string,
	log logger.Logger,
) *Feedback {
	return &Feedback{
		parser:      parser,
		coordinator: coordinator,
		aggregator:  aggregator,
		store:       store,
		exporter:    exporter,
		jobs:        jobs,
		model:       model,
		logger:      log,
	}
}

// AnalyzeFile runs the full pipeline on an uploaded file. Parse failures and
// empty batches are returned as errors; a persistence failure after a
// successful analysis degrades to FallbackJobID instead of discarding the
// report.
func (f *Feedback) AnalyzeFile(ctx context.Context, filename string, data []byte) (models.JobMetadata, error) {
	records, err := f.parser.Parse(data, filename)
	if err != nil {
		return models.JobMetadata{}, err
	}
	if len(records) == 0 {
		return models.JobMetadata{}, ErrNoValidComments
	}

	judgments := f.coordinator.AnalyzeBatch(ctx, records)
	report := f.aggregator.Aggregate(judgments, records)

	meta := models.JobMetadata{
		SourceFile:   filename,
		Model:        f.model,
		CreatedAt:    time.Now().UTC(),
		CommentCount: len(records),
		Report:       report,
	}

	jobID, err := f.store.CreateJob()
	if err != nil {
		f.logger.Error("Failed to create job directory, returning unpersisted report",
			logger.Error(err),
			logger.String("source_file", filename),
		)
		meta.JobID = FallbackJobID
		return meta, nil
	}
	meta.JobID = jobID

	if err := f.store.SaveMetadata(jobID, meta); err != nil {
		f.logger.Error("Failed to persist job metadata, returning unpersisted report",
			logger.Error(err),
			logger.String("job_id", jobID),
		)
		meta.JobID = FallbackJobID
		return meta, nil
	}

	f.saveExportData(jobID, records, judgments)
	f.indexJob(ctx, meta)

	f.logger.Info("Feedback file analyzed",
		logger.String("job_id", meta.JobID),
		logger.String("source_file", filename),
		logger.Int("comments", len(records)),
		logger.String("overall_sentiment", report.OverallSentiment.Label),
	)
	return meta, nil
}

// saveExportData persists the per-comment detail alongside the analysis
// document. Failure only costs the Comments sheet of a later export, so it
// is logged and not surfaced.
func (f *Feedback) saveExportData(jobID string, records []models.CommentRecord, judgments []models.CommentJudgment) {
	data, err := json.Marshal(exportPayload{Records: records, Judgments: judgments})
	if err == nil {
		_, err = f.store.SaveArtifact(jobID, exportDataFile, data)
	}
	if err != nil {
		f.logger.Warn("Failed to persist export data",
			logger.Error(err),
			logger.String("job_id", jobID),
		)
	}
}

// indexJob records the job in the optional database index. Index failures
// are logged, not surfaced: the filesystem copy is the source of truth.
func (f *Feedback) indexJob(ctx context.Context, meta models.JobMetadata) {
	if f.jobs == nil {
		return
	}
	if err := f.jobs.Insert(ctx, meta); err != nil {
		f.logger.Warn("Failed to index job in database",
			logger.Error(err),
			logger.String("job_id", meta.JobID),
		)
	}
}

// AnalysisInfo returns a stored job's metadata and its artifact filenames.
func (f *Feedback) AnalysisInfo(jobID string) (models.JobMetadata, []string, error) {
	var meta models.JobMetadata
	if err := f.store.LoadMetadata(jobID, &meta); err != nil {
		return models.JobMetadata{}, nil, err
	}
	artifacts, err := f.store.ListArtifacts(jobID)
	if err != nil {
		return models.JobMetadata{}, nil, err
	}
	return meta, artifacts, nil
}

// ExportToExcel renders a stored job's report as a workbook artifact and
// returns the artifact filename.
func (f *Feedback) ExportToExcel(jobID string) (string, error) {
	var meta models.JobMetadata
	if err := f.store.LoadMetadata(jobID, &meta); err != nil {
		return "", err
	}

	payload := f.loadExportData(jobID)

	data, err := f.exporter.Export(meta, payload.Records, payload.Judgments)
	if err != nil {
		return "", fmt.Errorf("exporting report: %w", err)
	}

	if _, err := f.store.SaveArtifact(jobID, workbookFile, data); err != nil {
		return "", fmt.Errorf("saving export: %w", err)
	}
	return workbookFile, nil
}

// loadExportData returns the persisted per-comment detail, or an empty
// payload when it is missing or unreadable.
func (f *Feedback) loadExportData(jobID string) exportPayload {
	var payload exportPayload
	data, err := f.store.ReadArtifact(jobID, exportDataFile)
	if err == nil {
		err = json.Unmarshal(data, &payload)
	}
	if err != nil {
		f.logger.Warn("Export data unavailable, exporting report only",
			logger.Error(err),
			logger.String("job_id", jobID),
		)
		return exportPayload{}
	}
	return payload
}

// ArtifactPath resolves a download request to a file on disk.
func (f *Feedback) ArtifactPath(jobID, filename string) (string, error) {
	return f.store.ArtifactPath(jobID, filename)
}

// ListJobs returns recent jobs from the database index. It errors when the
// index feature is disabled.
func (f *Feedback) ListJobs(ctx context.Context, limit int) ([]models.JobSummary, error) {
	if f.jobs == nil {
		return nil, errors.New("job index is disabled")
	}
	return f.jobs.List(ctx, limit)
}

// StorageStats reports how much the job store currently holds.
func (f *Feedback) StorageStats() (storage.Stats, error) {
	return f.store.Stats()
}

