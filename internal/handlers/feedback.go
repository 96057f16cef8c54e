package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snacklabs/feedback-insights/internal/importer"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/service"
	"github.com/snacklabs/feedback-insights/internal/storage"
)

const bytesPerMB = 1 << 20

type FeedbackHandler struct {
	svc            *service.Feedback
	maxUploadBytes int64
	logger         logger.Logger
}

func NewFeedbackHandler(svc *service.Feedback, maxUploadMB int, log logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		svc:            svc,
		maxUploadBytes: int64(maxUploadMB) * bytesPerMB,
		logger:         log,
	}
}

// Analyze accepts a multipart upload under the "file" field, runs the full
// pipeline, and returns the job metadata with the aggregated report.
func (h *FeedbackHandler) Analyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.logger.Debug("Missing upload file", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'file' form field"})
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload is missing a filename"})
		return
	}
	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "File too large",
			"limit": h.maxUploadBytes,
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.logger.Error("Failed to read upload", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "File too large",
			"limit": h.maxUploadBytes,
		})
		return
	}

	meta, err := h.svc.AnalyzeFile(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.respondAnalyzeError(c, header.Filename, err)
		return
	}

	c.JSON(http.StatusOK, meta)
}

func (h *FeedbackHandler) respondAnalyzeError(c *gin.Context, filename string, err error) {
	var formatErr *importer.UnsupportedFormatError
	var columnErr *importer.MissingColumnError

	switch {
	case errors.As(err, &formatErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &columnErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoValidComments):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Analysis failed",
			logger.String("source_file", filename),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
	}
}

// Info returns a stored job's metadata and its exported artifacts.
func (h *FeedbackHandler) Info(c *gin.Context) {
	jobID := c.Param("job_id")

	meta, artifacts, err := h.svc.AnalysisInfo(jobID)
	if err != nil {
		h.respondJobError(c, jobID, err)
		return
	}

	hasExport := false
	for _, name := range artifacts {
		if strings.HasSuffix(name, ".xlsx") {
			hasExport = true
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"metadata":   meta,
		"artifacts":  artifacts,
		"has_export": hasExport,
	})
}

// Export renders a stored report as an Excel workbook artifact.
func (h *FeedbackHandler) Export(c *gin.Context) {
	jobID := c.Param("job_id")

	filename, err := h.svc.ExportToExcel(jobID)
	if err != nil {
		h.respondJobError(c, jobID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":       jobID,
		"filename":     filename,
		"download_url": "/api/v1/feedback/download/" + jobID + "/" + filename,
	})
}

// Download streams a stored artifact as an attachment.
func (h *FeedbackHandler) Download(c *gin.Context) {
	jobID := c.Param("job_id")
	filename := c.Param("filename")

	path, err := h.svc.ArtifactPath(jobID, filename)
	if err != nil {
		h.respondJobError(c, jobID, err)
		return
	}

	c.FileAttachment(path, filename)
}

// ListJobs returns recent jobs from the database index. The route is only
// registered when the index is enabled.
func (h *FeedbackHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	jobs, err := h.svc.ListJobs(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list jobs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Stats reports job store usage.
func (h *FeedbackHandler) Stats(c *gin.Context) {
	stats, err := h.svc.StorageStats()
	if err != nil {
		h.logger.Error("Failed to read storage stats", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read storage stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *FeedbackHandler) respondJobError(c *gin.Context, jobID string, err error) {
	switch {
	case errors.Is(err, storage.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, storage.ErrInvalidJobID), errors.Is(err, storage.ErrInvalidFilename):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Job request failed",
			logger.String("job_id", jobID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
