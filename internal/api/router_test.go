package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacklabs/feedback-insights/internal/analysis"
	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/export"
	"github.com/snacklabs/feedback-insights/internal/handlers"
	"github.com/snacklabs/feedback-insights/internal/importer"
	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
	"github.com/snacklabs/feedback-insights/internal/service"
	"github.com/snacklabs/feedback-insights/internal/storage"
)

type fixedProvider struct{}

func (fixedProvider) Judge(_ context.Context, _ string) (analysis.JudgmentResponse, error) {
	return analysis.JudgmentResponse{
		Sentiment:      models.SentimentPositive,
		SentimentScore: 0.9,
		Themes:         []string{"sabor"},
	}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	store, err := storage.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	analyzer := analysis.NewAnalyzer(fixedProvider{}, log)
	svc := service.NewFeedback(
		importer.NewParser(log),
		analysis.NewCoordinator(analyzer, 2, log),
		analysis.NewAggregator(log),
		store,
		export.NewExporter(log),
		nil,
		"gpt-4o",
		log,
	)

	handler := handlers.NewFeedbackHandler(svc, 10, log)
	opts := Options{
		Server: config.ServerConfig{
			MaxUploadMB: 10,
			CORSOrigins: []string{"http://localhost:7860"},
		},
	}
	return NewRouter(handler, opts, log)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

const uploadCSV = `comment,usuario,canal
"Las chips de kale están buenísimas",ana,web
"El precio subió demasiado",luis,app
`

func doUpload(t *testing.T, router *gin.Engine, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback/analyze", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAnalyzeUpload(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "feedback.csv", uploadCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var meta models.JobMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	_, err := uuid.Parse(meta.JobID)
	assert.NoError(t, err)
	assert.Equal(t, 2, meta.CommentCount)
	assert.Equal(t, models.SentimentPositive, meta.Report.OverallSentiment.Label)
}

func TestAnalyzeMissingFileField(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback/analyze", bytes.NewBufferString("nope"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeUnsupportedFormat(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "feedback.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAnalyzeNoValidComments(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "short.csv", "comment\nok\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAnalyzeMissingCommentColumn(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "bad.csv", "nombre,canal\nana,web\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInfoUnknownJob(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/analysis/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfoInvalidJobID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/analysis/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportAndDownloadFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "feedback.csv", uploadCSV)
	require.Equal(t, http.StatusOK, w.Code)
	var meta models.JobMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))

	// Export the stored report.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback/export/"+meta.JobID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var exported struct {
		Filename    string `json:"filename"`
		DownloadURL string `json:"download_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	require.NotEmpty(t, exported.Filename)

	// The artifact now shows up in the job info.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/feedback/analysis/"+meta.JobID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Artifacts []string `json:"artifacts"`
		HasExport bool     `json:"has_export"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Contains(t, info.Artifacts, exported.Filename)
	assert.True(t, info.HasExport)

	// And it downloads as an attachment.
	req = httptest.NewRequest(http.MethodGet, exported.DownloadURL, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), exported.Filename)
	assert.NotZero(t, w.Body.Len())
}

func TestDownloadPathTraversalBlocked(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "feedback.csv", uploadCSV)
	require.Equal(t, http.StatusOK, w.Code)
	var meta models.JobMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/download/"+meta.JobID+"/..%2Fmetadata.json", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.NotEqual(t, http.StatusOK, w2.Code)
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "feedback.csv", uploadCSV)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/stats", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Jobs       int   `json:"jobs"`
		TotalBytes int64 `json:"total_bytes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Jobs)
	assert.Positive(t, stats.TotalBytes)
}

func TestJobsRouteHiddenWithoutIndex(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthDegradedWhenCheckFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	store, err := storage.NewStore(t.TempDir(), log)
	require.NoError(t, err)
	analyzer := analysis.NewAnalyzer(fixedProvider{}, log)
	svc := service.NewFeedback(importer.NewParser(log), analysis.NewCoordinator(analyzer, 1, log),
		analysis.NewAggregator(log), store, export.NewExporter(log), nil, "gpt-4o", log)
	handler := handlers.NewFeedbackHandler(svc, 10, log)

	router := NewRouter(handler, Options{
		Server:       config.ServerConfig{MaxUploadMB: 10, CORSOrigins: []string{"http://localhost:7860"}},
		HealthChecks: []func() error{func() error { return errors.New("db down") }},
	}, log)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
