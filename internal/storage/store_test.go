package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return store
}

func TestCreateJobAndMetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)

	jobID, err := store.CreateJob()
	require.NoError(t, err)
	assert.True(t, store.JobExists(jobID))

	meta := models.JobMetadata{
		JobID:        jobID,
		SourceFile:   "feedback.csv",
		Model:        "gpt-4o",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		CommentCount: 3,
	}
	require.NoError(t, store.SaveMetadata(jobID, meta))

	var loaded models.JobMetadata
	require.NoError(t, store.LoadMetadata(jobID, &loaded))
	assert.Equal(t, meta.JobID, loaded.JobID)
	assert.Equal(t, meta.SourceFile, loaded.SourceFile)
	assert.Equal(t, meta.CommentCount, loaded.CommentCount)
}

func TestLoadMetadataUnknownJob(t *testing.T) {
	store := newTestStore(t)

	var meta models.JobMetadata
	err := store.LoadMetadata("0d1f9db1-76a3-4d2c-9f3a-111111111111", &meta)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestInvalidJobIDRejected(t *testing.T) {
	store := newTestStore(t)

	var meta models.JobMetadata
	err := store.LoadMetadata("../../etc/passwd", &meta)
	assert.ErrorIs(t, err, ErrInvalidJobID)
	assert.False(t, store.JobExists("not-a-uuid"))
}

func TestSaveAndResolveArtifact(t *testing.T) {
	store := newTestStore(t)
	jobID, err := store.CreateJob()
	require.NoError(t, err)

	path, err := store.SaveArtifact(jobID, "report.xlsx", []byte("workbook"))
	require.NoError(t, err)

	resolved, err := store.ArtifactPath(jobID, "report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	data, err := os.ReadFile(resolved)
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook"), data)

	viaStore, err := store.ReadArtifact(jobID, "report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, data, viaStore)
}

func TestArtifactFilenameValidation(t *testing.T) {
	store := newTestStore(t)
	jobID, err := store.CreateJob()
	require.NoError(t, err)

	for _, name := range []string{"", "analysis_results.json", "../escape.xlsx", "a/b.xlsx", ".hidden"} {
		_, err := store.SaveArtifact(jobID, name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidFilename, "filename %q", name)
	}
}

func TestListArtifactsSkipsMetadata(t *testing.T) {
	store := newTestStore(t)
	jobID, err := store.CreateJob()
	require.NoError(t, err)

	require.NoError(t, store.SaveMetadata(jobID, models.JobMetadata{JobID: jobID}))
	_, err = store.SaveArtifact(jobID, "report.xlsx", []byte("x"))
	require.NoError(t, err)

	names, err := store.ListArtifacts(jobID)
	require.NoError(t, err)
	assert.Equal(t, []string{"report.xlsx"}, names)
}

func TestCleanupOlderThan(t *testing.T) {
	store := newTestStore(t)

	oldJob, err := store.CreateJob()
	require.NoError(t, err)
	freshJob, err := store.CreateJob()
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.jobDir(oldJob), past, past))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, store.JobExists(oldJob))
	assert.True(t, store.JobExists(freshJob))
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	jobID, err := store.CreateJob()
	require.NoError(t, err)
	_, err = store.SaveArtifact(jobID, "report.xlsx", []byte("12345"))
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Jobs)
	assert.Equal(t, int64(5), stats.TotalBytes)
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, writeFileAtomic(path, []byte("{}"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.json", entries[0].Name())
}
