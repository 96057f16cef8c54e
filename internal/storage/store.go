// Package storage persists analysis jobs as directories on disk. Each job
// gets its own directory under <base>/jobs/<uuid> holding a metadata JSON
// document plus any exported artifacts.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snacklabs/feedback-insights/internal/logger"
)

// metadataFile is the per-job analysis document; everything else in a job
// directory is a downloadable artifact.
const metadataFile = "analysis_results.json"

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidJobID    = errors.New("invalid job id")
	ErrInvalidFilename = errors.New("invalid artifact filename")
)

// Store is the filesystem-backed job store. Safe for concurrent use: jobs
// live in separate directories and writes within a job are atomic renames.
type Store struct {
	basePath string
	logger   logger.Logger
}

func NewStore(basePath string, log logger.Logger) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, "jobs"), 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Store{basePath: basePath, logger: log}, nil
}

// CreateJob allocates a new job directory and returns its id.
func (s *Store) CreateJob() (string, error) {
	jobID := uuid.New().String()
	if err := os.MkdirAll(s.jobDir(jobID), 0o755); err != nil {
		return "", fmt.Errorf("creating job directory: %w", err)
	}
	return jobID, nil
}

// JobExists reports whether a job directory exists for the id.
func (s *Store) JobExists(jobID string) bool {
	if err := validateJobID(jobID); err != nil {
		return false
	}
	info, err := os.Stat(s.jobDir(jobID))
	return err == nil && info.IsDir()
}

// SaveMetadata writes the job's metadata document atomically.
func (s *Store) SaveMetadata(jobID string, v any) error {
	if err := validateJobID(jobID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	path := filepath.Join(s.jobDir(jobID), metadataFile)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the job's metadata document into v.
func (s *Store) LoadMetadata(jobID string, v any) error {
	if err := validateJobID(jobID); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(s.jobDir(jobID), metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrJobNotFound
		}
		return fmt.Errorf("reading metadata: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return nil
}

// SaveArtifact writes a named file into the job directory and returns its
// full path.
func (s *Store) SaveArtifact(jobID, filename string, data []byte) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	if !s.JobExists(jobID) {
		return "", ErrJobNotFound
	}
	path := filepath.Join(s.jobDir(jobID), filename)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}

// ReadArtifact returns a stored artifact's contents.
func (s *Store) ReadArtifact(jobID, filename string) ([]byte, error) {
	path, err := s.ArtifactPath(jobID, filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return data, nil
}

// ArtifactPath resolves a stored artifact to its path on disk, rejecting
// names that would escape the job directory.
func (s *Store) ArtifactPath(jobID, filename string) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	path := filepath.Join(s.jobDir(jobID), filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrJobNotFound
		}
		return "", fmt.Errorf("checking artifact: %w", err)
	}
	return path, nil
}

// ListArtifacts returns the artifact filenames stored for a job, excluding
// the metadata document.
func (s *Store) ListArtifacts(jobID string) ([]string, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.jobDir(jobID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("listing job directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == metadataFile {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// CleanupOlderThan removes job directories whose metadata has not been
// touched within maxAge. Returns the number of jobs removed.
func (s *Store) CleanupOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, "jobs"))
	if err != nil {
		return 0, fmt.Errorf("listing jobs: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(s.jobDir(entry.Name())); err != nil {
			s.logger.Warn("Failed to remove expired job",
				logger.String("job_id", entry.Name()),
				logger.Error(err),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Expired jobs removed", logger.Int("count", removed))
	}
	return removed, nil
}

// Stats reports the number of stored jobs and their total size in bytes.
type Stats struct {
	Jobs       int   `json:"jobs"`
	TotalBytes int64 `json:"total_bytes"`
}

func (s *Store) Stats() (Stats, error) {
	var stats Stats
	jobsDir := filepath.Join(s.basePath, "jobs")
	entries, err := os.ReadDir(jobsDir)
	if err != nil {
		return Stats{}, fmt.Errorf("listing jobs: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stats.Jobs++
		err := filepath.WalkDir(filepath.Join(jobsDir, entry.Name()), func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			stats.TotalBytes += info.Size()
			return nil
		})
		if err != nil {
			return Stats{}, fmt.Errorf("sizing job %s: %w", entry.Name(), err)
		}
	}
	return stats, nil
}

func (s *Store) jobDir(jobID string) string {
	return filepath.Join(s.basePath, "jobs", jobID)
}

func validateJobID(jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return ErrInvalidJobID
	}
	return nil
}

func validateFilename(filename string) error {
	if filename == "" || filename == metadataFile {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(filename, "/\\") || filename != filepath.Base(filename) {
		return ErrInvalidFilename
	}
	if strings.HasPrefix(filename, ".") {
		return ErrInvalidFilename
	}
	return nil
}

// writeFileAtomic writes via a temp file in the target directory followed by
// a rename, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
