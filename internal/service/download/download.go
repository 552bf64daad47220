// Package download retrieves finished analysis artifacts on demand,
// independently of the polling loop.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"voice-analysis-client/internal/api/rest"
	"voice-analysis-client/internal/models"
	"voice-analysis-client/internal/observability/logging"
	"voice-analysis-client/internal/observability/metrics"
)

// JobLookup resolves a stored job by analysis id. Implemented by
// store.Store.
type JobLookup interface {
	Job(analysisID string) (models.AnalysisJob, bool)
}

// ArtifactFetcher opens the artifact stream. Implemented by rest.Client.
type ArtifactFetcher interface {
	DownloadDocx(ctx context.Context, analysisID string) (io.ReadCloser, error)
}

// Service materializes completed artifacts as local files.
type Service struct {
	lookup  JobLookup
	fetcher ArtifactFetcher
	dir     string
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a download service writing into dir.
func New(lookup JobLookup, fetcher ArtifactFetcher, dir string) *Service {
	return &Service{
		lookup:  lookup,
		fetcher: fetcher,
		dir:     dir,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("download"),
	}
}

// FileName returns the deterministic local name for a job's artifact.
func FileName(job models.AnalysisJob) string {
	return fmt.Sprintf("analysis_%s_%s.docx", job.AnalysisType, job.AnalysisID)
}

// Download fetches the DOCX artifact of a completed job and writes it to
// its deterministic local path, which is returned. Only completed jobs
// are downloadable; any other state fails with KindNotReady before a
// network call is made. A failure of the binary fetch itself maps to
// KindDownloadFailed. The temporary file is removed on every failure
// path.
func (s *Service) Download(ctx context.Context, analysisID string) (string, error) {
	start := time.Now()

	job, ok := s.lookup.Job(analysisID)
	if !ok {
		err := &rest.Error{
			Kind:    rest.KindNotFound,
			Message: "unknown analysis job " + analysisID,
		}
		s.metrics.RecordDownload(rest.KindNotFound.String(), 0, time.Since(start).Seconds())
		return "", err
	}
	if job.Status != models.JobStatusCompleted {
		err := &rest.Error{
			Kind:    rest.KindNotReady,
			Message: fmt.Sprintf("analysis %s is %s, not completed", analysisID, job.Status),
		}
		s.metrics.RecordDownload(rest.KindNotReady.String(), 0, time.Since(start).Seconds())
		return "", err
	}

	body, err := s.fetcher.DownloadDocx(ctx, analysisID)
	if err != nil {
		failed := &rest.Error{
			Kind:    rest.KindDownloadFailed,
			Message: "artifact fetch failed: " + err.Error(),
		}
		s.metrics.RecordDownload(rest.KindDownloadFailed.String(), 0, time.Since(start).Seconds())
		return "", failed
	}
	defer body.Close()

	written, path, err := s.save(job, body)
	if err != nil {
		failed := &rest.Error{
			Kind:    rest.KindDownloadFailed,
			Message: "artifact save failed: " + err.Error(),
		}
		s.metrics.RecordDownload(rest.KindDownloadFailed.String(), 0, time.Since(start).Seconds())
		return "", failed
	}

	s.metrics.RecordDownload("", written, time.Since(start).Seconds())
	s.logger.Info().
		Str("analysisId", analysisID).
		Str("path", path).
		Int64("bytes", written).
		Msg("Artifact downloaded")
	return path, nil
}

// save streams the artifact through a temp file and renames it into
// place, so a partial download never shows up under the final name.
func (s *Service) save(job models.AnalysisJob, body io.Reader) (int64, string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return 0, "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	written, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", err
	}

	path := filepath.Join(s.dir, FileName(job))
	if err := os.Rename(tmpName, path); err != nil {
		return 0, "", err
	}
	return written, path, nil
}
