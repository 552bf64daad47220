// Package store holds the authoritative client-side copies of File,
// Transcription, and AnalysisJob entities. It is the single source of
// truth consumed by views; it is written only by explicit load calls and
// by the active polling loop.
package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"voice-analysis-client/internal/api/rest"
	"voice-analysis-client/internal/models"
	"voice-analysis-client/internal/observability/logging"
	"voice-analysis-client/internal/observability/metrics"
	"voice-analysis-client/internal/schema"
	"voice-analysis-client/internal/service/jobs"
)

// Backend is the slice of the transport the store depends on.
type Backend interface {
	GetFile(ctx context.Context, fileID string) (*models.File, error)
	GetTranscriptionForFile(ctx context.Context, fileID string) (*models.Transcription, error)
	ListAnalysisTypes(ctx context.Context) ([]models.AnalysisType, error)
	StartAnalyses(ctx context.Context, req models.StartAnalysesRequest) ([]models.AnalysisJob, error)
	ListAnalyses(ctx context.Context, transcriptionID string) ([]models.AnalysisJob, error)
}

// Change describes one job whose status differs from the previously
// stored copy, as observed by a refresh.
type Change struct {
	Job      models.AnalysisJob
	Previous models.JobStatus // empty when the job is new to the store
}

// Store is the in-memory entity repository. Thread-safe.
type Store struct {
	mu             sync.RWMutex
	backend        Backend
	validator      *schema.Validator
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	files          map[string]models.File          // by file id
	transcriptions map[string]models.Transcription // by file id
	jobLists       map[string][]models.AnalysisJob // by transcription id
}

// New creates an empty repository backed by the given transport.
func New(backend Backend) *Store {
	return &Store{
		backend:        backend,
		validator:      schema.New(),
		metrics:        metrics.DefaultMetrics,
		logger:         logging.WithComponent("store"),
		files:          make(map[string]models.File),
		transcriptions: make(map[string]models.Transcription),
		jobLists:       make(map[string][]models.AnalysisJob),
	}
}

// LoadFile fetches and stores one file by id.
func (s *Store) LoadFile(ctx context.Context, fileID string) (models.File, error) {
	f, err := s.backend.GetFile(ctx, fileID)
	if err != nil {
		return models.File{}, err
	}

	s.mu.Lock()
	s.files[f.FileID] = *f
	s.mu.Unlock()
	return *f, nil
}

// LoadTranscriptionForFile fetches the transcription mapped to a file.
// KindNotYetCreated is an expected transient right after upload; callers
// may retry after a short delay. KindNotFound means the file id itself is
// invalid and retrying is pointless.
func (s *Store) LoadTranscriptionForFile(ctx context.Context, fileID string) (models.Transcription, error) {
	tr, err := s.backend.GetTranscriptionForFile(ctx, fileID)
	if err != nil {
		return models.Transcription{}, err
	}

	s.mu.Lock()
	s.transcriptions[fileID] = *tr
	s.mu.Unlock()
	return *tr, nil
}

// AnalysisTypes fetches the analysis catalog. The catalog is static
// server-side, so it is returned without being cached here.
func (s *Store) AnalysisTypes(ctx context.Context) ([]models.AnalysisType, error) {
	return s.backend.ListAnalysisTypes(ctx)
}

// StartJobs submits the batch create for the selected analysis types and
// stores the returned initial job set. An empty selection is rejected
// locally before any network call.
func (s *Store) StartJobs(ctx context.Context, transcriptionID string, typeIDs []string) ([]models.AnalysisJob, error) {
	req := models.StartAnalysesRequest{
		TranscriptionID: transcriptionID,
		AnalysisTypes:   typeIDs,
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, &rest.Error{
			Kind:    rest.KindEmptySelection,
			Message: "at least one analysis type must be selected",
		}
	}

	created, err := s.backend.StartAnalyses(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.jobLists[transcriptionID] = append([]models.AnalysisJob(nil), created...)
	s.mu.Unlock()

	s.metrics.RecordJobsStarted(len(created))
	return s.Jobs(transcriptionID), nil
}

// RefreshJobs re-fetches the full job list for a transcription and
// replaces the stored copy wholesale, which makes every poll tick
// idempotent and self-correcting.
func (s *Store) RefreshJobs(ctx context.Context, transcriptionID string) ([]models.AnalysisJob, []Change, error) {
	fetched, err := s.backend.ListAnalyses(ctx, transcriptionID)
	if err != nil {
		return nil, nil, err
	}
	snapshot, changes := s.ApplyJobs(transcriptionID, fetched)
	return snapshot, changes, nil
}

// ApplyJobs replaces the stored job list for a transcription with a
// freshly fetched one. The polling loop calls this separately from the
// fetch so a tick cancelled mid-flight can discard its response without
// touching the repository. The one exception to pure replacement is the
// monotonicity guard: a job already observed terminal stays terminal even
// if the server briefly reports otherwise.
func (s *Store) ApplyJobs(transcriptionID string, fetched []models.AnalysisJob) ([]models.AnalysisJob, []Change) {
	s.mu.Lock()
	prev := make(map[string]models.AnalysisJob, len(s.jobLists[transcriptionID]))
	for _, j := range s.jobLists[transcriptionID] {
		prev[j.AnalysisID] = j
	}

	var changes []Change
	next := make([]models.AnalysisJob, 0, len(fetched))
	for _, j := range fetched {
		var prevJob *models.AnalysisJob
		var prevStatus models.JobStatus
		if p, ok := prev[j.AnalysisID]; ok {
			prevJob = &p
			prevStatus = p.Status
		}

		merged, regressed := jobs.Reconcile(prevJob, j)
		if regressed {
			s.metrics.RecordRegression()
			s.logger.Warn().
				Str("transcriptionId", transcriptionID).
				Str("analysisId", j.AnalysisID).
				Str("reported", string(j.Status)).
				Str("kept", string(merged.Status)).
				Msg("Server reported terminal job as non-terminal, keeping terminal state")
		}
		if merged.Status != prevStatus {
			changes = append(changes, Change{Job: merged, Previous: prevStatus})
		}
		next = append(next, merged)
	}
	s.jobLists[transcriptionID] = next
	s.mu.Unlock()

	return s.Jobs(transcriptionID), changes
}

// Jobs returns a snapshot copy of the current job list for a transcription.
func (s *Store) Jobs(transcriptionID string) []models.AnalysisJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AnalysisJob(nil), s.jobLists[transcriptionID]...)
}

// Job looks up one stored job by analysis id across all transcriptions.
func (s *Store) Job(analysisID string) (models.AnalysisJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.jobLists {
		for _, j := range list {
			if j.AnalysisID == analysisID {
				return j, true
			}
		}
	}
	return models.AnalysisJob{}, false
}

// File returns the stored copy of a file, if loaded.
func (s *Store) File(fileID string) (models.File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	return f, ok
}

// Transcription returns the stored transcription for a file, if loaded.
func (s *Store) Transcription(fileID string) (models.Transcription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tr, ok := s.transcriptions[fileID]
	return tr, ok
}

// AnyPending reports whether the stored job list for a transcription
// still has non-terminal jobs.
func (s *Store) AnyPending(transcriptionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return jobs.AnyPending(s.jobLists[transcriptionID])
}
