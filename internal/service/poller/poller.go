// Package poller drives the status-polling loops. One cooperative loop
// runs per active transcription id; each loop re-fetches the job list at
// a fixed interval, applies it to the repository, and stops itself once
// no job is pending. Transient fetch failures are counted and logged but
// never end a loop; stopping a loop guarantees that an in-flight tick's
// result is discarded rather than applied.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-analysis-client/internal/api/rest"
	"voice-analysis-client/internal/models"
	"voice-analysis-client/internal/observability/logging"
	"voice-analysis-client/internal/observability/metrics"
	"voice-analysis-client/internal/service/jobs"
	"voice-analysis-client/internal/service/store"
)

// JobFetcher is the slice of the transport a polling loop depends on.
type JobFetcher interface {
	ListAnalyses(ctx context.Context, transcriptionID string) ([]models.AnalysisJob, error)
}

// Repository receives fetched job lists. Implemented by store.Store.
type Repository interface {
	ApplyJobs(transcriptionID string, fetched []models.AnalysisJob) ([]models.AnalysisJob, []store.Change)
}

// LifecyclePublisher receives job lifecycle events. Implemented by
// events.Publisher.
type LifecyclePublisher interface {
	PublishStatusChange(ctx context.Context, key string, event any) error
	PublishTerminal(ctx context.Context, key string, event any) error
}

// Config holds scheduler configuration.
type Config struct {
	// Interval between ticks. Defaults to 5s.
	Interval time.Duration
	// MaxEmptyPolls bounds consecutive empty job-list observations before
	// a campaign is declared stalled. Defaults to 12.
	MaxEmptyPolls int
	// OnFinished, when set, is invoked once per loop after it stops on its
	// own: nil for normal convergence, jobs.ErrStalled for a stall. It is
	// not invoked for loops cancelled via Stop.
	OnFinished func(transcriptionID string, err error)
}

// Scheduler owns all polling loops, keyed by transcription id. Start and
// Stop are its only mutators; there is never more than one live loop per
// transcription id.
type Scheduler struct {
	mu        sync.Mutex
	loops     map[string]*loop
	fetcher   JobFetcher
	repo      Repository
	publisher LifecyclePublisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cfg       Config
}

type loop struct {
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
	correlationID string
	startedAt     time.Time
}

// New creates a scheduler. The publisher may be a disabled (log-only)
// events.Publisher but must not be nil.
func New(fetcher JobFetcher, repo Repository, publisher LifecyclePublisher, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxEmptyPolls <= 0 {
		cfg.MaxEmptyPolls = 12
	}
	return &Scheduler{
		loops:     make(map[string]*loop),
		fetcher:   fetcher,
		repo:      repo,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("poller"),
		cfg:       cfg,
	}
}

// Start begins polling for a transcription id. It is a no-op returning
// false when a loop is already active for that id.
func (s *Scheduler) Start(transcriptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, active := s.loops[transcriptionID]; active {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		correlationID: uuid.NewString(),
		startedAt:     time.Now(),
	}
	s.loops[transcriptionID] = l
	s.metrics.RecordPollerStart()

	s.logger.Info().
		Str("transcriptionId", transcriptionID).
		Str("correlationId", l.correlationID).
		Dur("interval", s.cfg.Interval).
		Msg("Polling loop started")

	go s.run(l, transcriptionID)
	return true
}

// Stop cancels the loop for a transcription id. Safe to call when no
// loop is active. Any tick in flight at the time of the call will have
// its result discarded.
func (s *Scheduler) Stop(transcriptionID string) {
	s.mu.Lock()
	l, ok := s.loops[transcriptionID]
	if ok {
		delete(s.loops, transcriptionID)
	}
	s.mu.Unlock()

	if ok {
		l.cancel()
	}
}

// StopAll cancels every active loop. Called on shutdown/navigation away.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	active := s.loops
	s.loops = make(map[string]*loop)
	s.mu.Unlock()

	for _, l := range active {
		l.cancel()
	}
}

// Active reports whether a loop is currently running for the id.
func (s *Scheduler) Active(transcriptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[transcriptionID]
	return ok
}

// Done returns a channel closed when the loop for the id exits. For an id
// with no active loop the returned channel is already closed.
func (s *Scheduler) Done(transcriptionID string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loops[transcriptionID]; ok {
		return l.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// run executes ticks until the loop converges, stalls, or is cancelled.
// Ticks are strictly sequential: the next wait begins only after the
// previous tick's repository write has completed.
func (s *Scheduler) run(l *loop, transcriptionID string) {
	defer close(l.done)
	defer s.metrics.RecordPollerStop(time.Since(l.startedAt).Seconds())
	defer s.remove(transcriptionID, l)

	logger := s.logger.With().
		Str("transcriptionId", transcriptionID).
		Str("correlationId", l.correlationID).
		Logger()

	stall := jobs.NewStallDetector(s.cfg.MaxEmptyPolls)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			logger.Info().Msg("Polling loop cancelled")
			return
		case <-ticker.C:
		}

		fetched, err := s.fetcher.ListAnalyses(l.ctx, transcriptionID)
		if err != nil {
			if l.ctx.Err() != nil {
				logger.Info().Msg("Polling loop cancelled")
				return
			}
			// transient by policy: report and keep ticking
			s.metrics.RecordTick(err, rest.KindOf(err).String())
			logger.Warn().Err(err).Msg("Poll tick failed, continuing")
			continue
		}

		// A result that lands after Stop must not touch the repository.
		if l.ctx.Err() != nil {
			logger.Info().Msg("Discarding poll result received after stop")
			return
		}

		snapshot, changes := s.repo.ApplyJobs(transcriptionID, fetched)
		s.metrics.RecordTick(nil, "")
		s.publishChanges(l, transcriptionID, changes)

		if len(snapshot) == 0 {
			s.metrics.RecordEmptyPoll()
			if err := stall.Observe(0); err != nil {
				s.metrics.RecordStall()
				logger.Error().
					Int("emptyPolls", stall.EmptyStreak()).
					Msg("Polling stalled: job list stayed empty")
				s.finish(transcriptionID, err)
				return
			}
			continue
		}
		stall.Observe(len(snapshot))

		if !jobs.AnyPending(snapshot) {
			logger.Info().
				Int("jobs", len(snapshot)).
				Msg("All jobs terminal, stopping poll loop")
			s.finish(transcriptionID, nil)
			return
		}
	}
}

// publishChanges emits lifecycle events and metrics for every observed
// status transition in one tick.
func (s *Scheduler) publishChanges(l *loop, transcriptionID string, changes []store.Change) {
	now := time.Now()
	for _, c := range changes {
		s.metrics.RecordTransition(string(c.Job.Status))

		ev := models.JobStatusChanged{
			EventType:       "analysis.job.status_changed",
			CorrelationID:   l.correlationID,
			TranscriptionID: transcriptionID,
			AnalysisID:      c.Job.AnalysisID,
			AnalysisType:    c.Job.AnalysisType,
			Timestamp:       now.UnixMilli(),
			Status:          string(c.Job.Status),
			PreviousStatus:  string(c.Previous),
		}
		if err := s.publisher.PublishStatusChange(l.ctx, transcriptionID, ev); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish status change event")
		}

		if !c.Job.Status.IsTerminal() {
			continue
		}
		s.metrics.RecordJobTerminal(c.Job.Status == models.JobStatusFailed)

		term := models.JobTerminal{
			EventType:       "analysis.job.terminal",
			CorrelationID:   l.correlationID,
			TranscriptionID: transcriptionID,
			AnalysisID:      c.Job.AnalysisID,
			AnalysisType:    c.Job.AnalysisType,
			Timestamp:       now.UnixMilli(),
			Status:          string(c.Job.Status),
			ErrorMessage:    c.Job.ErrorMessage,
		}
		if !c.Job.CreatedAt.IsZero() && !c.Job.UpdatedAt.IsZero() {
			term.ElapsedMs = c.Job.UpdatedAt.Sub(c.Job.CreatedAt).Milliseconds()
		}
		if err := s.publisher.PublishTerminal(l.ctx, transcriptionID, term); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish terminal event")
		}
	}
}

// finish runs the completion hook for a loop that stopped on its own.
func (s *Scheduler) finish(transcriptionID string, err error) {
	if s.cfg.OnFinished != nil {
		s.cfg.OnFinished(transcriptionID, err)
	}
}

// remove deletes the loop from the registry unless Stop already replaced
// the entry (a restarted loop for the same id must not be evicted by the
// old loop's cleanup).
func (s *Scheduler) remove(transcriptionID string, l *loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.loops[transcriptionID]; ok && current == l {
		delete(s.loops, transcriptionID)
	}
}
