package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"voice-analysis-client/internal/api/rest"
	"voice-analysis-client/internal/app"
	"voice-analysis-client/internal/config"
	"voice-analysis-client/internal/events"
	"voice-analysis-client/internal/models"
	"voice-analysis-client/internal/observability"
	"voice-analysis-client/internal/service/download"
	"voice-analysis-client/internal/service/jobs"
	"voice-analysis-client/internal/service/poller"
	"voice-analysis-client/internal/service/store"
)

// transcriptionRetryDelay is the pause between transcription readiness
// checks right after upload, before any analysis job exists.
const transcriptionRetryDelay = 3 * time.Second

func main() {
	fileID := flag.String("file", "", "Uploaded file id to analyze")
	typeList := flag.String("types", "", "Comma-separated analysis type ids (e.g. kp,protocol)")
	sessionID := flag.String("session", "", "Session cookie value (overrides SESSION_ID)")
	flag.Parse()

	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := config.Load()
	if *sessionID != "" {
		cfg.API.SessionID = *sessionID
	}

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}
	defer application.Shutdown()

	if *fileID == "" {
		log.Fatal().Msg("-file is required")
	}

	obs := observability.NewServer(cfg.Observability.MetricsAddr)
	obs.Start()

	publisher := events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicStatus:   cfg.Kafka.TopicStatus,
		TopicTerminal: cfg.Kafka.TopicTerminal,
		Principal:     cfg.Kafka.Principal,
	})
	defer publisher.Close()

	client := rest.New(rest.Config{
		BaseURL:   cfg.API.BaseURL,
		SessionID: cfg.API.SessionID,
		Timeout:   cfg.API.Timeout,
	})
	repo := store.New(client)
	scheduler := poller.New(client, repo, publisher, poller.Config{
		Interval:      cfg.Polling.Interval,
		MaxEmptyPolls: cfg.Polling.MaxEmptyPolls,
		OnFinished: func(transcriptionID string, err error) {
			if err != nil {
				log.Error().Err(err).Str("transcriptionId", transcriptionID).Msg("Polling gave up")
			}
		},
	})
	downloads := download.New(repo, client, cfg.Download.Dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutdown requested, stopping polling loops")
		scheduler.StopAll()
		cancel()
	}()

	if err := run(ctx, repo, scheduler, downloads, *fileID, splitTypes(*typeList)); err != nil {
		log.Error().Err(err).Msg("Orchestration failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown failed")
	}
}

// run drives one file through transcription readiness, job start, status
// convergence, and artifact download.
func run(
	ctx context.Context,
	repo *store.Store,
	scheduler *poller.Scheduler,
	downloads *download.Service,
	fileID string,
	typeIDs []string,
) error {
	file, err := repo.LoadFile(ctx, fileID)
	if err != nil {
		return err
	}
	log.Info().
		Str("fileId", file.FileID).
		Str("name", file.OriginalFileName).
		Str("status", string(file.Status)).
		Msg("File loaded")

	transcription, err := waitForTranscription(ctx, repo, fileID)
	if err != nil {
		return err
	}
	log.Info().
		Str("transcriptionId", transcription.TranscriptionID).
		Str("language", transcription.LanguageDetected).
		Int("speakers", transcription.SpeakersCount).
		Msg("Transcription ready")

	catalog, err := repo.AnalysisTypes(ctx)
	if err != nil {
		return err
	}
	logUnknownTypes(typeIDs, catalog)

	created, err := repo.StartJobs(ctx, transcription.TranscriptionID, typeIDs)
	if err != nil {
		return err
	}
	log.Info().Int("jobs", len(created)).Msg("Analysis jobs started")

	scheduler.Start(transcription.TranscriptionID)
	select {
	case <-scheduler.Done(transcription.TranscriptionID):
	case <-ctx.Done():
		return ctx.Err()
	}

	return reportAndDownload(ctx, repo, downloads, transcription.TranscriptionID)
}

// waitForTranscription polls the transcription mapping until it reaches a
// terminal state. NotYetCreated is an expected transient right after
// upload and is retried after a short delay.
func waitForTranscription(ctx context.Context, repo *store.Store, fileID string) (models.Transcription, error) {
	for {
		tr, err := repo.LoadTranscriptionForFile(ctx, fileID)
		switch {
		case err == nil && tr.Status == models.JobStatusCompleted:
			return tr, nil
		case err == nil && tr.Status == models.JobStatusFailed:
			return models.Transcription{}, &rest.Error{
				Kind:    rest.KindUnexpected,
				Message: "transcription failed: " + tr.ErrorMessage,
			}
		case err == nil:
			log.Info().Str("status", string(tr.Status)).Msg("Transcription in progress")
		case rest.IsKind(err, rest.KindNotYetCreated):
			log.Info().Msg("Transcription not yet created, retrying")
		default:
			return models.Transcription{}, err
		}

		select {
		case <-ctx.Done():
			return models.Transcription{}, ctx.Err()
		case <-time.After(transcriptionRetryDelay):
		}
	}
}

// reportAndDownload prints the per-job outcome and fetches artifacts for
// completed jobs.
func reportAndDownload(ctx context.Context, repo *store.Store, downloads *download.Service, transcriptionID string) error {
	list := repo.Jobs(transcriptionID)
	if jobs.AnyPending(list) {
		log.Warn().Msg("Polling stopped with jobs still pending")
	}

	var firstErr error
	for _, job := range list {
		logger := log.With().
			Str("analysisId", job.AnalysisID).
			Str("analysisType", job.AnalysisType).
			Logger()

		switch job.Status {
		case models.JobStatusCompleted:
			path, err := downloads.Download(ctx, job.AnalysisID)
			if err != nil {
				logger.Error().Err(err).Msg("Artifact download failed")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			logger.Info().Str("path", path).Msg("Analysis completed")
		case models.JobStatusFailed:
			logger.Error().Str("error", job.ErrorMessage).Msg("Analysis failed")
		default:
			logger.Warn().Str("status", string(job.Status)).Msg("Analysis still pending")
		}
	}
	return firstErr
}

func logUnknownTypes(typeIDs []string, catalog []models.AnalysisType) {
	known := make(map[string]bool, len(catalog))
	for _, t := range catalog {
		known[t.ID] = true
	}
	for _, id := range typeIDs {
		if !known[id] {
			log.Warn().Str("analysisType", id).Msg("Type not present in the server catalog")
		}
	}
}

func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
