// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns a new logger with common fields for the client.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithFile returns a logger with uploaded-file context.
func WithFile(fileId string) zerolog.Logger {
	return log.With().
		Str("fileId", fileId).
		Logger()
}

// WithTranscription returns a logger with transcription context.
func WithTranscription(transcriptionId string) zerolog.Logger {
	return log.With().
		Str("transcriptionId", transcriptionId).
		Logger()
}

// WithJob returns a logger with analysis job context.
func WithJob(transcriptionId, analysisId, analysisType string) zerolog.Logger {
	return log.With().
		Str("transcriptionId", transcriptionId).
		Str("analysisId", analysisId).
		Str("analysisType", analysisType).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
