package models

import (
	"encoding/json"
	"fmt"
)

// JobStatus is the closed set of lifecycle states the backend may report
// for a transcription or analysis job. Unrecognized values are rejected at
// the decode boundary instead of being passed through, so downstream state
// handling stays exhaustive.
type JobStatus string

const (
	// JobStatusQueued - job created, waiting to be picked up.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing - job is being worked on server-side.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted - terminal, result payload available.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed - terminal, error message available.
	JobStatusFailed JobStatus = "failed"
)

// ErrUnknownStatus wraps a status string the client does not recognize.
type ErrUnknownStatus struct {
	Value string
}

func (e *ErrUnknownStatus) Error() string {
	return fmt.Sprintf("unknown job status %q", e.Value)
}

// ParseJobStatus maps a wire status string onto the closed JobStatus set.
// The backend reports "pending" for freshly created jobs; it is accepted
// as an alias of queued.
func ParseJobStatus(s string) (JobStatus, error) {
	switch s {
	case "queued", "pending":
		return JobStatusQueued, nil
	case "processing":
		return JobStatusProcessing, nil
	case "completed":
		return JobStatusCompleted, nil
	case "failed":
		return JobStatusFailed, nil
	default:
		return "", &ErrUnknownStatus{Value: s}
	}
}

// IsTerminal returns true for completed or failed. A job in a terminal
// state never transitions again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsPending returns true for queued or processing.
func (s JobStatus) IsPending() bool {
	return s == JobStatusQueued || s == JobStatusProcessing
}

// UnmarshalJSON enforces the closed status set on every decode.
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseJobStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
