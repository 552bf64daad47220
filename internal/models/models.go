// Package models defines the data structures exchanged with the backend.
package models

import "time"

// FileStatus is the upload lifecycle state of an audio file.
type FileStatus string

const (
	FileStatusUploading        FileStatus = "uploading"
	FileStatusUploaded         FileStatus = "uploaded"
	FileStatusProcessingFailed FileStatus = "processing_failed"
	FileStatusDeleted          FileStatus = "deleted"
)

// File represents one uploaded audio artifact.
type File struct {
	FileID           string     `json:"file_id"`
	OriginalFileName string     `json:"original_file_name"`
	FileSizeBytes    int64      `json:"file_size_bytes"`
	DurationSeconds  *int       `json:"duration_seconds,omitempty"`
	Status           FileStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Transcription is the text result derived from one File (1:1).
// It is created asynchronously server-side after upload completes, so it
// may not exist yet when queried right after an upload.
type Transcription struct {
	TranscriptionID   string    `json:"transcription_id"`
	FileID            string    `json:"file_id"`
	TranscriptionText string    `json:"transcription_text,omitempty"`
	LanguageDetected  string    `json:"language_detected,omitempty"`
	SpeakersCount     int       `json:"speakers_count,omitempty"`
	Status            JobStatus `json:"status"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AnalysisType is a catalog entry describing one selectable kind of report.
type AnalysisType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AnalysisJob is one running or finished instance of an AnalysisType
// applied to a Transcription. Jobs are batch-created by the start request,
// mutated only by server-reported status on poll, and never deleted
// client-side.
type AnalysisJob struct {
	AnalysisID      string    `json:"analysis_id"`
	TranscriptionID string    `json:"transcription_id"`
	AnalysisType    string    `json:"analysis_type"`
	Status          JobStatus `json:"status"`
	AnalysisSummary string    `json:"analysis_summary,omitempty"`
	KeyPoints       []string  `json:"key_points,omitempty"`
	DocxLink        string    `json:"s3_docx_link,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StartAnalysesRequest is the body of POST /analyses/start.
type StartAnalysesRequest struct {
	TranscriptionID string   `json:"transcription_id" validate:"required"`
	AnalysisTypes   []string `json:"analysis_types" validate:"required,min=1,dive,required"`
}

// AnalysisTypesEnvelope is the response wrapper of
// GET /analyses/types/available.
type AnalysisTypesEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Types []AnalysisType `json:"types"`
	} `json:"data"`
}
