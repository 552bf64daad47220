package models

// JobStatusChanged is published whenever a poll observes a job in a new
// non-terminal state.
type JobStatusChanged struct {
	EventType       string `json:"eventType"`
	CorrelationID   string `json:"correlationId"`
	TranscriptionID string `json:"transcriptionId"`
	AnalysisID      string `json:"analysisId"`
	AnalysisType    string `json:"analysisType"`
	Timestamp       int64  `json:"timestamp"`
	Status          string `json:"status"`
	PreviousStatus  string `json:"previousStatus,omitempty"`
}

// JobTerminal is published once per job when it reaches completed or failed.
type JobTerminal struct {
	EventType       string `json:"eventType"`
	CorrelationID   string `json:"correlationId"`
	TranscriptionID string `json:"transcriptionId"`
	AnalysisID      string `json:"analysisId"`
	AnalysisType    string `json:"analysisType"`
	Timestamp       int64  `json:"timestamp"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	ElapsedMs       int64  `json:"elapsedMs,omitempty"`
}
