package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    JobStatus
		wantErr bool
	}{
		{"queued", "queued", JobStatusQueued, false},
		{"pending alias", "pending", JobStatusQueued, false},
		{"processing", "processing", JobStatusProcessing, false},
		{"completed", "completed", JobStatusCompleted, false},
		{"failed", "failed", JobStatusFailed, false},
		{"unknown", "exploded", "", true},
		{"empty", "", "", true},
		{"case sensitive", "Completed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJobStatus(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				var unknown *ErrUnknownStatus
				if !errors.As(err, &unknown) {
					t.Errorf("expected *ErrUnknownStatus, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseJobStatus(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestJobStatus_Classification(t *testing.T) {
	if !JobStatusQueued.IsPending() || !JobStatusProcessing.IsPending() {
		t.Error("queued and processing must be pending")
	}
	if JobStatusCompleted.IsPending() || JobStatusFailed.IsPending() {
		t.Error("terminal states must not be pending")
	}
	if !JobStatusCompleted.IsTerminal() || !JobStatusFailed.IsTerminal() {
		t.Error("completed and failed must be terminal")
	}
	if JobStatusQueued.IsTerminal() || JobStatusProcessing.IsTerminal() {
		t.Error("pending states must not be terminal")
	}
}

func TestAnalysisJob_DecodeRejectsUnknownStatus(t *testing.T) {
	payload := []byte(`{"analysis_id":"a1","transcription_id":"t1","analysis_type":"kp","status":"half_done"}`)

	var job AnalysisJob
	err := json.Unmarshal(payload, &job)
	if err == nil {
		t.Fatal("expected decode to fail on unknown status")
	}
	var unknown *ErrUnknownStatus
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *ErrUnknownStatus, got %v", err)
	}
	if unknown.Value != "half_done" {
		t.Errorf("expected offending value 'half_done', got %q", unknown.Value)
	}
}

func TestAnalysisJob_DecodeAcceptsPendingAlias(t *testing.T) {
	payload := []byte(`{"analysis_id":"a1","transcription_id":"t1","analysis_type":"kp","status":"pending"}`)

	var job AnalysisJob
	if err := json.Unmarshal(payload, &job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != JobStatusQueued {
		t.Errorf("expected pending to decode as queued, got %v", job.Status)
	}
}
