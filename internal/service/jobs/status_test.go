package jobs

import (
	"testing"

	"voice-analysis-client/internal/models"
)

func job(id string, status models.JobStatus) models.AnalysisJob {
	return models.AnalysisJob{
		AnalysisID:      id,
		TranscriptionID: "t1",
		AnalysisType:    "kp",
		Status:          status,
	}
}

func TestAnyPending(t *testing.T) {
	tests := []struct {
		name string
		list []models.AnalysisJob
		want bool
	}{
		{"empty list", nil, false},
		{"all queued", []models.AnalysisJob{job("a", models.JobStatusQueued)}, true},
		{"all processing", []models.AnalysisJob{job("a", models.JobStatusProcessing)}, true},
		{"all completed", []models.AnalysisJob{job("a", models.JobStatusCompleted)}, false},
		{"all failed", []models.AnalysisJob{job("a", models.JobStatusFailed)}, false},
		{
			"mixed terminal and pending",
			[]models.AnalysisJob{
				job("a", models.JobStatusCompleted),
				job("b", models.JobStatusProcessing),
				job("c", models.JobStatusFailed),
			},
			true,
		},
		{
			"mixed all terminal",
			[]models.AnalysisJob{
				job("a", models.JobStatusCompleted),
				job("b", models.JobStatusFailed),
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnyPending(tt.list); got != tt.want {
				t.Errorf("AnyPending = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	list := []models.AnalysisJob{
		job("a", models.JobStatusCompleted),
		job("b", models.JobStatusProcessing),
		job("c", models.JobStatusFailed),
	}

	term := Terminal(list)
	if len(term) != 2 {
		t.Fatalf("expected 2 terminal jobs, got %d", len(term))
	}
	if term[0].AnalysisID != "a" || term[1].AnalysisID != "c" {
		t.Errorf("unexpected terminal set: %v", term)
	}
}

func TestReconcile_NewJob(t *testing.T) {
	next := job("a", models.JobStatusQueued)

	got, regressed := Reconcile(nil, next)
	if regressed {
		t.Error("new job must not flag a regression")
	}
	if got.Status != models.JobStatusQueued {
		t.Errorf("expected queued, got %v", got.Status)
	}
}

func TestReconcile_NormalProgress(t *testing.T) {
	prev := job("a", models.JobStatusQueued)
	next := job("a", models.JobStatusProcessing)

	got, regressed := Reconcile(&prev, next)
	if regressed {
		t.Error("forward progress must not flag a regression")
	}
	if got.Status != models.JobStatusProcessing {
		t.Errorf("expected processing, got %v", got.Status)
	}
}

func TestReconcile_TerminalIsMonotonic(t *testing.T) {
	tests := []struct {
		name     string
		prev     models.JobStatus
		reported models.JobStatus
	}{
		{"completed to queued", models.JobStatusCompleted, models.JobStatusQueued},
		{"completed to processing", models.JobStatusCompleted, models.JobStatusProcessing},
		{"failed to queued", models.JobStatusFailed, models.JobStatusQueued},
		{"failed to processing", models.JobStatusFailed, models.JobStatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := job("a", tt.prev)
			got, regressed := Reconcile(&prev, job("a", tt.reported))
			if !regressed {
				t.Error("expected regression flag")
			}
			if got.Status != tt.prev {
				t.Errorf("terminal state must survive, got %v", got.Status)
			}
		})
	}
}

func TestReconcile_TerminalToTerminalKeepsReported(t *testing.T) {
	// completed -> failed is still terminal-to-terminal; the fresh server
	// copy wins because both are final and the payload may carry data
	prev := job("a", models.JobStatusCompleted)
	got, regressed := Reconcile(&prev, job("a", models.JobStatusFailed))
	if regressed {
		t.Error("terminal to terminal is not a regression")
	}
	if got.Status != models.JobStatusFailed {
		t.Errorf("expected reported status kept, got %v", got.Status)
	}
}

func TestStallDetector_TripsAtLimit(t *testing.T) {
	d := NewStallDetector(3)

	if err := d.Observe(0); err != nil {
		t.Fatalf("unexpected error at streak 1: %v", err)
	}
	if err := d.Observe(0); err != nil {
		t.Fatalf("unexpected error at streak 2: %v", err)
	}
	if err := d.Observe(0); err != ErrStalled {
		t.Fatalf("expected ErrStalled at streak 3, got %v", err)
	}
}

func TestStallDetector_NonEmptyResetsStreak(t *testing.T) {
	d := NewStallDetector(2)

	d.Observe(0)
	if err := d.Observe(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.EmptyStreak() != 0 {
		t.Errorf("expected streak reset, got %d", d.EmptyStreak())
	}
	if err := d.Observe(0); err != nil {
		t.Fatalf("streak must restart from zero, got %v", err)
	}
}

func TestStallDetector_Reset(t *testing.T) {
	d := NewStallDetector(2)

	d.Observe(0)
	d.Reset()
	if d.EmptyStreak() != 0 {
		t.Errorf("expected streak 0 after reset, got %d", d.EmptyStreak())
	}
}
