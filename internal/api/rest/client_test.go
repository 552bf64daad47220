package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-analysis-client/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, SessionID: "sess-1"})
}

func TestClient_AttachesSessionCookie(t *testing.T) {
	var gotCookie string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			gotCookie = cookie.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file_id":"f1","original_file_name":"a.mp3","file_size_bytes":1,"status":"uploaded","created_at":"2025-01-16T12:00:00Z"}`))
	})

	if _, err := c.GetFile(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCookie != "sess-1" {
		t.Errorf("expected session cookie 'sess-1', got %q", gotCookie)
	}
}

func TestClient_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantCode string
	}{
		{"unauthorized", 401, `{"detail":"Не авторизован"}`, KindUnauthorized, ""},
		{"forbidden", 403, `{"detail":"forbidden"}`, KindUnauthorized, ""},
		{"plain not found", 404, `{"detail":"Файл не найден"}`, KindNotFound, ""},
		{
			"not yet created",
			404,
			`{"detail":{"code":"not_yet_created","message":"transcription not created yet"}}`,
			KindNotYetCreated,
			"not_yet_created",
		},
		{
			"insufficient balance by code",
			400,
			`{"detail":{"code":"insufficient_balance","message":"not enough minutes"}}`,
			KindInsufficientBalance,
			"insufficient_balance",
		},
		{"insufficient balance by status", 402, `{"detail":"payment required"}`, KindInsufficientBalance, ""},
		{
			"already running by code",
			400,
			`{"detail":{"code":"already_running","message":"analysis already running"}}`,
			KindAlreadyRunning,
			"already_running",
		},
		{"already running by status", 409, `{"detail":"conflict"}`, KindAlreadyRunning, ""},
		{"server error is transient", 500, `{"detail":"boom"}`, KindTransientNetworkFailure, ""},
		{"bad gateway is transient", 502, ``, KindTransientNetworkFailure, ""},
		{"generic bad request", 400, `{"detail":"nope"}`, KindUnexpected, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.GetFile(context.Background(), "f1")
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("expected kind %v, got %v (%v)", tt.wantKind, KindOf(err), err)
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, apiErr.Code)
			}
			if apiErr.HTTPStatus != tt.status {
				t.Errorf("expected status %d recorded, got %d", tt.status, apiErr.HTTPStatus)
			}
			if apiErr.Message == "" {
				t.Error("expected a human-readable message")
			}
		})
	}
}

func TestClient_ConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	c := New(Config{BaseURL: srv.URL})
	_, err := c.GetFile(context.Background(), "f1")
	if !IsKind(err, KindTransientNetworkFailure) {
		t.Errorf("expected transient network failure, got %v", err)
	}
}

func TestClient_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out models.File
	if err := c.do(context.Background(), http.MethodGet, "/files/f1", nil, &out); err != nil {
		t.Fatalf("204 must not attempt a decode: %v", err)
	}
}

func TestClient_UnknownStatusInListIsInvalidStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"analysis_id":"a1","transcription_id":"t1","analysis_type":"kp","status":"weird"}]`))
	})

	_, err := c.ListAnalyses(context.Background(), "t1")
	if !IsKind(err, KindInvalidStatus) {
		t.Errorf("expected KindInvalidStatus, got %v", err)
	}
}

func TestClient_StartAnalyses(t *testing.T) {
	var gotBody models.StartAnalysesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/analyses/start" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"analysis_id":"a1","transcription_id":"t1","analysis_type":"kp","status":"pending"},
			{"analysis_id":"a2","transcription_id":"t1","analysis_type":"protocol","status":"pending"}
		]`))
	})

	created, err := c.StartAnalyses(context.Background(), models.StartAnalysesRequest{
		TranscriptionID: "t1",
		AnalysisTypes:   []string{"kp", "protocol"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody.TranscriptionID != "t1" || len(gotBody.AnalysisTypes) != 2 {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(created))
	}
	for _, j := range created {
		if j.Status != models.JobStatusQueued {
			t.Errorf("expected queued, got %v", j.Status)
		}
	}
}

func TestClient_ListAnalysisTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyses/types/available" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"types":[{"id":"kp","name":"КП","description":"Анализ коммерческого предложения"}]}}`))
	})

	types, err := c.ListAnalysisTypes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(types) != 1 || types[0].ID != "kp" {
		t.Errorf("unexpected catalog: %+v", types)
	}
}

func TestClient_DownloadDocx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyses/a1/download/docx" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("docx-bytes"))
	})

	body, err := c.DownloadDocx(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body.Close()
}

func TestClient_DownloadDocx_NotReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Анализ еще не завершен."}`))
	})

	_, err := c.DownloadDocx(context.Background(), "a1")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindUnexpected {
		t.Errorf("expected KindUnexpected from raw 400, got %v", KindOf(err))
	}
}
