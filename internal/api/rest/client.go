// Package rest implements the typed HTTP transport for the voice analysis
// backend. It attaches the ambient session credential to every call and
// normalizes all failures into *Error values. Retry policy lives with the
// callers (the polling scheduler), not here.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-analysis-client/internal/models"
)

// SessionCookieName is the credential cookie the backend expects.
const SessionCookieName = "session_id"

// Config holds transport configuration.
type Config struct {
	BaseURL    string
	SessionID  string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, overrides Timeout when set
}

// Client is the typed request layer over the backend REST API.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

// New creates a transport client for the given backend.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		sessionID: cfg.SessionID,
		http:      hc,
	}
}

// GetFile fetches one uploaded file by id.
func (c *Client) GetFile(ctx context.Context, fileID string) (*models.File, error) {
	var out models.File
	if err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFiles fetches the upload history for the current session.
func (c *Client) ListFiles(ctx context.Context) ([]models.File, error) {
	var out []models.File
	if err := c.do(ctx, http.MethodGet, "/files/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTranscriptionForFile fetches the transcription mapped to a file.
// A 404 whose body carries the not_yet_created code classifies as
// KindNotYetCreated; a plain 404 means the file id itself is unknown.
func (c *Client) GetTranscriptionForFile(ctx context.Context, fileID string) (*models.Transcription, error) {
	var out models.Transcription
	if err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID)+"/transcription", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAnalysisTypes fetches the analysis catalog.
func (c *Client) ListAnalysisTypes(ctx context.Context) ([]models.AnalysisType, error) {
	var envelope models.AnalysisTypesEnvelope
	if err := c.do(ctx, http.MethodGet, "/analyses/types/available", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Types, nil
}

// StartAnalyses submits the batch create and returns the created jobs.
func (c *Client) StartAnalyses(ctx context.Context, req models.StartAnalysesRequest) ([]models.AnalysisJob, error) {
	var out []models.AnalysisJob
	if err := c.do(ctx, http.MethodPost, "/analyses/start", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAnalyses fetches the full current job list for a transcription.
func (c *Client) ListAnalyses(ctx context.Context, transcriptionID string) ([]models.AnalysisJob, error) {
	var out []models.AnalysisJob
	if err := c.do(ctx, http.MethodGet, "/analyses/transcription/"+url.PathEscape(transcriptionID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAnalysis fetches one job by id.
func (c *Client) GetAnalysis(ctx context.Context, analysisID string) (*models.AnalysisJob, error) {
	var out models.AnalysisJob
	if err := c.do(ctx, http.MethodGet, "/analyses/"+url.PathEscape(analysisID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadDocx opens the DOCX artifact stream for a completed job. The
// caller owns the returned reader and must close it.
func (c *Client) DownloadDocx(ctx context.Context, analysisID string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/analyses/"+url.PathEscape(analysisID)+"/download/docx", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{
			Kind:    KindTransientNetworkFailure,
			Message: "request failed: " + err.Error(),
			cause:   err,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, normalizeError(resp.StatusCode, body)
	}
	return resp.Body, nil
}

const maxErrorBody = 64 * 1024

// errorBody is the FastAPI-style error envelope. detail is either a plain
// string or an object carrying a machine code.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindUnexpected, Message: "encode request: " + err.Error(), cause: err}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Message: "build request: " + err.Error(), cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.sessionID})
	}
	return req, nil
}

// do executes one request and decodes the response into out. A 204 (or nil
// out) yields no value rather than attempting to parse an empty body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{
			Kind:    KindTransientNetworkFailure,
			Message: "request failed: " + err.Error(),
			cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return normalizeError(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Kind:    KindTransientNetworkFailure,
			Message: "read response: " + err.Error(),
			cause:   err,
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var unknown *models.ErrUnknownStatus
		if errors.As(err, &unknown) {
			return &Error{
				Kind:    KindInvalidStatus,
				Message: unknown.Error(),
				cause:   err,
			}
		}
		return &Error{Kind: KindUnexpected, Message: "decode response: " + err.Error(), cause: err}
	}
	return nil
}

// normalizeError maps one non-2xx response to the error taxonomy.
func normalizeError(status int, raw []byte) *Error {
	code, message := parseErrorBody(raw)
	if message == "" {
		message = http.StatusText(status)
	}

	e := &Error{Code: code, Message: message, HTTPStatus: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status == http.StatusNotFound && code == "not_yet_created":
		e.Kind = KindNotYetCreated
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case code == "insufficient_balance" || status == http.StatusPaymentRequired:
		e.Kind = KindInsufficientBalance
	case code == "already_running" || status == http.StatusConflict:
		e.Kind = KindAlreadyRunning
	case status >= 500:
		e.Kind = KindTransientNetworkFailure
	default:
		e.Kind = KindUnexpected
	}
	return e
}

func parseErrorBody(raw []byte) (code, message string) {
	if len(raw) == 0 {
		return "", ""
	}
	var envelope errorBody
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		return "", ""
	}
	// detail may be a bare string or an object with a machine code
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return "", s
	}
	var d errorDetail
	if err := json.Unmarshal(envelope.Detail, &d); err == nil {
		return d.Code, d.Message
	}
	return "", fmt.Sprintf("%s", envelope.Detail)
}
