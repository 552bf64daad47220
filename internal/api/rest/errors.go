package rest

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the transport can surface. Callers branch
// on the kind, never on raw HTTP status codes or message text.
type Kind int

const (
	// KindUnexpected - anything the client has no specific handling for.
	KindUnexpected Kind = iota
	// KindUnauthorized - session missing or expired; caller must re-authenticate.
	KindUnauthorized
	// KindNotFound - the id itself is unknown; terminal, not retryable.
	KindNotFound
	// KindNotYetCreated - expected transient absence (e.g. transcription
	// queried right after upload); retryable after a short delay.
	KindNotYetCreated
	// KindEmptySelection - local validation failure, never reaches the network.
	KindEmptySelection
	// KindInsufficientBalance - business rejection from start-jobs.
	KindInsufficientBalance
	// KindAlreadyRunning - business rejection from start-jobs.
	KindAlreadyRunning
	// KindTransientNetworkFailure - connection-level or 5xx failure; the
	// polling loop absorbs these and retries on the next tick.
	KindTransientNetworkFailure
	// KindNotReady - download requested for a job that is not completed.
	KindNotReady
	// KindDownloadFailed - the binary fetch itself errored.
	KindDownloadFailed
	// KindInvalidStatus - the backend reported a status string outside the
	// closed set.
	KindInvalidStatus
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindNotYetCreated:
		return "not_yet_created"
	case KindEmptySelection:
		return "empty_selection"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindAlreadyRunning:
		return "already_running"
	case KindTransientNetworkFailure:
		return "transient_network_failure"
	case KindNotReady:
		return "not_ready"
	case KindDownloadFailed:
		return "download_failed"
	case KindInvalidStatus:
		return "invalid_status"
	default:
		return "unexpected"
	}
}

// Error is the single error shape every operation resolves to. Message is
// human-readable; Code carries the machine error code from the response
// body when the backend provided one.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	cause      error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the Kind from any error returned by this package.
// Errors of other types classify as KindUnexpected.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
