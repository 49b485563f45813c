package extraction

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrServiceUnavailable is returned when the extraction service could not
	// produce an answer within the attempt budget.
	ErrServiceUnavailable = errors.New("extraction service unavailable")

	// ErrQuotaExceeded is returned when the extraction service keeps
	// rejecting calls for rate or quota reasons. Callers should back off
	// longer than for ErrServiceUnavailable.
	ErrQuotaExceeded = errors.New("extraction service quota exceeded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StatusError is a failed call that carried a status from the upstream API.
type StatusError struct {
	Code    int    // HTTP status code, 0 if unknown
	Status  string // e.g. "RESOURCE_EXHAUSTED"
	Message string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("upstream %d %s: %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.Code, e.Message)
}

// UpstreamError is returned by Client once attempts are exhausted or a
// non-retryable failure occurs. Kind is ErrServiceUnavailable or
// ErrQuotaExceeded.
type UpstreamError struct {
	Kind     error
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUpstream reports whether err is an extraction-service failure.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrQuotaExceeded)
}

// IsQuota reports whether err means the upstream quota is exhausted.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func classify(err error) error {
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusTooManyRequests || se.Status == "RESOURCE_EXHAUSTED") {
		return ErrQuotaExceeded
	}
	return ErrServiceUnavailable
}

// retryable is false for client-side rejections other than rate limiting;
// repeating those cannot succeed.
func retryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return true
	}
	if se.Code == http.StatusTooManyRequests {
		return true
	}
	return se.Code < 400 || se.Code >= 500
}
