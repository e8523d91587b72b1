package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ProviderError wraps an upstream weather or geocoding failure with enough
// context to decide whether the failure is retryable and which provider
// produced it.
type ProviderError struct {
	Provider   string // Short provider identifier, e.g. "meteomatics"
	Operation  string // Human description of what was being attempted
	URL        string // Request URL, if applicable
	StatusCode int    // HTTP status code, 0 for transport failures
	Err        error  // Underlying error
	Retryable  bool   // Whether a retry could plausibly succeed
	Timestamp  time.Time
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s failed with status %d: %v", e.Provider, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError, classifying retryability from the
// status code and underlying error.
func NewProviderError(provider, operation, rawURL string, statusCode int, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Operation:  operation,
		URL:        rawURL,
		StatusCode: statusCode,
		Err:        err,
		Retryable:  isRetryable(statusCode, err),
		Timestamp:  time.Now(),
	}
}

// isRetryable reports whether a failed request is worth retrying. Server
// errors, rate limiting, and transient transport faults are retryable;
// client errors and cancellations are not.
func isRetryable(statusCode int, err error) bool {
	switch {
	case statusCode == 429:
		return true
	case statusCode >= 500:
		return true
	case statusCode >= 400:
		return false
	}

	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isRetryable(0, urlErr.Err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection reset", "connection refused", "broken pipe", "eof", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// IsRetryable reports whether err (or any error it wraps) represents a
// failure that could succeed on retry.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return isRetryable(0, err)
}

// GeocodingError indicates a place name could not be resolved to
// coordinates. It is a terminal error for the request that produced it.
type GeocodingError struct {
	Query string
	Err   error
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not resolve location %q: %v", e.Query, e.Err)
	}
	return fmt.Sprintf("could not resolve location %q", e.Query)
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// AIServiceError indicates the explanation service failed after retries were
// exhausted. Callers fall back to locally generated text.
type AIServiceError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *AIServiceError) Error() string {
	return fmt.Sprintf("ai explanation failed after %d attempts (model %s): %v", e.Attempts, e.Model, e.Err)
}

func (e *AIServiceError) Unwrap() error {
	return e.Err
}
