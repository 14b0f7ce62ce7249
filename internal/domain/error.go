package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingCredentials  = errors.New("missing provider credentials")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidVideoURL     = errors.New("invalid video url or id")
	ErrNoTranscript        = errors.New("no transcript available")
)

// FailureKind classifies a provider-call failure for retry decisions
// and user-facing hints.
type FailureKind int

const (
	FailureTransient FailureKind = iota // network, timeout, 5xx
	FailureRateLimited
	FailureAuth
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureRateLimited:
		return "rate_limited"
	case FailureAuth:
		return "auth"
	case FailureMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ProviderError wraps any failure from an LLM provider call. The original
// provider message/status code stays retrievable via Unwrap and StatusCode.
type ProviderError struct {
	Kind       FailureKind
	Provider   string
	Model      string
	StatusCode int // 0 when the failure never reached HTTP
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s call failed (http %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s call failed: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the backoff loop may attempt the call again.
func (e *ProviderError) Retryable() bool {
	return e.Kind == FailureTransient || e.Kind == FailureRateLimited
}

// ClassifyStatus maps an HTTP status to a failure kind.
func ClassifyStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return FailureAuth
	case status == 429:
		return FailureRateLimited
	case status >= 500:
		return FailureTransient
	default:
		return FailureMalformed
	}
}
