package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUnauthorized indicates the provider rejected the configured credential.
var ErrUnauthorized = errors.New("ai provider rejected credentials")

// ErrMalformedResponse indicates a reply without any usable choice.
var ErrMalformedResponse = errors.New("ai provider returned a malformed response")

// ErrUnavailable covers network failures and any other provider error.
var ErrUnavailable = errors.New("ai provider unavailable")

// ServiceError is returned for every failed completion call.
type ServiceError struct {
	Kind       error // one of the sentinels above
	StatusCode int   // provider HTTP status, 0 when no response arrived
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() []error { return []error{e.Kind, e.Err} }

// KindForStatus maps a provider HTTP status onto a sentinel.
func KindForStatus(status int) error {
	switch status {
	case 429:
		return ErrQuotaExceeded
	case 401, 403:
		return ErrUnauthorized
	default:
		return ErrUnavailable
	}
}
