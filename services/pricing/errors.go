package pricing

import (
	"fmt"
	"time"
)

// LocationError means a quote was attempted without resolved coordinates.
type LocationError struct {
	Message string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("locationError: %s", e.Message)
}

// TimeError means the pickup or return time is missing or inconsistent.
type TimeError struct {
	Message string
}

func (e *TimeError) Error() string {
	return fmt.Sprintf("timeError: %s", e.Message)
}

// PricingError covers quote fetch failures, response validation failures and
// checksum mismatches.
type PricingError struct {
	Code    string
	Message string
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newPricingError(code, format string, args ...interface{}) *PricingError {
	return &PricingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RateLimitError is returned before any network call when the session has
// exhausted its quote window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rateLimitError: too many quote requests, try again in %d seconds", int(e.RetryAfter.Seconds())+1)
}
