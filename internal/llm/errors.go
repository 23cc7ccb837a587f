package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error is the unified error interface returned by provider adapters.
type Error interface {
	error
	Provider() string
	StatusCode() int
	Retryable() bool
	RetryAfter() *time.Duration
}

type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.TrimSpace(e.Message)
}
func (e *ConfigurationError) Provider() string           { return "" }
func (e *ConfigurationError) StatusCode() int            { return 0 }
func (e *ConfigurationError) Retryable() bool            { return false }
func (e *ConfigurationError) RetryAfter() *time.Duration { return nil }

type httpErrorBase struct {
	provider   string
	statusCode int
	message    string
	retryable  bool
	retryAfter *time.Duration
}

func (e *httpErrorBase) Error() string {
	msg := strings.TrimSpace(e.message)
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s error (status=%d): %s", e.provider, e.statusCode, msg)
}
func (e *httpErrorBase) Provider() string           { return e.provider }
func (e *httpErrorBase) StatusCode() int            { return e.statusCode }
func (e *httpErrorBase) Retryable() bool            { return e.retryable }
func (e *httpErrorBase) RetryAfter() *time.Duration { return e.retryAfter }

type InvalidRequestError struct{ httpErrorBase }
type AuthenticationError struct{ httpErrorBase }
type RequestTimeoutError struct{ httpErrorBase }
type ContentFilterError struct{ httpErrorBase }
type QuotaExceededError struct{ httpErrorBase }
type RateLimitError struct{ httpErrorBase }
type ServerError struct{ httpErrorBase }
type UnknownHTTPError struct{ httpErrorBase }

// ErrorFromHTTPStatus classifies a non-2xx provider response.
func ErrorFromHTTPStatus(provider string, statusCode int, message string, retryAfter *time.Duration) error {
	base := httpErrorBase{
		provider:   strings.TrimSpace(provider),
		statusCode: statusCode,
		message:    message,
		retryAfter: retryAfter,
	}
	switch statusCode {
	case 400, 422:
		base.retryable = false
		// Ambiguous status codes: providers tunnel domain-specific
		// failures in text, so refine by message hints.
		if err := classifyByMessage(base); err != nil {
			return err
		}
		return &InvalidRequestError{base}
	case 401, 403:
		base.retryable = false
		return &AuthenticationError{base}
	case 408:
		base.retryable = true
		return &RequestTimeoutError{base}
	case 429:
		base.retryable = true
		return &RateLimitError{base}
	case 500, 502, 503, 504:
		base.retryable = true
		return &ServerError{base}
	default:
		// Unknown errors default to retryable.
		base.retryable = true
		return &UnknownHTTPError{base}
	}
}

func classifyByMessage(base httpErrorBase) error {
	lower := strings.ToLower(base.message)
	switch {
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{base}
	case strings.Contains(lower, "quota") || strings.Contains(lower, "billing"):
		return &QuotaExceededError{base}
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid key") || strings.Contains(lower, "api key"):
		return &AuthenticationError{base}
	}
	return nil
}

// WrapContextError converts transport-level failures into the unified
// hierarchy. Context cancellation and deadline expiry become a non-HTTP
// RequestTimeoutError; anything else is passed through unchanged.
func WrapContextError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &RequestTimeoutError{httpErrorBase{
			provider:  strings.TrimSpace(provider),
			message:   err.Error(),
			retryable: false,
		}}
	}
	return err
}

// IsTimeout reports whether err is a request timeout in the unified hierarchy.
func IsTimeout(err error) bool {
	var e *RequestTimeoutError
	return errors.As(err, &e)
}

func IsAuthenticationError(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

// ParseRetryAfter parses a Retry-After header value: integer seconds or an
// HTTP-date (RFC 7231).
func ParseRetryAfter(v string, now time.Time) *time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}
