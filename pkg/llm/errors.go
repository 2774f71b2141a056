package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType classifies completion failures.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeBadRequest ErrorType = "bad_request"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a structured completion error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

var statusCodePattern = regexp.MustCompile(`status code:?\s*(\d{3})|HTTP (\d{3})|\b(\d{3})\b`)

// ClassifyError categorizes an error from a completion provider into a
// structured Error. Already-classified errors pass through unchanged.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	lower := strings.ToLower(err.Error())
	status := extractStatusCode(err.Error())

	switch {
	case status == 401 || status == 403 || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "unauthorized"):
		return &Error{Type: ErrorTypeAuth, Message: "authentication failed", Retryable: false, Cause: err, StatusCode: status}
	case status == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota"):
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limited", Retryable: true, Cause: err, StatusCode: status}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") || strings.Contains(lower, "deadline exceeded"):
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Retryable: true, Cause: err, StatusCode: status}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") || strings.Contains(lower, "no such host") || strings.Contains(lower, "broken pipe"):
		return &Error{Type: ErrorTypeConnection, Message: "connection failed", Retryable: true, Cause: err, StatusCode: status}
	case status >= 500:
		return &Error{Type: ErrorTypeServer, Message: "provider error", Retryable: true, Cause: err, StatusCode: status}
	case status >= 400:
		return &Error{Type: ErrorTypeBadRequest, Message: "bad request", Retryable: false, Cause: err, StatusCode: status}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: "completion failed", Retryable: false, Cause: err}
	}
}

// extractStatusCode pulls an HTTP status code out of a provider error string.
// Returns 0 when none is present.
func extractStatusCode(s string) int {
	m := statusCodePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		code, err := strconv.Atoi(g)
		if err != nil {
			continue
		}
		if code >= 400 && code < 600 {
			return code
		}
	}
	return 0
}
