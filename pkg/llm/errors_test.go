package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_Auth(t *testing.T) {
	err := ClassifyError(errors.New("status code: 401, invalid api key"))
	assert.Equal(t, ErrorTypeAuth, err.Type)
	assert.False(t, err.Retryable)
	assert.Equal(t, 401, err.StatusCode)
}

func TestClassifyError_RateLimit(t *testing.T) {
	err := ClassifyError(errors.New("error, status code: 429, message: rate limit exceeded"))
	assert.Equal(t, ErrorTypeRateLimit, err.Type)
	assert.True(t, err.Retryable)
}

func TestClassifyError_Timeout(t *testing.T) {
	err := ClassifyError(errors.New("context deadline exceeded"))
	assert.Equal(t, ErrorTypeTimeout, err.Type)
	assert.True(t, err.Retryable)
}

func TestClassifyError_Connection(t *testing.T) {
	err := ClassifyError(errors.New("dial tcp 127.0.0.1:8000: connection refused"))
	assert.Equal(t, ErrorTypeConnection, err.Type)
	assert.True(t, err.Retryable)
}

func TestClassifyError_Server(t *testing.T) {
	err := ClassifyError(errors.New("status code: 503, message: overloaded"))
	assert.Equal(t, ErrorTypeServer, err.Type)
	assert.True(t, err.Retryable)
}

func TestClassifyError_BadRequest(t *testing.T) {
	err := ClassifyError(errors.New("status code: 400, message: context length exceeded"))
	assert.Equal(t, ErrorTypeBadRequest, err.Type)
	assert.False(t, err.Retryable)
}

func TestClassifyError_Unknown(t *testing.T) {
	err := ClassifyError(errors.New("something odd happened"))
	assert.Equal(t, ErrorTypeUnknown, err.Type)
	assert.False(t, err.Retryable)
}

func TestClassifyError_PassesThroughClassified(t *testing.T) {
	original := &Error{Type: ErrorTypeRateLimit, Message: "rate limited", Retryable: true}
	wrapped := fmt.Errorf("completion failed: %w", original)

	classified := ClassifyError(wrapped)
	assert.Same(t, original, classified)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Type: ErrorTypeServer, Message: "provider error", Cause: cause}

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "provider error")
}

func TestError_IsRetryable(t *testing.T) {
	assert.True(t, (&Error{Retryable: true}).IsRetryable())
	assert.False(t, (&Error{Retryable: false}).IsRetryable())
}
