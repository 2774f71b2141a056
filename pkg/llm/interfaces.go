// Package llm provides clients for the completion oracle behind ScanMatch.
// The oracle is untrusted: its output is free text that callers must parse
// through ExtractJSON/ParseJSONResponse and treat as advisory.
package llm

import "context"

// Role values for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged message in a completion request.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a provider-agnostic chat completion request.
type CompletionRequest struct {
	System      string
	Messages    []Message
	Temperature float64
}

// CompletionResult holds the oracle's free-text output and usage stats.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Client defines the interface for completion operations.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// Complete sends a chat completion request and returns the free-text response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}
