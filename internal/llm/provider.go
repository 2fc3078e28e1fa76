// Package llm talks to an OpenAI-compatible endpoint for the bundled
// LLM-backed symptom provider and the procedure knowledge base embedder.
package llm

import "context"

// CompletionRequest is one round trip to the chat endpoint. Capability
// providers send a single instruction plus one user turn; conversation
// continuity lives in the session store, not here.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries the model output and its token accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the completion backend a capability provider calls into.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
