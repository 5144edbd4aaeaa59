// Package llm defines the provider-agnostic completion interface used by
// lead enrichment. Concrete providers live in pkg/gemini and pkg/anthropic.
package llm

import "context"

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64

	// JSONResponse asks the provider for a strict JSON object response
	// where the backend supports it.
	JSONResponse bool
}

// Completion is a provider-agnostic completion result.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider performs LLM completions.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
