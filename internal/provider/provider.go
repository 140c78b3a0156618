// Package provider defines the text-generation provider the orchestrator
// uses to write posts and comments on behalf of personas.
package provider

import "context"

// Request is a single generation request.
type Request struct {
	System      string  `json:"system,omitempty"` // persona framing
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Response is the generated text.
type Response struct {
	Text string `json:"text"`
}

// Provider defines the interface for text-generation backends.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a generation request
	Complete(ctx context.Context, req *Request) (*Response, error)
}
