// Package llmadapter defines the interface boundary to a large-language-model
// backend. Concrete adapters (Anthropic, OpenAI, ...) are explicitly out of
// scope here; this package only names the shape every caller in this module
// depends on.
package llmadapter

import "context"

// Usage reports token accounting for a single completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Message is a minimal role/content pair, enough for the analysis prompt
// (system + user) used by the Failure-Analysis Orchestrator; the agent
// execution loop receives its messages from the coding-agent SDK stream
// instead (see internal/agentexec), not through this interface.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// CompletionRequest is one non-streaming request to an LLM.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is the adapter's reply.
type CompletionResponse struct {
	Text  string
	Usage Usage
}

// Adapter is implemented by a concrete LLM client. This module never ships
// one; callers inject a fake in tests and a real client in production.
type Adapter interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
