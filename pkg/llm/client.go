// Package llm holds the provider-agnostic chat types and the Client
// interface implemented under pkg/llm/provider.
package llm

import (
	"context"
	"errors"
)

// ErrProvider is wrapped by every client when the provider call fails.
var ErrProvider = errors.New("llm provider error")

// Client sends one synchronous chat completion.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider name, e.g. "openai".
	Name() string
}
