package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Each client translates it into its provider's wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest", "llama3.2").
	// Empty uses the client's configured model.
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// System prompt (some providers handle this separately from messages)
	System string `json:"system,omitempty"`

	// Tools the model may call for this request only.
	Tools []ToolDefinition `json:"tools,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
}

// ToolDefinition describes a tool the model may select. Parameters is a JSON
// schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
