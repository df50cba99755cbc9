// Package anthropic implements llm.Client for the Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/tomes/pkg/llm"
)

const (
	Name             = "anthropic"
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 1024
	APIVersion       = "2023-06-01"
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is sent as x-api-key (required).
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// MaxTokens is used when a request does not set one.
	MaxTokens int

	HTTPClient *http.Client
}

// Client calls /v1/messages.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return c, nil
}

func (c *Client) Name() string { return Name }

// Chat sends req to /v1/messages.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(c.toWire(req))
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", llm.ErrProvider, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", llm.ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: anthropic returned status %d: %s", llm.ErrProvider, resp.StatusCode, string(payload))
	}

	return parseResponse(payload)
}

func (c *Client) toWire(req *llm.ChatRequest) anthropicRequest {
	out := anthropicRequest{
		Model:       req.Model,
		System:      req.System,
		MaxTokens:   c.maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if out.Model == "" {
		out.Model = c.model
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}

	for _, msg := range req.Messages {
		// System messages inside the conversation fold into the top-level field.
		if msg.Role == llm.RoleSystem {
			if out.System != "" {
				out.System += "\n\n"
			}
			out.System += msg.GetText()
			continue
		}

		role := msg.Role
		if role == llm.RoleTool {
			role = llm.RoleUser
		}
		wire := anthropicMessage{Role: role}
		for _, block := range msg.Content {
			switch block.Type {
			case llm.BlockText:
				wire.Content = append(wire.Content, anthropicContentBlock{Type: "text", Text: block.Text})
			case llm.BlockToolUse:
				input := block.ToolInput
				if input == nil {
					input = map[string]any{}
				}
				wire.Content = append(wire.Content, anthropicContentBlock{
					Type: "tool_use", ID: block.ToolUseID, Name: block.ToolName, Input: input,
				})
			case llm.BlockToolResult:
				wire.Content = append(wire.Content, anthropicContentBlock{
					Type: "tool_result", ToolUseID: block.ToolResultID, Content: block.ToolOutput, IsError: block.IsError,
				})
			}
		}
		if len(wire.Content) > 0 {
			out.Messages = append(out.Messages, wire)
		}
	}

	for _, tool := range req.Tools {
		schema := tool.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out.Tools = append(out.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	return out
}

func parseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrProvider, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: anthropic %s: %s", llm.ErrProvider, resp.Error.Type, resp.Error.Message)
	}

	content := make([]llm.ContentBlock, 0, len(resp.Content))
	for _, block := range resp.Content {
		cb := llm.ContentBlock{Type: block.Type}
		switch block.Type {
		case llm.BlockText:
			cb.Text = block.Text
		case llm.BlockToolUse:
			cb.ToolUseID = block.ID
			cb.ToolName = block.Name
			cb.ToolInput = block.Input
		}
		content = append(content, cb)
	}

	var usage *llm.Usage
	if resp.Usage != nil {
		usage = &llm.Usage{
			PromptTokens:             resp.Usage.InputTokens,
			CompletionTokens:         resp.Usage.OutputTokens,
			TotalTokens:              resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CacheCreationInputTokens: resp.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     resp.Usage.CacheReadInputTokens,
		}
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    resp.Role,
			Content: content,
		},
		StopReason:  resp.StopReason,
		Usage:       usage,
		CreatedAt:   time.Now(),
		RawResponse: payload,
	}, nil
}

var _ llm.Client = (*Client)(nil)
