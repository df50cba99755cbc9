// Package openai implements llm.Client for OpenAI compatible
// /chat/completions endpoints.
package openai

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
	Name           = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config holds configuration for the OpenAI client.
type Config struct {
	// APIKey is the bearer token. It may be empty for local compatible servers.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// HTTPClient overrides the default client with a 120s timeout.
	HTTPClient *http.Client
}

// Client calls the chat completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return c
}

func (c *Client) Name() string { return Name }

// Chat sends req to /chat/completions without streaming.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	wireReq, err := c.toWire(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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
		return nil, fmt.Errorf("%w: openai returned status %d: %s", llm.ErrProvider, resp.StatusCode, string(payload))
	}

	return parseResponse(payload)
}

func (c *Client) toWire(req *llm.ChatRequest) (openaiRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	out := openaiRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Seed:        req.Seed,
	}

	if req.System != "" {
		out.Messages = append(out.Messages, openaiMessage{Role: llm.RoleSystem, Content: req.System})
	}

	for _, msg := range req.Messages {
		wire := openaiMessage{Role: msg.Role}
		var text strings.Builder
		for _, block := range msg.Content {
			switch block.Type {
			case llm.BlockText:
				text.WriteString(block.Text)
			case llm.BlockToolUse:
				args, err := json.Marshal(block.ToolInput)
				if err != nil {
					return openaiRequest{}, fmt.Errorf("%w: encoding input of tool call %s: %v", llm.ErrProvider, block.ToolUseID, err)
				}
				tc := openaiToolCall{ID: block.ToolUseID, Type: "function"}
				tc.Function.Name = block.ToolName
				tc.Function.Arguments = string(args)
				wire.ToolCalls = append(wire.ToolCalls, tc)
			case llm.BlockToolResult:
				// Tool results are their own messages on the wire.
				out.Messages = append(out.Messages, openaiMessage{
					Role:       llm.RoleTool,
					Content:    block.ToolOutput,
					ToolCallID: block.ToolResultID,
				})
			}
		}
		if text.Len() > 0 || len(wire.ToolCalls) > 0 {
			wire.Content = text.String()
			out.Messages = append(out.Messages, wire)
		}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openaiTool{
			Type: "function",
			Function: openaiFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return out, nil
}

func parseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp openaiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrProvider, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: openai: %s", llm.ErrProvider, resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return &llm.ChatResponse{
			Model:       resp.Model,
			Message:     llm.Message{Role: llm.RoleAssistant},
			RawResponse: payload,
		}, nil
	}

	choice := resp.Choices[0]
	msg := choice.Message

	var content []llm.ContentBlock
	switch c := msg.Content.(type) {
	case string:
		content = []llm.ContentBlock{{Type: llm.BlockText, Text: c}}
	case []any:
		for _, item := range c {
			if part, ok := item.(map[string]any); ok {
				cb := llm.ContentBlock{}
				if t, ok := part["type"].(string); ok {
					cb.Type = t
				}
				if text, ok := part["text"].(string); ok {
					cb.Text = text
				}
				content = append(content, cb)
			}
		}
	case nil:
		content = []llm.ContentBlock{}
	}

	for _, tc := range msg.ToolCalls {
		var input map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("%w: decoding arguments of %s: %v", llm.ErrProvider, tc.Function.Name, err)
			}
		}
		content = append(content, llm.ContentBlock{
			Type:      llm.BlockToolUse,
			ToolUseID: tc.ID,
			ToolName:  tc.Function.Name,
			ToolInput: input,
		})
	}

	var usage *llm.Usage
	if resp.Usage != nil {
		usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    msg.Role,
			Content: content,
		},
		StopReason:  choice.FinishReason,
		Usage:       usage,
		CreatedAt:   time.Unix(resp.Created, 0),
		RawResponse: payload,
	}, nil
}

var _ llm.Client = (*Client)(nil)
