package ollama

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
	Name           = "ollama"
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Config holds configuration for the Ollama chat client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// KeepAlive is passed through as keep_alive, e.g. "5m".
	KeepAlive string

	HTTPClient *http.Client
}

// Client calls Ollama's /api/chat endpoint.
type Client struct {
	baseURL    string
	model      string
	keepAlive  string
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		keepAlive:  cfg.KeepAlive,
		httpClient: cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 300 * time.Second}
	}
	return c
}

func (c *Client) Name() string { return Name }

// Chat sends req to /api/chat with streaming disabled.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(c.toWire(req))
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrProvider, resp.StatusCode, string(payload))
	}

	return parseResponse(payload)
}

func (c *Client) toWire(req *llm.ChatRequest) ollamaRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	out := ollamaRequest{Model: model, KeepAlive: c.keepAlive}
	if req.Temperature != nil || req.TopP != nil || req.Seed != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		out.Options = &ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Seed:        req.Seed,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		}
	}

	if req.System != "" {
		out.Messages = append(out.Messages, ollamaMessage{Role: llm.RoleSystem, Content: req.System})
	}

	// Ollama answers tool results by name, so remember which id called what.
	names := map[string]string{}
	for _, msg := range req.Messages {
		wire := ollamaMessage{Role: msg.Role}
		for _, block := range msg.Content {
			switch block.Type {
			case llm.BlockText:
				wire.Content += block.Text
			case llm.BlockToolUse:
				names[block.ToolUseID] = block.ToolName
				var tc ollamaToolCall
				tc.ID = block.ToolUseID
				tc.Function.Name = block.ToolName
				tc.Function.Arguments = block.ToolInput
				wire.ToolCalls = append(wire.ToolCalls, tc)
			case llm.BlockToolResult:
				out.Messages = append(out.Messages, ollamaMessage{
					Role:     llm.RoleTool,
					Content:  block.ToolOutput,
					ToolName: names[block.ToolResultID],
				})
			}
		}
		if wire.Content != "" || len(wire.ToolCalls) > 0 {
			out.Messages = append(out.Messages, wire)
		}
	}

	for _, tool := range req.Tools {
		var t ollamaTool
		t.Type = "function"
		t.Function.Name = tool.Name
		t.Function.Description = tool.Description
		t.Function.Parameters = tool.Parameters
		out.Tools = append(out.Tools, t)
	}

	return out
}

func parseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrProvider, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: ollama: %s", llm.ErrProvider, resp.Error)
	}

	content := []llm.ContentBlock{}
	if resp.Message.Content != "" {
		content = append(content, llm.ContentBlock{Type: llm.BlockText, Text: resp.Message.Content})
	}
	for n, tc := range resp.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", n)
		}
		content = append(content, llm.ContentBlock{
			Type:      llm.BlockToolUse,
			ToolUseID: id,
			ToolName:  tc.Function.Name,
			ToolInput: tc.Function.Arguments,
		})
	}

	// Map Ollama metrics to common Usage format
	var usage *llm.Usage
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 || resp.TotalDuration > 0 {
		usage = &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			TotalDurationNs:  resp.TotalDuration,
			PromptDurationNs: resp.PromptEvalDuration,
		}
	}

	stopReason := resp.DoneReason
	if stopReason == "" && resp.Done {
		stopReason = "stop"
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    resp.Message.Role,
			Content: content,
		},
		StopReason:  stopReason,
		Usage:       usage,
		CreatedAt:   resp.CreatedAt,
		RawResponse: payload,
	}, nil
}

var _ llm.Client = (*Client)(nil)
