package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/tomes/pkg/llm"
)

// ErrMockLLM is returned by MockLLMClient when Fail is set.
var ErrMockLLM = errors.New("mock llm failure")

// MockLLMClient is an llm.Client returning canned responses and recording
// every request.
type MockLLMClient struct {
	// Reply is the text answer used when Response is nil.
	Reply string

	// Response, when set, is returned as is.
	Response *llm.ChatResponse

	Fail bool

	mu       sync.Mutex
	requests []*llm.ChatRequest
}

func NewMockLLMClient(reply string) *MockLLMClient {
	return &MockLLMClient{Reply: reply}
}

// NewToolCallResponse returns an assistant response selecting one tool.
func NewToolCallResponse(name string, input map[string]any) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message: llm.Message{
			Role: llm.RoleAssistant,
			Content: []llm.ContentBlock{{
				Type:      llm.BlockToolUse,
				ToolUseID: "call_0",
				ToolName:  name,
				ToolInput: input,
			}},
		},
		StopReason: "tool_use",
	}
}

func (m *MockLLMClient) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Fail {
		return nil, ErrMockLLM
	}
	if m.Response != nil {
		return m.Response, nil
	}
	return &llm.ChatResponse{
		Model:      "mock",
		Message:    llm.NewTextMessage(llm.RoleAssistant, m.Reply),
		StopReason: "stop",
	}, nil
}

func (m *MockLLMClient) Name() string { return "mock" }

// Requests returns the requests received so far.
func (m *MockLLMClient) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.requests...)
}

// LastRequest returns the most recent request or nil.
func (m *MockLLMClient) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
