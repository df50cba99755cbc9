package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question from the indexed material. Retrieves the most relevant passages and asks the configured model to answer using only them."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from indexed material"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Passages []string `json:"passages"`
}

// handleAsk runs the pipeline for one question.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP ask request", zap.String("question", input.Question))

	answer, err := s.config.Pipeline.Ask(ctx, input.Question)
	if err != nil {
		logger.Error("MCP ask failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to answer: %v", err)), AskOutput{}, nil
	}

	passages := answer.Passages
	if passages == nil {
		passages = []string{}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: answer.Answer},
		},
	}, AskOutput{Question: answer.Question, Answer: answer.Answer, Passages: passages}, nil
}
