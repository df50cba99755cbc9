package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/api/search"
)

var (
	searchToolName    = "search"
	searchDescription = "Search over indexed material using semantic search. Returns the passages most similar to the query text."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant passages"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, search.Output, error) {
	logger := s.config.Logger

	output, err := search.Search(ctx, s.config.Index, s.config.Collection, input.Query, input.TopK, logger)
	if err != nil {
		logger.Error("MCP search failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to search: %v", err)), search.Output{}, nil
	}

	// Tools returning structured content also return the serialized JSON in
	// a TextContent block for older clients.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), search.Output{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}
