// Package mcp provides an MCP (Model Context Protocol) server exposing
// question answering and semantic search over indexed material.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/api/search"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/rag"
	"github.com/papercomputeco/tomes/pkg/utils"
)

// Asker answers questions over indexed material.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

type Config struct {
	// Index for semantic search
	Index search.Querier

	// Pipeline for question answering (optional, enables the ask tool)
	Pipeline Asker

	// Collection searched by the search tool. Defaults to
	// index.DefaultCollection.
	Collection string

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the search and ask tools.
func NewServer(c Config) (*Server, error) {
	if c.Collection == "" {
		c.Collection = index.DefaultCollection
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tomes",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)
	s.mcpServer = mcpServer

	if !c.Noop {
		if c.Index == nil {
			return nil, errors.New("index is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		if c.Pipeline != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        askToolName,
				Description: askDescription,
			}, s.handleAsk)
		}
	}

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// errorResult reports a tool failure to the calling model.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
