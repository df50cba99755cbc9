package api

import (
	"context"
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/dispatch"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/ingest"
	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/rag"
)

// Syncer ingests and removes material items.
type Syncer interface {
	Sync(ctx context.Context, item material.Item) (*ingest.Report, error)
	Remove(ctx context.Context, ref material.SourceRef) (*ingest.RemoveReport, error)
}

// Asker answers questions over indexed material.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// Selector picks a tool for a prompt.
type Selector interface {
	Dispatch(ctx context.Context, prompt string) (*dispatch.Selection, error)
}

// Server is the API server for the tomes system
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. Collaborators left nil in the config
// make their endpoints answer 503.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if config.ListenAddr == "" {
		return nil, errors.New("listen address is required")
	}
	if config.Collection == "" {
		config.Collection = index.DefaultCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1", s.withTimeout)
	v1.Post("/materials/sync", s.handleSync)
	v1.Delete("/materials/source", s.handleRemove)
	v1.Post("/ask", s.handleAsk)
	v1.Post("/dispatch", s.handleDispatch)
	v1.Get("/search", s.handleSearchEndpoint)
	v1.Get("/chunks", s.handleListChunks)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// withTimeout bounds the handler chain with the configured request timeout.
func (s *Server) withTimeout(c *fiber.Ctx) error {
	if s.config.RequestTimeout <= 0 {
		return c.Next()
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
	defer cancel()
	c.SetUserContext(ctx)
	return c.Next()
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
