// Package servecmder provides the `tomes serve` command running the API and
// MCP servers.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/api"
	apimcp "github.com/papercomputeco/tomes/api/mcp"
	"github.com/papercomputeco/tomes/cmd/tomes/cmdutil"
	"github.com/papercomputeco/tomes/pkg/config"
	"github.com/papercomputeco/tomes/pkg/stack"
)

type ServeCommander struct {
	noMCP  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the tomes API server.

Endpoints:
  GET    /ping                  Health check
  POST   /v1/materials/sync     Sync a text, file or link item
  DELETE /v1/materials/source   Remove the chunks of a file or link
  POST   /v1/ask                Answer a question from synced material
  POST   /v1/dispatch           Select a tool for a prompt
  GET    /v1/search             Semantic search over a collection
  GET    /v1/chunks             List the chunks of a file or link
  *      /mcp                   MCP server with the ask and search tools`

const serveShortDesc string = "Run the tomes API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = cmdutil.NewLogger(cmd)
			defer func() { _ = cmder.logger.Sync() }()

			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP server at /mcp")
	cmdutil.AddFlags(cmd, append([]string{config.FlagAPIListen, config.FlagFileRoot}, cmdutil.StackFlags...))

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, cmd *cobra.Command) error {
	keys := append([]string{config.FlagAPIListen, config.FlagFileRoot}, cmdutil.StackFlags...)

	cfg, dir, err := cmdutil.Load(cmd, keys)
	if err != nil {
		return err
	}
	timeout, err := cfg.API.Timeout()
	if err != nil {
		return err
	}

	s, err := stack.New(ctx, stack.Options{Config: cfg, DataDir: dir, Logger: c.logger})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	apiConfig := api.Config{
		ListenAddr:     cfg.API.Listen,
		RequestTimeout: timeout,
		Collection:     cfg.VectorStore.Collection,
		Ingest:         s.Ingest,
		Pipeline:       s.Pipeline,
		Dispatcher:     s.Dispatcher,
		Index:          s.Index,
		Store:          s.Store,
		FileRoot:       cfg.Ingest.FileRoot,
	}

	if !c.noMCP {
		mcpServer, err := apimcp.NewServer(apimcp.Config{
			Index:      s.Index,
			Pipeline:   s.Pipeline,
			Collection: cfg.VectorStore.Collection,
			Logger:     c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server, err := api.NewServer(apiConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("tomes ready",
		zap.String("data_dir", dir),
		zap.String("collection", cfg.VectorStore.Collection),
		zap.String("llm", s.LLM.Name()),
		zap.Bool("mcp", !c.noMCP),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
