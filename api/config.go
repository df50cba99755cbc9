// Package api provides the HTTP API server for syncing material, asking
// questions and dispatching prompts.
package api

import (
	"net/http"
	"time"

	"github.com/papercomputeco/tomes/api/search"
	"github.com/papercomputeco/tomes/pkg/storage"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// RequestTimeout bounds each /v1 request. Zero disables the deadline.
	RequestTimeout time.Duration

	// Collection is searched by GET /v1/search.
	Collection string

	// Ingest backs the material endpoints.
	Ingest Syncer

	// Pipeline backs POST /v1/ask.
	Pipeline Asker

	// Dispatcher backs POST /v1/dispatch.
	Dispatcher Selector

	// Index backs GET /v1/search.
	Index search.Querier

	// FileRoot confines file items of POST /v1/materials/sync. Paths are
	// resolved under it and rejected when they escape it. Empty rejects
	// every file item.
	FileRoot string

	// Store backs GET /v1/chunks.
	Store storage.ChunkStore

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
