package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/dispatch"
	"github.com/papercomputeco/tomes/pkg/ingest"
	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/rag"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestErrorResponse is returned when a sync run fails part way.
type IngestErrorResponse struct {
	Error            string `json:"error"`
	Stage            string `json:"stage"`
	Source           string `json:"source"`
	CommittedBatches int    `json:"committed_batches"`
	CommittedChunks  int    `json:"committed_chunks"`
}

// SyncRequest is the loose item payload of POST /v1/materials/sync. Exactly
// one of Text, File or URL must be set.
type SyncRequest struct {
	MaterialID string `json:"material_id"`
	Text       string `json:"text,omitempty"`
	File       string `json:"file,omitempty"`
	URL        string `json:"url,omitempty"`
	FileID     string `json:"file_id,omitempty"`
	LinkID     string `json:"link_id,omitempty"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// DispatchRequest is the body of POST /v1/dispatch.
type DispatchRequest struct {
	Prompt string `json:"prompt"`
}

// DispatchResponse wraps the selection; Selection is null when the model
// chose no tool.
type DispatchResponse struct {
	Selection *dispatch.Selection `json:"selection"`
}

// ChunksResponse lists the chunks of one source.
type ChunksResponse struct {
	Source material.SourceRef `json:"source"`
	Chunks []material.Chunk   `json:"chunks"`
	Count  int                `json:"count"`
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleSync handles POST /v1/materials/sync.
func (s *Server) handleSync(c *fiber.Ctx) error {
	if s.config.Ingest == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "ingestion is not configured")
	}

	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, err := material.ParseItem(req.MaterialID, req.Text, req.File, req.URL, req.FileID, req.LinkID)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	item, err = confineItem(item, s.config.FileRoot)
	if err != nil {
		s.logger.Warn("rejected file sync", zap.String("file", req.File), zap.Error(err))
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	}

	report, err := s.config.Ingest.Sync(c.UserContext(), item)
	if err != nil {
		return s.ingestError(c, item, err)
	}

	return c.JSON(report)
}

func (s *Server) ingestError(c *fiber.Ctx, item material.Item, err error) error {
	if errors.Is(err, material.ErrInvalidItem) {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	var ierr *ingest.IngestionError
	if !errors.As(err, &ierr) {
		s.logger.Error("sync failed", zap.String("source", item.Describe()), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	s.logger.Warn("sync failed",
		zap.String("source", ierr.Source),
		zap.String("stage", string(ierr.Stage)),
		zap.Int("committed_batches", ierr.CommittedBatches),
		zap.Error(ierr.Err),
	)

	status := fiber.StatusBadGateway
	if ierr.Stage == ingest.StageExtract {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(IngestErrorResponse{
		Error:            ierr.Error(),
		Stage:            string(ierr.Stage),
		Source:           ierr.Source,
		CommittedBatches: ierr.CommittedBatches,
		CommittedChunks:  ierr.CommittedChunks,
	})
}

// sourceRef reads the file or link query parameter.
func sourceRef(c *fiber.Ctx) (material.SourceRef, error) {
	file, link := c.Query("file"), c.Query("link")
	switch {
	case file != "" && link != "":
		return material.SourceRef{}, errors.New("only one of file or link may be set")
	case file != "":
		return material.FileRef(file), nil
	case link != "":
		return material.LinkRef(link), nil
	default:
		return material.SourceRef{}, errors.New("file or link parameter required")
	}
}

// handleRemove handles DELETE /v1/materials/source?file=<id>|link=<id>.
func (s *Server) handleRemove(c *fiber.Ctx) error {
	if s.config.Ingest == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "ingestion is not configured")
	}

	ref, err := sourceRef(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := s.config.Ingest.Remove(c.UserContext(), ref)
	if err != nil {
		s.logger.Error("remove failed", zap.Stringer("source", ref), zap.Error(err))
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(report)
}

// handleAsk handles POST /v1/ask.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	if s.config.Pipeline == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "pipeline is not configured")
	}

	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := s.config.Pipeline.Ask(c.UserContext(), req.Question)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuestion) {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		s.logger.Error("ask failed", zap.Error(err))
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(answer)
}

// handleDispatch handles POST /v1/dispatch.
func (s *Server) handleDispatch(c *fiber.Ctx) error {
	if s.config.Dispatcher == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "dispatcher is not configured")
	}

	var req DispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return errorJSON(c, fiber.StatusBadRequest, "prompt is required")
	}

	sel, err := s.config.Dispatcher.Dispatch(c.UserContext(), req.Prompt)
	if err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, dispatch.ErrUnknownTool) {
			status = fiber.StatusUnprocessableEntity
		}
		s.logger.Error("dispatch failed", zap.Error(err))
		return errorJSON(c, status, err.Error())
	}

	return c.JSON(DispatchResponse{Selection: sel})
}

// handleListChunks handles GET /v1/chunks?file=<id>|link=<id>.
func (s *Server) handleListChunks(c *fiber.Ctx) error {
	if s.config.Store == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "chunk store is not configured")
	}

	ref, err := sourceRef(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	var chunks []material.Chunk
	if ref.Kind == material.KindFile {
		chunks, err = s.config.Store.FindByFile(c.UserContext(), ref.ID)
	} else {
		chunks, err = s.config.Store.FindByLink(c.UserContext(), ref.ID)
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list chunks")
	}
	if chunks == nil {
		chunks = []material.Chunk{}
	}

	return c.JSON(ChunksResponse{Source: ref, Chunks: chunks, Count: len(chunks)})
}
