// Package search provides shared search types and logic for semantic search
// over indexed material. It is used by both the REST API endpoint and the
// MCP server tool.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/index"
)

// DefaultTopK is used when a request does not set top_k.
const DefaultTopK = 5

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query is required")

// Querier is the part of *index.Index search needs.
type Querier interface {
	QueryQuestion(ctx context.Context, collection, question string, topK int) (*index.Result, error)
}

// Input represents the input arguments for a search request.
type Input struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Result represents a single search result.
type Result struct {
	ID       string  `json:"id"`
	Score    float32 `json:"score"`
	Document string  `json:"document"`
}

// Output represents the output of a search operation.
type Output struct {
	Query      string   `json:"query"`
	Collection string   `json:"collection"`
	Results    []Result `json:"results"`
	Count      int      `json:"count"`
}

// Search embeds the query and returns the closest documents of collection,
// most similar first.
func Search(
	ctx context.Context,
	querier Querier,
	collection string,
	query string,
	topK int,
	logger *zap.Logger,
) (*Output, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug("search request",
		zap.String("query", query),
		zap.String("collection", collection),
		zap.Int("topK", topK),
	)

	res, err := querier.QueryQuestion(ctx, collection, query, topK)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", collection, err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, Result{
			ID:       hit.ID,
			Score:    hit.Score,
			Document: hit.Document,
		})
	}

	return &Output{
		Query:      query,
		Collection: collection,
		Results:    results,
		Count:      len(results),
	}, nil
}
