// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
)

const (
	basePath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

	// DefaultMaxRetries is how many times the driver checks Chroma's
	// heartbeat before giving up.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial delay between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff between attempts.
	DefaultMaxRetryDelay = 5 * time.Second
)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// MaxRetries is the number of connection attempts made by NewDriver.
	// Zero uses DefaultMaxRetries.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. It doubles after
	// each failure up to MaxRetryDelay.
	RetryDelay time.Duration

	// MaxRetryDelay caps the delay between attempts.
	MaxRetryDelay time.Duration
}

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDriver creates a new Chroma vector driver. It waits for the Chroma
// heartbeat endpoint to respond, retrying with exponential backoff.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL: strings.TrimRight(c.URL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = d.heartbeat(context.Background())
		if lastErr == nil {
			logger.Info("connected to Chroma", zap.String("url", d.baseURL))
			return d, nil
		}

		if attempt == maxRetries {
			break
		}

		logger.Warn("chroma not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		time.Sleep(delay)
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return nil, fmt.Errorf("%w: chroma at %s after %d attempts: %w", vector.ErrConnection, d.baseURL, maxRetries, lastErr)
}

func (d *Driver) heartbeat(ctx context.Context) error {
	return d.do(ctx, http.MethodGet, "/api/v2/heartbeat", nil, nil)
}

// GetOrCreateCollection returns a handle to the named Chroma collection.
func (d *Driver) GetOrCreateCollection(ctx context.Context, name string) (vector.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, vector.ErrInvalidCollection
	}

	var coll chromaCollection
	err := d.do(ctx, http.MethodGet, basePath+"/"+url.PathEscape(name), nil, &coll)
	if err != nil {
		createBody := chromaCreateRequest{Name: name, GetOrCreate: true}
		if err := d.do(ctx, http.MethodPost, basePath, createBody, &coll); err != nil {
			return nil, fmt.Errorf("getting or creating collection %q: %w", name, err)
		}
	}

	d.logger.Debug("resolved chroma collection",
		zap.String("collection", name),
		zap.String("collection_id", coll.ID),
	)

	return &Collection{driver: d, name: name, id: coll.ID}, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w: %s", method, path, vector.ErrNotFound, string(respBody))
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Collection is a handle to a single Chroma collection.
type Collection struct {
	driver *Driver
	name   string
	id     string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// ID returns the Chroma-assigned collection ID.
func (c *Collection) ID() string { return c.id }

func (c *Collection) path(op string) string {
	return basePath + "/" + url.PathEscape(c.id) + "/" + op
}

// Upsert stores records with their documents and embeddings.
func (c *Collection) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Documents:  make([]string, len(records)),
	}
	for i, r := range records {
		reqBody.IDs[i] = r.ID
		reqBody.Embeddings[i] = r.Embedding
		reqBody.Documents[i] = r.Document
	}

	if err := c.driver.do(ctx, http.MethodPost, c.path("upsert"), reqBody, nil); err != nil {
		return fmt.Errorf("upserting into %q: %w", c.name, err)
	}

	c.driver.logger.Debug("upserted records to chroma",
		zap.String("collection", c.name),
		zap.Int("count", len(records)),
	)
	return nil
}

// Query finds the topK most similar records to the given embedding.
func (c *Collection) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "distances"},
	}

	var queryResp chromaQueryResponse
	if err := c.driver.do(ctx, http.MethodPost, c.path("query"), reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("querying %q: %w", c.name, err)
	}

	results := []vector.QueryResult{}

	// Only one query embedding is sent, so only the first group matters.
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	var documents []*string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{Record: vector.Record{ID: id}}
		if i < len(documents) && documents[i] != nil {
			result.Document = *documents[i]
		}
		// Lower distance = higher similarity
		if i < len(distances) {
			result.Score = 1.0 / (1.0 + distances[i])
		}
		results = append(results, result)
	}

	c.driver.logger.Debug("queried chroma",
		zap.String("collection", c.name),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Delete removes records by their IDs.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := c.driver.do(ctx, http.MethodPost, c.path("delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting from %q: %w", c.name, err)
	}

	c.driver.logger.Debug("deleted records from chroma",
		zap.String("collection", c.name),
		zap.Int("count", len(ids)),
	)
	return nil
}

var (
	_ vector.Driver     = (*Driver)(nil)
	_ vector.Collection = (*Collection)(nil)
)
