// Package qdrant provides a Qdrant vector database driver over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	payloadID       = "id"
	payloadDocument = "document"
)

// pointNamespace scopes the UUIDs derived from record IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tomes.vector.qdrant"))

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Dimensions is the vector size used when a collection is created.
	Dimensions uint
}

// Driver implements vector.Driver on a Qdrant server.
type Driver struct {
	client     *qc.Client
	dimensions uint
	logger     *zap.Logger

	mu          sync.Mutex
	collections map[string]*Collection
}

// NewDriver connects to Qdrant.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant at %s:%d: %w", vector.ErrConnection, c.Host, c.Port, err)
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.Uint("dimensions", c.Dimensions),
	)

	return &Driver{
		client:      client,
		dimensions:  c.Dimensions,
		logger:      logger,
		collections: make(map[string]*Collection),
	}, nil
}

// PointID maps a record ID onto the UUID Qdrant stores it under.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// GetOrCreateCollection creates the collection with cosine distance if it
// does not exist yet.
func (d *Driver) GetOrCreateCollection(ctx context.Context, name string) (vector.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, vector.ErrInvalidCollection
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c, nil
	}

	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", name, err)
	}

	if !exists {
		err := d.client.CreateCollection(ctx, &qc.CreateCollection{
			CollectionName: name,
			VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
				Size:     uint64(d.dimensions),
				Distance: qc.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("creating collection %q: %w", name, err)
		}
		d.logger.Info("created qdrant collection", zap.String("collection", name))
	}

	c := &Collection{driver: d, name: name}
	d.collections[name] = c
	return c, nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Collection is a handle to a Qdrant collection.
type Collection struct {
	driver *Driver
	name   string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Upsert writes points keyed by PointID(record.ID). The original ID and the
// document are kept in the payload.
func (c *Collection) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qc.PointStruct{
			Id:      qc.NewIDUUID(PointID(r.ID)),
			Vectors: qc.NewVectors(r.Embedding...),
			Payload: qc.NewValueMap(map[string]any{
				payloadID:       r.ID,
				payloadDocument: r.Document,
			}),
		}
	}

	wait := true
	if _, err := c.driver.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting into %q: %w", c.name, err)
	}

	c.driver.logger.Debug("upserted records to qdrant",
		zap.String("collection", c.name),
		zap.Int("count", len(records)),
	)
	return nil
}

// Query returns the nearest points with their payloads.
func (c *Collection) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}
	limit := uint64(topK)

	points, err := c.driver.client.Query(ctx, &qc.QueryPoints{
		CollectionName: c.name,
		Query:          qc.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", c.name, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Record: vector.Record{
				ID:       p.GetPayload()[payloadID].GetStringValue(),
				Document: p.GetPayload()[payloadDocument].GetStringValue(),
			},
			Score: p.GetScore(),
		})
	}

	c.driver.logger.Debug("queried qdrant",
		zap.String("collection", c.name),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Delete removes points by record ID.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qc.NewIDUUID(PointID(id))
	}

	wait := true
	if _, err := c.driver.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         qc.NewPointsSelector(pointIDs...),
	}); err != nil {
		return fmt.Errorf("deleting from %q: %w", c.name, err)
	}

	c.driver.logger.Debug("deleted records from qdrant",
		zap.String("collection", c.name),
		zap.Int("count", len(ids)),
	)
	return nil
}

var (
	_ vector.Driver     = (*Driver)(nil)
	_ vector.Collection = (*Collection)(nil)
)
