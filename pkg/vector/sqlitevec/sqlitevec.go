// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
//
// Each collection gets its own pair of tables: a mapping table from string
// record IDs to integer rowids (vec0 virtual tables only key on rowid) and a
// vec0 table holding the embeddings. Collections are registered in
// vec_collections so the table names never derive from user input.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger

	mu          sync.Mutex
	collections map[string]*Collection
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if c.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_collections (
			slot INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:          db,
		dimensions:  c.Dimensions,
		logger:      logger,
		collections: make(map[string]*Collection),
	}, nil
}

// GetOrCreateCollection registers the collection and creates its tables.
func (d *Driver) GetOrCreateCollection(ctx context.Context, name string) (vector.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, vector.ErrInvalidCollection
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c, nil
	}

	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO vec_collections(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name,
	); err != nil {
		return nil, fmt.Errorf("registering collection %q: %w", name, err)
	}

	var slot int64
	if err := d.db.QueryRowContext(ctx,
		`SELECT slot FROM vec_collections WHERE name = ?`, name,
	).Scan(&slot); err != nil {
		return nil, fmt.Errorf("resolving collection %q: %w", name, err)
	}

	c := &Collection{
		driver:   d,
		name:     name,
		docTable: fmt.Sprintf("vec_documents_%d", slot),
		vecTable: fmt.Sprintf("vec_embeddings_%d", slot),
	}

	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			document TEXT NOT NULL DEFAULT ''
		)
	`, c.docTable)); err != nil {
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])`,
		c.vecTable, d.dimensions,
	)); err != nil {
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	d.collections[name] = c
	d.logger.Debug("sqlite-vec collection ready",
		zap.String("collection", name),
		zap.Int64("slot", slot),
	)
	return c, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Collection is a sqlite-vec backed vector.Collection.
type Collection struct {
	driver   *Driver
	name     string
	docTable string
	vecTable string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Upsert stores records with their embeddings.
// If a record with the same ID already exists, it is replaced.
func (c *Collection) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := c.driver.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if uint(len(r.Embedding)) != c.driver.dimensions {
			return fmt.Errorf("%w: record %s has %d dimensions, want %d",
				vector.ErrEmbedding, r.ID, len(r.Embedding), c.driver.dimensions)
		}
		embBlob := serializeFloat32(r.Embedding)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM %s WHERE doc_id = ?`, c.docTable), r.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET document = ? WHERE rowid = ?`, c.docTable),
				r.Document, existingRowID,
			); err != nil {
				return fmt.Errorf("updating record %s: %w", r.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, c.vecTable), existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for record %s: %w", r.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, c.vecTable),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for record %s: %w", r.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(doc_id, document) VALUES (?, ?)`, c.docTable),
				r.ID, r.Document,
			)
			if err != nil {
				return fmt.Errorf("inserting record %s: %w", r.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for record %s: %w", r.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, c.vecTable),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for record %s: %w", r.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	c.driver.logger.Debug("upserted records to sqlite-vec",
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

	rows, err := c.driver.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			d.doc_id,
			d.document,
			ve.distance
		FROM %s ve
		INNER JOIN %s d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, c.vecTable, c.docTable), serializeFloat32(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var id, document string
		var distance float64
		if err := rows.Scan(&id, &document, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, vector.QueryResult{
			Record: vector.Record{ID: id, Document: document},
			Score:  float32(1.0 / (1.0 + distance)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	c.driver.logger.Debug("queried sqlite-vec",
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

	tx, err := c.driver.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM %s WHERE doc_id IN (%s)`, c.docTable, inClause), args...,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, c.vecTable), rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE doc_id IN (%s)`, c.docTable, inClause), args...,
	); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	c.driver.logger.Debug("deleted records from sqlite-vec",
		zap.String("collection", c.name),
		zap.Int("count", len(ids)),
	)
	return nil
}

var (
	_ vector.Driver     = (*Driver)(nil)
	_ vector.Collection = (*Collection)(nil)
)
