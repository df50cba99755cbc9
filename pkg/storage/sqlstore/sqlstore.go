// Package sqlstore implements storage.ChunkStore over database/sql using
// ent's SQL builder and migrator. It is dialect-agnostic and is embedded by
// the sqlite and postgres drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/google/uuid"

	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/storage"
)

// Driver provides chunk storage over a *sql.DB.
type Driver struct {
	DB      *sql.DB
	dialect string
}

// Open wraps db and migrates the chunk schema for the given ent dialect.
func Open(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	drv := entsql.OpenDB(dialectName, db)

	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	// Append-only: new tables, columns and indexes.
	if err := migrate.Create(ctx, Tables...); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{DB: db, dialect: dialectName}, nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect)
}

// CreateMany inserts chunks in a single statement inside a transaction.
func (d *Driver) CreateMany(ctx context.Context, chunks []material.Chunk) ([]string, error) {
	if err := storage.ValidateChunks(chunks); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	now := time.Now().UTC()
	ids := make([]string, len(chunks))

	insert := d.builder().Insert(ChunksTableName).Columns(selectColumns...)
	for i, c := range chunks {
		ids[i] = uuid.NewString()

		var fileID, linkID any
		switch c.Source.Kind {
		case material.KindFile:
			fileID = c.Source.ID
		case material.KindLink:
			linkID = c.Source.ID
		}
		insert.Values(ids[i], c.RecordID, c.MaterialID, c.Text, fileID, linkID, c.Index, now)
	}

	query, args := insert.Query()

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return ids, nil
}

// FindByFile returns the chunks of a file.
func (d *Driver) FindByFile(ctx context.Context, fileID string) ([]material.Chunk, error) {
	return d.find(ctx, "file_id", fileID)
}

// FindByLink returns the chunks of a link.
func (d *Driver) FindByLink(ctx context.Context, linkID string) ([]material.Chunk, error) {
	return d.find(ctx, "link_id", linkID)
}

func (d *Driver) find(ctx context.Context, column, id string) ([]material.Chunk, error) {
	b := d.builder()
	query, args := b.Select(selectColumns...).
		From(b.Table(ChunksTableName)).
		Where(entsql.EQ(column, id)).
		OrderBy("created_at", "chunk_index").
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	out := []material.Chunk{}
	for rows.Next() {
		var (
			c              material.Chunk
			fileID, linkID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.RecordID, &c.MaterialID, &c.Text, &fileID, &linkID, &c.Index, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		switch {
		case fileID.Valid:
			c.Source = material.FileRef(fileID.String)
		case linkID.Valid:
			c.Source = material.LinkRef(linkID.String)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}

// DeleteBySource removes the chunks of ref.
func (d *Driver) DeleteBySource(ctx context.Context, ref material.SourceRef) (int, error) {
	if err := ref.Validate(); err != nil {
		return 0, err
	}

	column := "file_id"
	if ref.Kind == material.KindLink {
		column = "link_id"
	}

	query, args := d.builder().Delete(ChunksTableName).Where(entsql.EQ(column, ref.ID)).Query()
	res, err := d.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %s: %w", ref, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

var _ storage.ChunkStore = (*Driver)(nil)
