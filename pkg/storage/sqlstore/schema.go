package sqlstore

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// ChunksTableName is the table holding material chunks.
const ChunksTableName = "material_chunks"

var (
	chunksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "record_id", Type: field.TypeString, Default: ""},
		{Name: "material_id", Type: field.TypeString, Default: ""},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "file_id", Type: field.TypeString, Nullable: true},
		{Name: "link_id", Type: field.TypeString, Nullable: true},
		{Name: "chunk_index", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeTime},
	}

	chunksTable = &schema.Table{
		Name:       ChunksTableName,
		Columns:    chunksColumns,
		PrimaryKey: []*schema.Column{chunksColumns[0]},
		Indexes: []*schema.Index{
			{Name: "materialchunk_file_id", Columns: []*schema.Column{chunksColumns[4]}},
			{Name: "materialchunk_link_id", Columns: []*schema.Column{chunksColumns[5]}},
			{Name: "materialchunk_material_id", Columns: []*schema.Column{chunksColumns[2]}},
		},
	}

	// Tables holds every table managed by the store.
	Tables = []*schema.Table{chunksTable}
)

var selectColumns = []string{
	"id", "record_id", "material_id", "text", "file_id", "link_id", "chunk_index", "created_at",
}
