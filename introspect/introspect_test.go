package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinnrichard/zerogen/registry"
	"github.com/kinnrichard/zerogen/schema"
)

func TestIsInfrastructure(t *testing.T) {
	infra := []string{
		"schema_migrations",
		"ar_internal_metadata",
		"versions",
		"solid_cache_entries",
		"solid_cable_messages",
		"active_storage_blobs",
		"active_storage_attachments",
		"active_storage_variant_records",
		"solid_queue_jobs",
		"solid_queue_ready_executions",
		"solid_queue_recurring_tasks",
	}
	for _, name := range infra {
		assert.True(t, IsInfrastructure(name), name)
	}

	domain := []string{"jobs", "tasks", "clients", "notes", "solid_widgets", "queue_items"}
	for _, name := range domain {
		assert.False(t, IsInfrastructure(name), name)
	}
}

func TestResolveModels(t *testing.T) {
	tables := []schema.Table{
		{Name: "jobs", Columns: []schema.Column{
			{Name: "id", DataType: "uuid", UDTName: "uuid", IsPrimaryKey: true},
			{Name: "status", DataType: "text", UDTName: "text"},
		}},
		{Name: "tasks", Columns: []schema.Column{
			{Name: "id", DataType: "uuid", UDTName: "uuid", IsPrimaryKey: true},
		}},
	}

	reg, err := registry.Parse([]byte(`
version: 1
models:
  - name: Job
    enums:
      status: [open, closed]
  - name: Task
  - name: Ghost
`))
	require.NoError(t, err)

	models, warnings := resolveModels(tables, reg)

	assert.Len(t, models, 2)
	_, ok := models["jobs"]
	assert.True(t, ok)
	_, ok = models["tasks"]
	assert.True(t, ok)

	// The unmatched model is a warning, never an error.
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Ghost")
	assert.Contains(t, warnings[0], "ghosts")

	// Enum declarations are stamped onto the live columns.
	status := tables[0].Column("status")
	require.NotNil(t, status)
	assert.True(t, status.Enum)
	assert.Equal(t, []string{"open", "closed"}, status.EnumValues)
}

func TestResolveModelsNilRegistry(t *testing.T) {
	models, warnings := resolveModels([]schema.Table{{Name: "jobs"}}, nil)
	assert.Empty(t, models)
	assert.Empty(t, warnings)
}

func TestColumnCommentLookup(t *testing.T) {
	// ordinal_position renumbers after a dropped column; comments must
	// be fetched through pg_attribute.attnum resolved by name
	assert.Contains(t, columnsQuery, "SELECT a.attnum")
	assert.Contains(t, columnsQuery, "a.attname = c.column_name")
	assert.NotContains(t, columnsQuery, "col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position)")
}

func TestSplitIndexColumns(t *testing.T) {
	assert.Equal(t, []string{"job_id", "position"}, splitIndexColumns("job_id, position"))
	assert.Equal(t, []string{"id"}, splitIndexColumns("id"))
}
