package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(name, dataType, udt string) Column {
	return Column{Name: name, DataType: dataType, UDTName: udt}
}

func tasksTable() Table {
	return Table{
		Name: "tasks",
		Columns: []Column{
			{Name: "id", DataType: "uuid", UDTName: "uuid", IsPrimaryKey: true},
			col("job_id", "uuid", "uuid"),
			col("title", "text", "text"),
			col("position", "integer", "int4"),
			col("discarded_at", "timestamp without time zone", "timestamp"),
		},
	}
}

func TestDetectPatterns(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		model *Model
		kinds []PatternKind
	}{
		{
			name:  "bare table has no patterns",
			table: Table{Name: "settings", Columns: []Column{col("id", "uuid", "uuid"), col("key", "text", "text")}},
			kinds: nil,
		},
		{
			name:  "tombstone plus position",
			table: tasksTable(),
			kinds: []PatternKind{KindSoftDeletion, KindPositioning},
		},
		{
			name: "deleted_at counts as tombstone",
			table: Table{Name: "devices", Columns: []Column{
				col("id", "uuid", "uuid"),
				col("deleted_at", "timestamp with time zone", "timestamptz"),
			}},
			kinds: []PatternKind{KindSoftDeletion},
		},
		{
			name: "text position column is not positioning",
			table: Table{Name: "pages", Columns: []Column{
				col("id", "uuid", "uuid"),
				col("position", "text", "text"),
			}},
			kinds: nil,
		},
		{
			name: "declared enum",
			table: Table{Name: "jobs", Columns: []Column{
				col("id", "uuid", "uuid"),
				col("status", "text", "text"),
			}},
			model: &Model{
				Name:      "Job",
				TableName: "jobs",
				EnumDecls: map[string][]string{"status": {"open", "in_progress", "completed"}},
			},
			kinds: []PatternKind{KindEnums},
		},
		{
			name: "polymorphic belongs_to",
			table: Table{Name: "notes", Columns: []Column{
				col("id", "uuid", "uuid"),
				col("notable_id", "uuid", "uuid"),
				col("notable_type", "text", "text"),
			}},
			model: &Model{
				Name:      "Note",
				TableName: "notes",
				BelongsTo: []Association{{Name: "notable", ForeignKey: "notable_id", Polymorphic: true}},
			},
			kinds: []PatternKind{KindPolymorphic},
		},
		{
			name: "polymorphic without fk column is skipped",
			table: Table{Name: "notes", Columns: []Column{
				col("id", "uuid", "uuid"),
			}},
			model: &Model{
				Name:      "Note",
				TableName: "notes",
				BelongsTo: []Association{{Name: "notable", ForeignKey: "notable_id", Polymorphic: true}},
			},
			kinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := DetectPatterns(tt.table, tt.model)
			got := make([]PatternKind, 0, len(ps))
			for _, p := range ps {
				got = append(got, p.Kind())
			}
			if tt.kinds == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.kinds, got)
			}
		})
	}
}

func TestDetectPatternsTombstonePrefersDiscardedAt(t *testing.T) {
	table := Table{Name: "tasks", Columns: []Column{
		col("discarded_at", "timestamp without time zone", "timestamp"),
		col("deleted_at", "timestamp without time zone", "timestamp"),
	}}
	ps := DetectPatterns(table, nil)
	p, ok := ps.Get(KindSoftDeletion)
	require.True(t, ok)
	assert.Equal(t, "discarded_at", p.(SoftDeletion).Column)
}

func TestDetectPatternsPositioningOpsNarrowedByModel(t *testing.T) {
	table := tasksTable()
	model := &Model{
		Name:        "Task",
		TableName:   "tasks",
		Positioning: &PositioningDecl{Ops: []MoveOp{MoveToTop, MoveToBottom}},
	}

	ps := DetectPatterns(table, model)
	p, ok := ps.Get(KindPositioning)
	require.True(t, ok)
	pos := p.(Positioning)
	assert.Equal(t, "position", pos.Column)
	assert.Equal(t, []MoveOp{MoveToTop, MoveToBottom}, pos.Ops)
}

func TestDetectPatternsEnumDeclarationWinsOverNativeValues(t *testing.T) {
	table := Table{Name: "jobs", Columns: []Column{
		{Name: "status", DataType: "USER-DEFINED", UDTName: "job_status", Enum: true, EnumValues: []string{"old_a", "old_b"}},
	}}
	model := &Model{
		Name:      "Job",
		TableName: "jobs",
		EnumDecls: map[string][]string{"status": {"open", "closed"}},
	}

	ps := DetectPatterns(table, model)
	p, ok := ps.Get(KindEnums)
	require.True(t, ok)
	require.Len(t, p.(Enums).Columns, 1)
	assert.Equal(t, []string{"open", "closed"}, p.(Enums).Columns[0].Values)
}

func TestPatternSetFingerprint(t *testing.T) {
	table := tasksTable()

	a := DetectPatterns(table, nil).Fingerprint()
	b := DetectPatterns(table, nil).Fingerprint()
	assert.Equal(t, a, b, "same structure must fingerprint identically")

	// Dropping the tombstone column is a structural change.
	trimmed := table
	trimmed.Columns = trimmed.Columns[:len(trimmed.Columns)-1]
	c := DetectPatterns(trimmed, nil).Fingerprint()
	assert.NotEqual(t, a, c)

	// A narrowed op subset changes the fingerprint too.
	model := &Model{Name: "Task", TableName: "tasks", Positioning: &PositioningDecl{Ops: []MoveOp{MoveBefore}}}
	d := DetectPatterns(table, model).Fingerprint()
	assert.NotEqual(t, a, d)
}

func TestPatternSignatures(t *testing.T) {
	assert.Equal(t, "soft_deletion(discarded_at)", SoftDeletion{Column: "discarded_at"}.Signature())
	assert.Equal(t, "positioning(position:move_before,move_after)",
		Positioning{Column: "position", Ops: []MoveOp{MoveBefore, MoveAfter}}.Signature())
	assert.Equal(t, "enums(status:open|closed)",
		Enums{Columns: []EnumColumn{{Name: "status", Values: []string{"open", "closed"}}}}.Signature())
	assert.Equal(t, "polymorphic(notable)", Polymorphic{Associations: []string{"notable"}}.Signature())
}

func TestValidMoveOp(t *testing.T) {
	assert.True(t, ValidMoveOp("move_before"))
	assert.True(t, ValidMoveOp("move_to_bottom"))
	assert.False(t, ValidMoveOp("shuffle"))
}
