package schema

// Column is one introspected database column.
type Column struct {
	Name         string
	DataType     string // normalized type from information_schema
	UDTName      string // underlying type name: uuid, int4, enum type names, ...
	Nullable     bool
	Default      *string
	IsPrimaryKey bool
	IsUnique     bool
	Comment      *string
	Enum         bool
	EnumValues   []string
	Ordinal      int
}

type ForeignKey struct {
	ConstraintName   string
	Column           string
	ReferencesTable  string
	ReferencesColumn string
	OnDelete         string // CASCADE, SET NULL, RESTRICT, ...
	OnUpdate         string
}

type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Type    string // btree, hash, gin, ...
}

type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// PrimaryKey returns the primary key column names in ordinal order.
func (t *Table) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// PK returns the first primary key column, or nil when the table has none.
func (t *Table) PK() *Column {
	for i := range t.Columns {
		if t.Columns[i].IsPrimaryKey {
			return &t.Columns[i]
		}
	}
	return nil
}

// ForeignKeyOn returns the foreign key constraint covering the column, or nil.
func (t *Table) ForeignKeyOn(column string) *ForeignKey {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Column == column {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}

// Association is one declared model association.
type Association struct {
	Name        string
	TargetTable string // empty for polymorphic belongs-to
	ForeignKey  string
	Through     bool
	Polymorphic bool
	Dependent   string // destroy, delete_all, nullify, ...
}

// PositioningDecl narrows the positioning pattern for one model: which
// column orders the rows and which move operations are exposed.
type PositioningDecl struct {
	Column string
	Ops    []MoveOp
}

// Model is a registered application model, resolved against the catalog.
// The registry is static configuration loaded at startup; nothing here is
// discovered by reflection.
type Model struct {
	Name        string
	TableName   string
	BelongsTo   []Association
	HasMany     []Association
	HasOne      []Association
	EnumDecls   map[string][]string
	Positioning *PositioningDecl
}

// Snapshot is the full introspection result: catalog tables in stable
// (name) order plus the resolved model per table. Warnings carry
// resolution misses; they are informational and never fail a run.
type Snapshot struct {
	Tables   []Table
	Models   map[string]Model
	Warnings []string
}

func (s *Snapshot) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

func (s *Snapshot) ModelFor(table string) (Model, bool) {
	m, ok := s.Models[table]
	return m, ok
}
