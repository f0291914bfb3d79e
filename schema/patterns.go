package schema

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// PatternKind discriminates the pattern union.
type PatternKind string

const (
	KindSoftDeletion PatternKind = "soft_deletion"
	KindPositioning  PatternKind = "positioning"
	KindEnums        PatternKind = "enums"
	KindPolymorphic  PatternKind = "polymorphic"
)

// Pattern is one detected per-table domain pattern. The concrete types
// below are the only implementations; generators switch over Kind and
// assert to reach the fields.
type Pattern interface {
	Kind() PatternKind
	Signature() string
}

// MoveOp names one positioning operation.
type MoveOp string

const (
	MoveBefore   MoveOp = "move_before"
	MoveAfter    MoveOp = "move_after"
	MoveToTop    MoveOp = "move_to_top"
	MoveToBottom MoveOp = "move_to_bottom"
)

// AllMoveOps is the default op set when a model does not narrow it.
var AllMoveOps = []MoveOp{MoveBefore, MoveAfter, MoveToTop, MoveToBottom}

// ValidMoveOp reports whether s names a known move operation.
func ValidMoveOp(s string) bool {
	switch MoveOp(s) {
	case MoveBefore, MoveAfter, MoveToTop, MoveToBottom:
		return true
	}
	return false
}

// SoftDeletion marks a table whose rows are tombstoned through a
// timestamp column instead of being removed.
type SoftDeletion struct {
	Column string
}

func (p SoftDeletion) Kind() PatternKind { return KindSoftDeletion }
func (p SoftDeletion) Signature() string {
	return fmt.Sprintf("soft_deletion(%s)", p.Column)
}

// Positioning marks a table ordered by an integer column.
type Positioning struct {
	Column string
	Ops    []MoveOp
}

func (p Positioning) Kind() PatternKind { return KindPositioning }
func (p Positioning) Signature() string {
	ops := make([]string, len(p.Ops))
	for i, op := range p.Ops {
		ops[i] = string(op)
	}
	return fmt.Sprintf("positioning(%s:%s)", p.Column, strings.Join(ops, ","))
}

// EnumColumn is one enum-backed column with its value set.
type EnumColumn struct {
	Name   string
	Values []string
}

// Enums marks the enum-backed columns of a table.
type Enums struct {
	Columns []EnumColumn
}

func (p Enums) Kind() PatternKind { return KindEnums }
func (p Enums) Signature() string {
	parts := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		parts[i] = fmt.Sprintf("%s:%s", c.Name, strings.Join(c.Values, "|"))
	}
	return fmt.Sprintf("enums(%s)", strings.Join(parts, ","))
}

// Polymorphic marks the polymorphic belongs-to associations of a table.
type Polymorphic struct {
	Associations []string
}

func (p Polymorphic) Kind() PatternKind { return KindPolymorphic }
func (p Polymorphic) Signature() string {
	return fmt.Sprintf("polymorphic(%s)", strings.Join(p.Associations, ","))
}

// PatternSet is the detected patterns of one table, in fixed kind order.
type PatternSet []Pattern

func (ps PatternSet) Has(kind PatternKind) bool {
	for _, p := range ps {
		if p.Kind() == kind {
			return true
		}
	}
	return false
}

func (ps PatternSet) Get(kind PatternKind) (Pattern, bool) {
	for _, p := range ps {
		if p.Kind() == kind {
			return p, true
		}
	}
	return nil, false
}

// Fingerprint is the structural signature regeneration decisions key on.
// It hashes the pattern signatures only; timestamps never participate, so
// re-running against an unchanged schema yields an unchanged fingerprint.
func (ps PatternSet) Fingerprint() string {
	sigs := make([]string, len(ps))
	for i, p := range ps {
		sigs[i] = p.Signature()
	}
	hash := sha256.Sum256([]byte(strings.Join(sigs, ";")))
	return fmt.Sprintf("%x", hash)
}

var tombstoneColumns = []string{"discarded_at", "deleted_at"}

// DetectPatterns derives the pattern set for a table. Detection is pure
// and recomputed every run; nothing is persisted. The model may be nil,
// which limits detection to column-shaped patterns.
func DetectPatterns(t Table, m *Model) PatternSet {
	var ps PatternSet

	if col := tombstoneColumn(t); col != "" {
		ps = append(ps, SoftDeletion{Column: col})
	}

	if pos := positioning(t, m); pos != nil {
		ps = append(ps, *pos)
	}

	if enums := enumColumns(t, m); len(enums) > 0 {
		ps = append(ps, Enums{Columns: enums})
	}

	if m != nil {
		var polys []string
		for _, a := range m.BelongsTo {
			if a.Polymorphic && t.HasColumn(a.ForeignKey) {
				polys = append(polys, a.Name)
			}
		}
		if len(polys) > 0 {
			ps = append(ps, Polymorphic{Associations: polys})
		}
	}

	return ps
}

func tombstoneColumn(t Table) string {
	for _, name := range tombstoneColumns {
		if c := t.Column(name); c != nil && isTimestamp(*c) {
			return name
		}
	}
	return ""
}

func positioning(t Table, m *Model) *Positioning {
	column := "position"
	ops := AllMoveOps
	if m != nil && m.Positioning != nil {
		if m.Positioning.Column != "" {
			column = m.Positioning.Column
		}
		if len(m.Positioning.Ops) > 0 {
			ops = m.Positioning.Ops
		}
	}

	c := t.Column(column)
	if c == nil || !isInteger(*c) {
		return nil
	}
	return &Positioning{Column: column, Ops: ops}
}

// enumColumns merges native enum columns with the model's declared
// enumerations. Declarations win on values; columns absent from the
// table are skipped silently.
func enumColumns(t Table, m *Model) []EnumColumn {
	values := map[string][]string{}
	for _, c := range t.Columns {
		if c.Enum && len(c.EnumValues) > 0 {
			values[c.Name] = c.EnumValues
		}
	}
	if m != nil {
		for col, vals := range m.EnumDecls {
			if t.HasColumn(col) {
				values[col] = vals
			}
		}
	}
	if len(values) == 0 {
		return nil
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	enums := make([]EnumColumn, len(names))
	for i, name := range names {
		enums[i] = EnumColumn{Name: name, Values: values[name]}
	}
	return enums
}

func isTimestamp(c Column) bool {
	return strings.HasPrefix(c.DataType, "timestamp") ||
		c.UDTName == "timestamp" || c.UDTName == "timestamptz"
}

func isInteger(c Column) bool {
	switch c.DataType {
	case "integer", "smallint", "bigint":
		return true
	}
	switch c.UDTName {
	case "int2", "int4", "int8":
		return true
	}
	return false
}
