package generator

import (
	"fmt"
	"strings"

	"github.com/kinnrichard/zerogen/schema"
)

// ColumnType is the client-side column kind a native type maps to.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeJSON    ColumnType = "json"
)

// TypeMapper translates native Postgres types into client column types.
// Pure lookup, no I/O. Custom entries (keyed by data type or udt name)
// win over the built-ins; anything unrecognized falls back to string, so
// an exotic column never fails a run.
type TypeMapper struct {
	Custom map[string]string
}

var defaultTypeMappings = map[string]ColumnType{
	// identifiers and string-likes
	"uuid":              TypeString,
	"text":              TypeString,
	"citext":            TypeString,
	"character varying": TypeString,
	"varchar":           TypeString,
	"character":         TypeString,
	"char":              TypeString,
	"bpchar":            TypeString,
	"inet":              TypeString,
	"bytea":             TypeString,

	// integers, decimals, money
	"smallint":         TypeNumber,
	"integer":          TypeNumber,
	"bigint":           TypeNumber,
	"int2":             TypeNumber,
	"int4":             TypeNumber,
	"int8":             TypeNumber,
	"numeric":          TypeNumber,
	"decimal":          TypeNumber,
	"real":             TypeNumber,
	"double precision": TypeNumber,
	"float4":           TypeNumber,
	"float8":           TypeNumber,
	"money":            TypeNumber,

	// temporals surface as epoch milliseconds on the client
	"timestamp without time zone": TypeNumber,
	"timestamp with time zone":    TypeNumber,
	"timestamp":                   TypeNumber,
	"timestamptz":                 TypeNumber,
	"date":                        TypeNumber,
	"time without time zone":      TypeNumber,
	"time with time zone":         TypeNumber,

	"boolean": TypeBoolean,
	"bool":    TypeBoolean,

	"json":  TypeJSON,
	"jsonb": TypeJSON,
	"ARRAY": TypeJSON,
}

// MapColumn maps one column to its client column kind.
func (m TypeMapper) MapColumn(c schema.Column) ColumnType {
	if m.Custom != nil {
		if t, ok := m.Custom[c.UDTName]; ok {
			return ColumnType(t)
		}
		if t, ok := m.Custom[c.DataType]; ok {
			return ColumnType(t)
		}
	}

	if c.Enum {
		return TypeString
	}
	if t, ok := defaultTypeMappings[c.DataType]; ok {
		return t
	}
	if t, ok := defaultTypeMappings[c.UDTName]; ok {
		return t
	}
	// Array udt names carry a leading underscore.
	if strings.HasPrefix(c.UDTName, "_") {
		return TypeJSON
	}

	return TypeString
}

// MapPrimaryKey maps a key column to its client key kind. The mapping
// matches MapColumn except that enum-backed keys stay plain strings:
// rows are addressed by value, never through a literal union.
func (m TypeMapper) MapPrimaryKey(c schema.Column) ColumnType {
	c.Enum = false
	c.EnumValues = nil
	return m.MapColumn(c)
}

// TSType is the TypeScript projection of a column, as used by the row
// interfaces. Enum columns project to a literal union.
func (m TypeMapper) TSType(c schema.Column) string {
	if c.Enum && len(c.EnumValues) > 0 {
		return literalUnion(c.EnumValues)
	}
	return tsName(m.MapColumn(c))
}

// KeyTSType is the TypeScript projection of a primary key column.
func (m TypeMapper) KeyTSType(c schema.Column) string {
	return tsName(m.MapPrimaryKey(c))
}

func tsName(kind ColumnType) string {
	switch kind {
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeJSON:
		return "unknown"
	default:
		return "string"
	}
}

func literalUnion(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("'%s'", v)
	}
	return strings.Join(parts, " | ")
}
