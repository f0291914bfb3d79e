package generator

import (
	"fmt"
	"strings"
)

// TypesSource emits one row interface per table, mirroring the column
// set. It stays independent of the schema module so consumers can type
// data without pulling in the runtime schema.
func (s *SchemaSynthesizer) TypesSource() string {
	var b strings.Builder
	b.WriteString(fileBanner("Row types mirroring the introspected tables."))

	for _, t := range s.snap.Tables {
		b.WriteString("\n")
		fmt.Fprintf(&b, "export interface %s {\n", rowTypeName(t.Name))
		for _, c := range t.Columns {
			ts := s.tm.TSType(c)
			if c.Nullable {
				ts += " | null"
			}
			fmt.Fprintf(&b, "  %s: %s;\n", c.Name, ts)
		}
		b.WriteString("}\n")
	}

	return b.String()
}
