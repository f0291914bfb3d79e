package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kinnrichard/zerogen/schema"
	"github.com/kinnrichard/zerogen/utils"
)

// polymorphicTargets lists the candidate target tables per polymorphic
// association name. The catalog cannot recover these (the discriminator
// column only holds class names at runtime), so the fan-out is a fixed
// lookup matching how the application wires those associations.
var polymorphicTargets = map[string][]string{
	"notable":     {"jobs", "tasks", "clients"},
	"loggable":    {"jobs", "tasks", "clients", "people", "devices"},
	"schedulable": {"jobs", "tasks"},
}

// SchemaSynthesizer emits the schema and row-type aggregates for a
// snapshot. Emission is deterministic: tables arrive in name order and
// everything else derives from them, so the same snapshot always yields
// byte-identical sources.
type SchemaSynthesizer struct {
	snap *schema.Snapshot
	opts Options
	tm   TypeMapper
}

func NewSchemaSynthesizer(snap *schema.Snapshot, opts Options) *SchemaSynthesizer {
	return &SchemaSynthesizer{
		snap: snap,
		opts: opts,
		tm:   TypeMapper{Custom: opts.TypeOverrides},
	}
}

type relEntry struct {
	name      string
	kind      string // one or many
	source    string
	dest      string
	destTable string
}

// SchemaSource composes the full schema module: table definitions,
// relationship blocks, and the createSchema export.
func (s *SchemaSynthesizer) SchemaSource() string {
	used := map[string]bool{"createSchema": true, "table": true}

	var constNames []string
	var tableDefs []string
	for _, t := range s.snap.Tables {
		constNames = append(constNames, tableConstName(t.Name))
		tableDefs = append(tableDefs, s.tableDefinition(t, used))
	}

	var relNames []string
	var relBlocks []string
	for _, t := range s.snap.Tables {
		entries := s.relationshipEntries(t)
		if len(entries) == 0 {
			continue
		}
		used["relationships"] = true
		name := tableConstName(t.Name) + "Relationships"
		relNames = append(relNames, name)
		relBlocks = append(relBlocks, relationshipBlock(name, tableConstName(t.Name), entries))
	}

	var b strings.Builder
	b.WriteString(fileBanner(
		"Client schema derived from the live database and the model",
		"registry. Regenerated on every run; hand edits do not survive.",
	))
	b.WriteString("\n")

	imports := make([]string, 0, len(used))
	for name := range used {
		imports = append(imports, name)
	}
	sort.Strings(imports)
	b.WriteString("import {\n")
	for _, imp := range imports {
		fmt.Fprintf(&b, "  %s,\n", imp)
	}
	b.WriteString("} from '@rocicorp/zero';\n\n")

	for _, def := range tableDefs {
		b.WriteString(def)
		b.WriteString("\n")
	}
	for _, rel := range relBlocks {
		b.WriteString(rel)
		b.WriteString("\n")
	}

	b.WriteString("export const schema = createSchema({\n")
	b.WriteString("  tables: [\n")
	for _, name := range constNames {
		fmt.Fprintf(&b, "    %s,\n", name)
	}
	b.WriteString("  ],\n")
	if len(relNames) > 0 {
		b.WriteString("  relationships: [\n")
		for _, name := range relNames {
			fmt.Fprintf(&b, "    %s,\n", name)
		}
		b.WriteString("  ],\n")
	}
	b.WriteString("});\n")
	b.WriteString("\n")
	b.WriteString("export type Schema = typeof schema;\n")

	return b.String()
}

func (s *SchemaSynthesizer) tableDefinition(t schema.Table, used map[string]bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "const %s = table('%s')\n", tableConstName(t.Name), t.Name)
	b.WriteString("  .columns({\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "    %s: %s,\n", c.Name, s.columnConstructor(c, used))
	}
	if pk := t.PrimaryKey(); len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, col := range pk {
			quoted[i] = fmt.Sprintf("'%s'", col)
		}
		b.WriteString("  })\n")
		fmt.Fprintf(&b, "  .primaryKey(%s);\n", strings.Join(quoted, ", "))
	} else {
		b.WriteString("  });\n")
	}
	return b.String()
}

func (s *SchemaSynthesizer) columnConstructor(c schema.Column, used map[string]bool) string {
	var ctor string
	if c.Enum && len(c.EnumValues) > 0 {
		used["enumeration"] = true
		ctor = fmt.Sprintf("enumeration<%s>()", literalUnion(c.EnumValues))
	} else {
		kind := s.tm.MapColumn(c)
		used[string(kind)] = true
		ctor = string(kind) + "()"
	}
	if c.Nullable {
		ctor += ".optional()"
	}
	return ctor
}

// relationshipEntries derives the relationship block for one table from
// its model. Associations whose target table, foreign key column, or
// target primary key is missing are skipped without comment; the
// snapshot is the single source of truth for what can be referenced.
func (s *SchemaSynthesizer) relationshipEntries(t schema.Table) []relEntry {
	m, ok := s.snap.ModelFor(t.Name)
	if !ok {
		return nil
	}

	var entries []relEntry
	seen := map[string]bool{}
	add := func(e relEntry) {
		if e.name == "" || seen[e.name] {
			return
		}
		seen[e.name] = true
		entries = append(entries, e)
	}

	for _, a := range m.BelongsTo {
		if a.Polymorphic {
			for _, e := range s.fanOut(t, a) {
				add(e)
			}
			continue
		}

		target := s.snap.Table(a.TargetTable)
		if target == nil || !t.HasColumn(a.ForeignKey) {
			continue
		}
		pk := target.PK()
		if pk == nil {
			continue
		}
		add(relEntry{
			name:      utils.Camel(a.Name),
			kind:      "one",
			source:    a.ForeignKey,
			dest:      pk.Name,
			destTable: target.Name,
		})

		// A self-referential parent association implies the inverse:
		// every node can reach its children.
		if a.TargetTable == t.Name && a.Name == "parent" {
			if own := t.PK(); own != nil {
				add(relEntry{
					name:      "children",
					kind:      "many",
					source:    own.Name,
					dest:      a.ForeignKey,
					destTable: t.Name,
				})
			}
		}
	}

	for _, a := range m.HasMany {
		if a.Through {
			continue
		}
		target := s.snap.Table(a.TargetTable)
		own := t.PK()
		if target == nil || own == nil || !target.HasColumn(a.ForeignKey) {
			continue
		}
		add(relEntry{
			name:      utils.Camel(a.Name),
			kind:      "many",
			source:    own.Name,
			dest:      a.ForeignKey,
			destTable: target.Name,
		})
	}

	for _, a := range m.HasOne {
		target := s.snap.Table(a.TargetTable)
		own := t.PK()
		if target == nil || own == nil || !target.HasColumn(a.ForeignKey) {
			continue
		}
		add(relEntry{
			name:      utils.Camel(a.Name),
			kind:      "one",
			source:    own.Name,
			dest:      a.ForeignKey,
			destTable: target.Name,
		})
	}

	return entries
}

// fanOut expands a polymorphic belongs-to into one synthetic
// single-target relationship per candidate present in the snapshot,
// named by concatenation: notable over jobs becomes notableJob.
func (s *SchemaSynthesizer) fanOut(t schema.Table, a schema.Association) []relEntry {
	if !t.HasColumn(a.ForeignKey) {
		return nil
	}

	var entries []relEntry
	for _, tableName := range polymorphicTargets[a.Name] {
		target := s.snap.Table(tableName)
		if target == nil {
			continue
		}
		pk := target.PK()
		if pk == nil {
			continue
		}
		entries = append(entries, relEntry{
			name:      utils.Camel(a.Name) + utils.Pascal(utils.Singular(tableName)),
			kind:      "one",
			source:    a.ForeignKey,
			dest:      pk.Name,
			destTable: tableName,
		})
	}
	return entries
}

func relationshipBlock(name, constName string, entries []relEntry) string {
	usesOne, usesMany := false, false
	for _, e := range entries {
		if e.kind == "one" {
			usesOne = true
		} else {
			usesMany = true
		}
	}
	params := "({ one, many })"
	switch {
	case usesOne && !usesMany:
		params = "({ one })"
	case usesMany && !usesOne:
		params = "({ many })"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "const %s = relationships(%s, %s => ({\n", name, constName, params)
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s: %s({\n", e.name, e.kind)
		fmt.Fprintf(&b, "    sourceField: ['%s'],\n", e.source)
		fmt.Fprintf(&b, "    destField: ['%s'],\n", e.dest)
		fmt.Fprintf(&b, "    destSchema: %s,\n", tableConstName(e.destTable))
		b.WriteString("  }),\n")
	}
	b.WriteString("}));\n")
	return b.String()
}
