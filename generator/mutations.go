package generator

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kinnrichard/zerogen/manifest"
	"github.com/kinnrichard/zerogen/schema"
	"github.com/kinnrichard/zerogen/utils"
)

// MutationGenerator emits the per-table mutator files. Tables are
// independent: each runs its own skip/conflict/write cycle, and one
// table failing never stops the others.
type MutationGenerator struct {
	snap *schema.Snapshot
	opts Options
	man  *manifest.Manifest
	tm   TypeMapper

	manifestMu sync.Mutex
}

func NewMutationGenerator(snap *schema.Snapshot, opts Options, man *manifest.Manifest) *MutationGenerator {
	return &MutationGenerator{
		snap: snap,
		opts: opts,
		man:  man,
		tm:   TypeMapper{Custom: opts.TypeOverrides},
	}
}

// Generate runs the per-table cycle across the snapshot, at most
// opts.Workers tables at a time. The returned error only reports
// cancellation; per-table outcomes land in the summary.
func (g *MutationGenerator) Generate(ctx context.Context, sum *Summary) error {
	excluded := map[string]bool{}
	for _, name := range g.opts.ExcludedTables {
		excluded[name] = true
	}

	workers := g.opts.Workers
	if workers < 1 {
		workers = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for _, t := range g.snap.Tables {
		if excluded[t.Name] {
			sum.Add(TableResult{Table: t.Name, Action: ActionSkipped, Reason: "excluded by configuration"})
			continue
		}
		t := t
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.generateTable(t, sum)
			return nil
		})
	}

	return eg.Wait()
}

func (g *MutationGenerator) generateTable(t schema.Table, sum *Summary) {
	model, hasModel := g.snap.ModelFor(t.Name)
	var mp *schema.Model
	if hasModel {
		mp = &model
	}

	ps := schema.DetectPatterns(t, mp)
	fp := g.fingerprint(ps)

	if !g.opts.Force && !g.man.ShouldRegenerate(t.Name, fp) {
		sum.Add(TableResult{Table: t.Name, Action: ActionSkipped, Reason: "up to date"})
		return
	}
	if len(ps) == 0 && !hasModel {
		sum.Add(TableResult{Table: t.Name, Action: ActionSkipped, Reason: "no registered model and no detected patterns"})
		return
	}

	entity := utils.Singular(t.Name)
	ext := g.opts.ext()
	genPath := filepath.Join(g.opts.OutputDir, entity+".generated."+ext)
	customPath := filepath.Join(g.opts.OutputDir, entity+".custom."+ext)
	mainPath := filepath.Join(g.opts.OutputDir, entity+"."+ext)

	// A file on a generated path that lost its banner was edited by
	// hand. Detected before anything is written, so a conflicted table
	// leaves no partial output behind.
	if !g.opts.Force {
		for _, path := range []string{genPath, mainPath} {
			data, err := os.ReadFile(path)
			if err == nil && !HasGeneratedBanner(data) {
				sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: NewConflictError(t.Name, path)})
				return
			}
		}
	}

	genContent := g.generatedSource(t, ps, entity)
	mainContent := g.mainSource(t, entity)

	customExists := fileExists(customPath)
	files := []string{genPath}
	if !customExists {
		files = append(files, customPath)
	}
	files = append(files, mainPath)

	if g.opts.DryRun {
		sum.AddPreview(genPath, genContent)
		if !customExists {
			sum.AddPreview(customPath, g.customSource(t, entity))
		}
		sum.AddPreview(mainPath, mainContent)
		sum.Add(TableResult{Table: t.Name, Action: ActionGenerated, Files: files})
		return
	}

	if err := os.MkdirAll(g.opts.OutputDir, 0755); err != nil {
		sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: fmt.Errorf("creating output directory: %v", err)})
		return
	}

	genPrev, err := stashFile(genPath)
	if err != nil {
		sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: fmt.Errorf("reading %s: %v", genPath, err)})
		return
	}
	mainPrev, err := stashFile(mainPath)
	if err != nil {
		sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: fmt.Errorf("reading %s: %v", mainPath, err)})
		return
	}

	if err := os.WriteFile(genPath, []byte(genContent), 0644); err != nil {
		genPrev.restore()
		sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: fmt.Errorf("writing %s: %v", genPath, err)})
		return
	}

	customCreated := false
	if !customExists {
		created, err := createIfAbsent(customPath, g.customSource(t, entity))
		if err != nil {
			genPrev.restore()
			sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: fmt.Errorf("writing %s: %v", customPath, err)})
			return
		}
		customCreated = created
	}

	if err := os.WriteFile(mainPath, []byte(mainContent), 0644); err != nil {
		genPrev.restore()
		mainPrev.restore()
		if customCreated {
			os.Remove(customPath)
		}
		sum.Add(TableResult{Table: t.Name, Action: ActionFailed, Err: fmt.Errorf("writing %s: %v", mainPath, err)})
		return
	}

	g.manifestMu.Lock()
	g.man.Update(t.Name, fp, files)
	g.manifestMu.Unlock()

	sum.Add(TableResult{Table: t.Name, Action: ActionGenerated, Files: files})
}

// fingerprint extends the structural pattern fingerprint with the parts
// of the configuration that shape generated content, so renaming an
// operation regenerates while a cosmetic rerun still skips. The
// aggregate import specifiers participate: relocating the schema or
// types file rewrites every mutator's imports.
func (g *MutationGenerator) fingerprint(ps schema.PatternSet) string {
	h := sha256.New()
	io.WriteString(h, ps.Fingerprint())
	io.WriteString(h, "\next="+g.opts.ext())
	io.WriteString(h, "\nschema="+g.relModule(g.opts.SchemaPath))
	io.WriteString(h, "\ntypes="+g.relModule(g.opts.TypesPath))
	for _, k := range sortedKeys(g.opts.NameOverrides) {
		fmt.Fprintf(h, "\nname:%s=%s", k, g.opts.NameOverrides[k])
	}
	for _, k := range sortedKeys(g.opts.TypeOverrides) {
		fmt.Fprintf(h, "\ntype:%s=%s", k, g.opts.TypeOverrides[k])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// stashedFile holds a file's previous bytes so a failed write sequence
// can put them back instead of leaving the table half rewritten.
type stashedFile struct {
	path    string
	data    []byte
	existed bool
}

func stashFile(path string) (stashedFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return stashedFile{path: path}, nil
	}
	if err != nil {
		return stashedFile{}, err
	}
	return stashedFile{path: path, data: data, existed: true}, nil
}

// restore is best effort; a rollback failure must not mask the write
// error being reported.
func (s stashedFile) restore() {
	if s.existed {
		os.WriteFile(s.path, s.data, 0644)
		return
	}
	os.Remove(s.path)
}

// createIfAbsent writes the file only when it does not exist yet, using
// O_EXCL so two workers can never both seed it. Returns whether this
// call created it.
func createIfAbsent(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return true, err
	}
	return true, nil
}

// generatedSource composes the baseline mutator file for one table.
func (g *MutationGenerator) generatedSource(t schema.Table, ps schema.PatternSet, entity string) string {
	ext := g.opts.ext()
	row := rowTypeName(t.Name)
	pk := t.PK()

	var b strings.Builder
	b.WriteString(fileBanner(
		fmt.Sprintf("Baseline mutators for the %q table. Extend or replace them in", t.Name),
		fmt.Sprintf("%s.custom.%s; an export there with the same name wins.", entity, ext),
	))
	b.WriteString("\n")
	b.WriteString("import type { Transaction } from '@rocicorp/zero';\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "import type { Schema } from '%s';\n", g.relModule(g.opts.SchemaPath))
	fmt.Fprintf(&b, "import type { %s } from '%s';\n", row, g.relModule(g.opts.TypesPath))
	b.WriteString("\n")
	b.WriteString("type Tx = Transaction<Schema>;\n")

	if pk == nil {
		// Without a primary key rows cannot be addressed, so only
		// insertion is generated.
		b.WriteString("\n")
		fmt.Fprintf(&b, "// %q has no primary key; only creation is generated.\n", t.Name)
		b.WriteString(g.createBody(t, entity, row))
		return b.String()
	}

	pkType := g.tm.KeyTSType(*pk)
	soft, hasSoft := softDeletion(ps)

	for _, op := range operationsFor(ps) {
		b.WriteString("\n")
		switch op {
		case OpCreate:
			b.WriteString(g.createBody(t, entity, row))
		case OpUpdate:
			b.WriteString(g.updateBody(t, entity, row, pk.Name))
		case OpDelete:
			if hasSoft {
				b.WriteString(g.softDeleteBody(t, entity, pk.Name, pkType, soft.Column))
			} else {
				b.WriteString(g.hardDeleteBody(t, entity, pk.Name, pkType))
			}
		case OpRestore:
			b.WriteString(g.restoreBody(t, entity, pk.Name, pkType, soft.Column))
		case OpUpsert:
			b.WriteString(g.upsertBody(t, entity, row))
		case OpMoveBefore, OpMoveAfter, OpMoveToTop, OpMoveToBottom:
			pos, _ := positioningOf(ps)
			b.WriteString(g.moveBody(op, t, entity, pk.Name, pkType, pos.Column))
		}
	}

	if enums, ok := enumsOf(ps); ok {
		b.WriteString("\n")
		b.WriteString(g.enumGuidance(t, entity, enums))
	}

	return b.String()
}

func softDeletion(ps schema.PatternSet) (schema.SoftDeletion, bool) {
	p, ok := ps.Get(schema.KindSoftDeletion)
	if !ok {
		return schema.SoftDeletion{}, false
	}
	return p.(schema.SoftDeletion), true
}

func positioningOf(ps schema.PatternSet) (schema.Positioning, bool) {
	p, ok := ps.Get(schema.KindPositioning)
	if !ok {
		return schema.Positioning{}, false
	}
	return p.(schema.Positioning), true
}

func enumsOf(ps schema.PatternSet) (schema.Enums, bool) {
	p, ok := ps.Get(schema.KindEnums)
	if !ok {
		return schema.Enums{}, false
	}
	return p.(schema.Enums), true
}

func (g *MutationGenerator) createBody(t schema.Table, entity, row string) string {
	name := operationName(OpCreate, entity, g.opts.NameOverrides)
	return fmt.Sprintf(`export async function %s(tx: Tx, input: %s): Promise<void> {
  await tx.mutate.%s.insert(input);
}
`, name, row, t.Name)
}

func (g *MutationGenerator) updateBody(t schema.Table, entity, row, pk string) string {
	name := operationName(OpUpdate, entity, g.opts.NameOverrides)
	return fmt.Sprintf(`export async function %s(tx: Tx, input: Partial<%s> & Pick<%s, '%s'>): Promise<void> {
  await tx.mutate.%s.update(input);
}
`, name, row, row, pk, t.Name)
}

func (g *MutationGenerator) softDeleteBody(t schema.Table, entity, pk, pkType, column string) string {
	name := operationName(OpDelete, entity, g.opts.NameOverrides)
	return fmt.Sprintf(`// Rows are tombstoned via %q, never removed.
export async function %s(tx: Tx, id: %s): Promise<void> {
  await tx.mutate.%s.update({ %s, %s: Date.now() });
}
`, column, name, pkType, t.Name, keyExpr(pk), column)
}

func (g *MutationGenerator) hardDeleteBody(t schema.Table, entity, pk, pkType string) string {
	name := operationName(OpDelete, entity, g.opts.NameOverrides)
	return fmt.Sprintf(`export async function %s(tx: Tx, id: %s): Promise<void> {
  await tx.mutate.%s.delete({ %s });
}
`, name, pkType, t.Name, keyExpr(pk))
}

func (g *MutationGenerator) restoreBody(t schema.Table, entity, pk, pkType, column string) string {
	name := operationName(OpRestore, entity, g.opts.NameOverrides)
	return fmt.Sprintf(`export async function %s(tx: Tx, id: %s): Promise<void> {
  await tx.mutate.%s.update({ %s, %s: null });
}
`, name, pkType, t.Name, keyExpr(pk), column)
}

func (g *MutationGenerator) upsertBody(t schema.Table, entity, row string) string {
	name := operationName(OpUpsert, entity, g.opts.NameOverrides)
	return fmt.Sprintf(`export async function %s(tx: Tx, input: %s): Promise<void> {
  await tx.mutate.%s.upsert(input);
}
`, name, row, t.Name)
}

// moveBody emits one positioning operation. Positions are written as
// fractional midpoints between neighbors; the backend rebalances them.
func (g *MutationGenerator) moveBody(op Operation, t schema.Table, entity, pk, pkType, pos string) string {
	name := operationName(op, entity, g.opts.NameOverrides)

	switch op {
	case OpMoveBefore:
		return fmt.Sprintf(`export async function %s(tx: Tx, id: %s, targetId: %s): Promise<void> {
  const target = await tx.query.%s.where('%s', targetId).one();
  if (!target) {
    return;
  }
  const prev = await tx.query.%s
    .where('%s', '<', target.%s)
    .orderBy('%s', 'desc')
    .one();
  const %s = prev ? (prev.%s + target.%s) / 2 : target.%s - 1;
  await tx.mutate.%s.update({ %s, %s });
}
`, name, pkType, pkType, t.Name, pk, t.Name, pos, pos, pos, pos, pos, pos, pos, t.Name, keyExpr(pk), pos)
	case OpMoveAfter:
		return fmt.Sprintf(`export async function %s(tx: Tx, id: %s, targetId: %s): Promise<void> {
  const target = await tx.query.%s.where('%s', targetId).one();
  if (!target) {
    return;
  }
  const next = await tx.query.%s
    .where('%s', '>', target.%s)
    .orderBy('%s', 'asc')
    .one();
  const %s = next ? (target.%s + next.%s) / 2 : target.%s + 1;
  await tx.mutate.%s.update({ %s, %s });
}
`, name, pkType, pkType, t.Name, pk, t.Name, pos, pos, pos, pos, pos, pos, pos, t.Name, keyExpr(pk), pos)
	case OpMoveToTop:
		return fmt.Sprintf(`export async function %s(tx: Tx, id: %s): Promise<void> {
  const first = await tx.query.%s.orderBy('%s', 'asc').one();
  const %s = first ? first.%s - 1 : 0;
  await tx.mutate.%s.update({ %s, %s });
}
`, name, pkType, t.Name, pos, pos, pos, t.Name, keyExpr(pk), pos)
	default: // OpMoveToBottom
		return fmt.Sprintf(`export async function %s(tx: Tx, id: %s): Promise<void> {
  const last = await tx.query.%s.orderBy('%s', 'desc').one();
  const %s = last ? last.%s + 1 : 0;
  await tx.mutate.%s.update({ %s, %s });
}
`, name, pkType, t.Name, pos, pos, pos, t.Name, keyExpr(pk), pos)
	}
}

// enumGuidance documents enum-backed columns without generating
// executable transitions; those are domain rules and belong in the
// custom file.
func (g *MutationGenerator) enumGuidance(t schema.Table, entity string, enums schema.Enums) string {
	ext := g.opts.ext()
	row := rowTypeName(t.Name)
	pascal := utils.Pascal(entity)

	var b strings.Builder
	fmt.Fprintf(&b, "// Enum-backed columns on %q:\n", t.Name)
	b.WriteString("//\n")
	for _, c := range enums.Columns {
		fmt.Fprintf(&b, "//   %s: %s\n", c.Name, literalUnion(c.Values))
	}
	b.WriteString("//\n")
	b.WriteString("// Transitions between enum values are domain rules, so none are\n")
	fmt.Fprintf(&b, "// generated. Add guarded mutators to %s.custom.%s, e.g.\n", entity, ext)
	b.WriteString("//\n")
	first := enums.Columns[0].Name
	fmt.Fprintf(&b, "//   export async function set%s%s(tx: Tx, id: %s, %s: %s['%s']) {\n",
		pascal, utils.Pascal(first), g.pkTSType(t), first, row, first)
	b.WriteString("//     // validate the transition, then:\n")
	fmt.Fprintf(&b, "//     await tx.mutate.%s.update({ %s, %s });\n", t.Name, keyExpr(pkName(t)), first)
	b.WriteString("//   }\n")
	return b.String()
}

func (g *MutationGenerator) pkTSType(t schema.Table) string {
	if pk := t.PK(); pk != nil {
		return g.tm.KeyTSType(*pk)
	}
	return "string"
}

func pkName(t schema.Table) string {
	if pk := t.PK(); pk != nil {
		return pk.Name
	}
	return "id"
}

// keyExpr renders the primary key field of an update literal from the
// conventional id parameter.
func keyExpr(pk string) string {
	if pk == "id" {
		return "id"
	}
	return pk + ": id"
}

// customSource seeds the hand-written companion file. Written once,
// then owned by the application; force never touches it.
func (g *MutationGenerator) customSource(t schema.Table, entity string) string {
	ext := g.opts.ext()
	row := rowTypeName(t.Name)
	create := operationName(OpCreate, entity, g.opts.NameOverrides)

	var b strings.Builder
	fmt.Fprintf(&b, "// Hand-written mutators for the %q table.\n", t.Name)
	b.WriteString("//\n")
	b.WriteString("// Created once and never overwritten. Exports here are re-exported\n")
	fmt.Fprintf(&b, "// after the generated ones by %s.%s, so an export matching a\n", entity, ext)
	b.WriteString("// generated name replaces it.\n")
	b.WriteString("//\n")
	b.WriteString("// The examples below stay commented out so nothing leaks until you\n")
	b.WriteString("// rename and export them.\n")
	b.WriteString("\n")
	b.WriteString("// import type { Transaction } from '@rocicorp/zero';\n")
	b.WriteString("//\n")
	fmt.Fprintf(&b, "// import type { Schema } from '%s';\n", g.relModule(g.opts.SchemaPath))
	fmt.Fprintf(&b, "// import type { %s } from '%s';\n", row, g.relModule(g.opts.TypesPath))
	b.WriteString("//\n")
	b.WriteString("// type Tx = Transaction<Schema>;\n")
	b.WriteString("//\n")
	fmt.Fprintf(&b, "// async function %sWithDefaults(tx: Tx, input: %s): Promise<void> {\n", create, row)
	fmt.Fprintf(&b, "//   await tx.mutate.%s.insert(input);\n", t.Name)
	b.WriteString("// }\n")
	b.WriteString("\n")
	b.WriteString("export {};\n")
	return b.String()
}

// mainSource composes the re-export facade; regenerated on every run.
func (g *MutationGenerator) mainSource(t schema.Table, entity string) string {
	ext := g.opts.ext()

	var b strings.Builder
	b.WriteString(fileBanner(
		fmt.Sprintf("Combined mutators for the %q table. Generated exports come", t.Name),
		fmt.Sprintf("first, hand-written ones from %s.custom.%s second, so a custom", entity, ext),
		"export with a generated name takes precedence.",
	))
	b.WriteString("\n")
	fmt.Fprintf(&b, "export * from './%s.generated';\n", entity)
	fmt.Fprintf(&b, "export * from './%s.custom';\n", entity)
	return b.String()
}

// relModule computes the module specifier from the mutations directory
// to another generated file, extension stripped.
func (g *MutationGenerator) relModule(target string) string {
	rel, err := filepath.Rel(g.opts.OutputDir, target)
	if err != nil {
		rel = target
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}
