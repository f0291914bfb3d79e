package generator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinnrichard/zerogen/manifest"
	"github.com/kinnrichard/zerogen/schema"
)

func testRunOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(root, "mutations")
	opts.SchemaPath = filepath.Join(root, "schema.gen.ts")
	opts.TypesPath = filepath.Join(root, "types.gen.ts")
	return opts
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func resultsByTable(sum *Summary) map[string]TableResult {
	out := map[string]TableResult{}
	for _, r := range sum.Results() {
		out[r.Table] = r
	}
	return out
}

func TestRunGeneratesEverything(t *testing.T) {
	opts := testRunOptions(t)

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	require.False(t, sum.HasFailures())

	assert.True(t, HasGeneratedBanner([]byte(readFile(t, opts.SchemaPath))))
	assert.True(t, HasGeneratedBanner([]byte(readFile(t, opts.TypesPath))))

	gen := readFile(t, filepath.Join(opts.OutputDir, "task.generated.ts"))
	for _, fn := range []string{
		"createTask", "updateTask", "deleteTask", "restoreTask", "upsertTask",
		"moveTaskBefore", "moveTaskAfter", "moveTaskToTop", "moveTaskToBottom",
	} {
		assert.Contains(t, gen, "export async function "+fn+"(", fn)
	}
	assert.Contains(t, gen, "import type { Schema } from '../schema.gen';")
	assert.Contains(t, gen, "import type { TaskRow } from '../types.gen';")
	assert.Contains(t, gen, "input: Partial<TaskRow> & Pick<TaskRow, 'id'>")
	assert.Contains(t, gen, "await tx.mutate.tasks.update({ id, discarded_at: Date.now() });")
	assert.Contains(t, gen, "await tx.mutate.tasks.update({ id, discarded_at: null });")
	assert.Contains(t, gen, "const target = await tx.query.tasks.where('id', targetId).one();")
	assert.Contains(t, gen, ".orderBy('position', 'desc')")
	assert.Contains(t, gen, "(prev.position + target.position) / 2")

	main := readFile(t, filepath.Join(opts.OutputDir, "task.ts"))
	assert.True(t, HasGeneratedBanner([]byte(main)))
	assert.Contains(t, main, "export * from './task.generated';")
	assert.Contains(t, main, "export * from './task.custom';")

	custom := readFile(t, filepath.Join(opts.OutputDir, "task.custom.ts"))
	assert.False(t, HasGeneratedBanner([]byte(custom)))
	assert.Contains(t, custom, "export {};")

	// registered model without structural patterns still gets baseline
	// mutators, with a hard delete
	clientGen := readFile(t, filepath.Join(opts.OutputDir, "client.generated.ts"))
	assert.Contains(t, clientGen, "await tx.mutate.clients.delete({ id });")
	assert.NotContains(t, clientGen, "restoreClient")
	assert.NotContains(t, clientGen, "moveClient")

	jobGen := readFile(t, filepath.Join(opts.OutputDir, "job.generated.ts"))
	assert.Contains(t, jobGen, `// Enum-backed columns on "jobs":`)
	assert.Contains(t, jobGen, "setJobStatus")
	assert.NotContains(t, jobGen, "moveJobBefore")

	results := resultsByTable(sum)
	assert.Equal(t, ActionGenerated, results["tasks"].Action)
	assert.Len(t, results["tasks"].Files, 3)
	assert.Equal(t, ActionSkipped, results["audit_snapshots"].Action)
	assert.Equal(t, "no registered model and no detected patterns", results["audit_snapshots"].Reason)

	man, err := manifest.Load(manifest.PathIn(opts.OutputDir))
	require.NoError(t, err)
	entry, ok := man.Entry("tasks")
	require.True(t, ok)
	assert.NotEmpty(t, entry.Fingerprint)
	assert.Len(t, entry.Files, 3)
	_, ok = man.Entry("audit_snapshots")
	assert.False(t, ok)
}

func TestRunSecondRunSkipsUnchangedTables(t *testing.T) {
	opts := testRunOptions(t)
	genPath := filepath.Join(opts.OutputDir, "task.generated.ts")

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	before := readFile(t, genPath)

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	results := resultsByTable(sum)
	assert.Equal(t, ActionSkipped, results["tasks"].Action)
	assert.Equal(t, "up to date", results["tasks"].Reason)
	assert.Equal(t, ActionSkipped, results["jobs"].Action)
	assert.Equal(t, before, readFile(t, genPath))
}

func TestRunForceRegenerates(t *testing.T) {
	opts := testRunOptions(t)

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	schemaBefore := readFile(t, opts.SchemaPath)
	typesBefore := readFile(t, opts.TypesPath)
	genBefore := readFile(t, filepath.Join(opts.OutputDir, "task.generated.ts"))

	opts.Force = true
	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	results := resultsByTable(sum)
	assert.Equal(t, ActionGenerated, results["tasks"].Action)
	// the custom file already exists, so only two files are rewritten
	assert.Len(t, results["tasks"].Files, 2)

	// regeneration is deterministic, byte for byte
	assert.Equal(t, schemaBefore, readFile(t, opts.SchemaPath))
	assert.Equal(t, typesBefore, readFile(t, opts.TypesPath))
	assert.Equal(t, genBefore, readFile(t, filepath.Join(opts.OutputDir, "task.generated.ts")))
}

func TestRunNameOverridesChangeFingerprint(t *testing.T) {
	opts := testRunOptions(t)

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	opts.NameOverrides = map[string]string{"delete": "discard", "restore": "undiscard"}
	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	// renamed operations regenerate without force
	results := resultsByTable(sum)
	assert.Equal(t, ActionGenerated, results["tasks"].Action)

	gen := readFile(t, filepath.Join(opts.OutputDir, "task.generated.ts"))
	assert.Contains(t, gen, "export async function discardTask(")
	assert.Contains(t, gen, "export async function undiscardTask(")
	assert.NotContains(t, gen, "function deleteTask(")
	assert.NotContains(t, gen, "function restoreTask(")
}

func TestRunAggregateMoveChangesFingerprint(t *testing.T) {
	opts := testRunOptions(t)
	genPath := filepath.Join(opts.OutputDir, "task.generated.ts")

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, genPath), "import type { TaskRow } from '../types.gen';")

	// relocated aggregates change every mutator's import specifiers, so
	// no table may report up to date
	root := filepath.Dir(opts.SchemaPath)
	opts.SchemaPath = filepath.Join(root, "gen", "schema.gen.ts")
	opts.TypesPath = filepath.Join(root, "gen", "types.gen.ts")
	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	results := resultsByTable(sum)
	assert.Equal(t, ActionGenerated, results["tasks"].Action)

	gen := readFile(t, genPath)
	assert.Contains(t, gen, "import type { Schema } from '../gen/schema.gen';")
	assert.Contains(t, gen, "import type { TaskRow } from '../gen/types.gen';")
	assert.NotContains(t, gen, "'../types.gen'")
}

func TestRunCustomFilesSurviveForce(t *testing.T) {
	opts := testRunOptions(t)
	customPath := filepath.Join(opts.OutputDir, "task.custom.ts")

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	mine := "export async function deleteTask(): Promise<void> {}\n"
	require.NoError(t, os.WriteFile(customPath, []byte(mine), 0644))

	opts.Force = true
	_, err = Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	assert.Equal(t, mine, readFile(t, customPath))
}

func TestRunConflictIsolatesTable(t *testing.T) {
	opts := testRunOptions(t)
	genPath := filepath.Join(opts.OutputDir, "task.generated.ts")

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	// simulate a hand edit that stripped the banner, on a fresh checkout
	// with no manifest
	edited := "export async function createTask(): Promise<void> {}\n"
	require.NoError(t, os.WriteFile(genPath, []byte(edited), 0644))
	require.NoError(t, os.Remove(manifest.PathIn(opts.OutputDir)))

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	require.True(t, sum.HasFailures())

	results := resultsByTable(sum)
	require.Equal(t, ActionFailed, results["tasks"].Action)
	assert.True(t, IsConflictError(results["tasks"].Err))
	assert.Equal(t, ActionGenerated, results["jobs"].Action)
	assert.Equal(t, ActionGenerated, results["notes"].Action)

	// the hand-edited file stays untouched
	assert.Equal(t, edited, readFile(t, genPath))

	man, err := manifest.Load(manifest.PathIn(opts.OutputDir))
	require.NoError(t, err)
	_, ok := man.Entry("tasks")
	assert.False(t, ok)

	opts.Force = true
	sum, err = Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	require.False(t, sum.HasFailures())
	assert.True(t, HasGeneratedBanner([]byte(readFile(t, genPath))))
}

func TestStashedFileRestore(t *testing.T) {
	dir := t.TempDir()

	existing := filepath.Join(dir, "task.generated.ts")
	require.NoError(t, os.WriteFile(existing, []byte("previous"), 0644))
	stash, err := stashFile(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(existing, []byte("half written"), 0644))
	stash.restore()
	assert.Equal(t, "previous", readFile(t, existing))

	// a stash of a missing file restores to absence
	missing := filepath.Join(dir, "task.ts")
	stash, err = stashFile(missing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(missing, []byte("new"), 0644))
	stash.restore()
	assert.NoFileExists(t, missing)
}

func TestRunFailedWriteKeepsPreviousMutator(t *testing.T) {
	opts := testRunOptions(t)
	genPath := filepath.Join(opts.OutputDir, "task.generated.ts")
	mainPath := filepath.Join(opts.OutputDir, "task.ts")

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	genBefore := readFile(t, genPath)

	// a dangling link makes the facade write fail after the baseline
	// file was already rewritten
	require.NoError(t, os.Remove(mainPath))
	require.NoError(t, os.Symlink(filepath.Join(opts.OutputDir, "missing", "task.ts"), mainPath))

	opts.NameOverrides = map[string]string{"delete": "discard"}
	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	require.True(t, sum.HasFailures())

	results := resultsByTable(sum)
	require.Equal(t, ActionFailed, results["tasks"].Action)
	assert.Equal(t, ActionGenerated, results["jobs"].Action)

	// the previous baseline came back; none of the renamed operations
	// leaked into it
	gen := readFile(t, genPath)
	assert.Equal(t, genBefore, gen)
	assert.NotContains(t, gen, "discardTask")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	opts := testRunOptions(t)
	opts.DryRun = true

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	// the summary records the mode so renderers need nothing else
	assert.True(t, sum.DryRun)
	assert.NoFileExists(t, opts.SchemaPath)
	assert.NoFileExists(t, opts.TypesPath)
	assert.NoDirExists(t, opts.OutputDir)

	previews := map[string]string{}
	for _, p := range sum.Previews() {
		previews[filepath.Base(p.Path)] = p.Content
	}
	assert.Contains(t, previews, "schema.gen.ts")
	assert.Contains(t, previews, "types.gen.ts")
	assert.Contains(t, previews, "task.generated.ts")
	assert.Contains(t, previews, "task.custom.ts")
	assert.Contains(t, previews, "task.ts")
	assert.Contains(t, previews["task.generated.ts"], "export async function createTask(")

	results := resultsByTable(sum)
	assert.Equal(t, ActionGenerated, results["tasks"].Action)
}

func TestRunExcludedTables(t *testing.T) {
	opts := testRunOptions(t)
	opts.ExcludedTables = []string{"tasks"}

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	results := resultsByTable(sum)
	assert.Equal(t, ActionSkipped, results["tasks"].Action)
	assert.Equal(t, "excluded by configuration", results["tasks"].Reason)
	assert.Equal(t, ActionGenerated, results["jobs"].Action)
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "task.generated.ts"))
}

func TestRunSchemaOnly(t *testing.T) {
	opts := testRunOptions(t)
	opts.SchemaOnly = true

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	assert.FileExists(t, opts.SchemaPath)
	assert.FileExists(t, opts.TypesPath)
	assert.NoDirExists(t, opts.OutputDir)
	assert.Empty(t, sum.Results())
}

func TestRunMutationsOnly(t *testing.T) {
	opts := testRunOptions(t)
	opts.MutationsOnly = true

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)

	assert.NoFileExists(t, opts.SchemaPath)
	assert.NoFileExists(t, opts.TypesPath)
	assert.FileExists(t, filepath.Join(opts.OutputDir, "task.generated.ts"))
}

func TestRunAggregateConflictAborts(t *testing.T) {
	opts := testRunOptions(t)

	handWritten := "export const schema = {};\n"
	require.NoError(t, os.WriteFile(opts.SchemaPath, []byte(handWritten), 0644))

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.Error(t, err)
	assert.True(t, IsConflictError(err))

	// nothing else was touched
	assert.Equal(t, handWritten, readFile(t, opts.SchemaPath))
	assert.NoFileExists(t, opts.TypesPath)
	assert.NoDirExists(t, opts.OutputDir)
}

func TestRunPositioningOpsNarrowedByModel(t *testing.T) {
	opts := testRunOptions(t)
	snap := fixtureSnapshot()
	m := snap.Models["tasks"]
	m.Positioning = &schema.PositioningDecl{
		Column: "position",
		Ops:    []schema.MoveOp{schema.MoveBefore, schema.MoveAfter},
	}
	snap.Models["tasks"] = m

	_, err := Run(context.Background(), snap, opts)
	require.NoError(t, err)

	gen := readFile(t, filepath.Join(opts.OutputDir, "task.generated.ts"))
	assert.Contains(t, gen, "moveTaskBefore")
	assert.Contains(t, gen, "moveTaskAfter")
	assert.NotContains(t, gen, "moveTaskToTop")
	assert.NotContains(t, gen, "moveTaskToBottom")
}

func TestRunTableWithoutPrimaryKey(t *testing.T) {
	opts := testRunOptions(t)
	snap := &schema.Snapshot{
		Tables: []schema.Table{
			{
				Name: "settings",
				Columns: []schema.Column{
					col("name", "text", "text"),
					col("value", "text", "text"),
				},
			},
		},
		Models: map[string]schema.Model{
			"settings": {Name: "Setting", TableName: "settings"},
		},
	}

	sum, err := Run(context.Background(), snap, opts)
	require.NoError(t, err)
	require.False(t, sum.HasFailures())

	gen := readFile(t, filepath.Join(opts.OutputDir, "setting.generated.ts"))
	assert.Contains(t, gen, "export async function createSetting(")
	assert.Contains(t, gen, "no primary key")
	assert.NotContains(t, gen, "updateSetting")
	assert.NotContains(t, gen, "deleteSetting")
}

func TestRunWithWorkerPool(t *testing.T) {
	opts := testRunOptions(t)
	opts.Workers = 4

	sum, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.NoError(t, err)
	require.False(t, sum.HasFailures())

	for _, name := range []string{"client", "job", "note", "task"} {
		assert.FileExists(t, filepath.Join(opts.OutputDir, name+".generated.ts"))
		assert.FileExists(t, filepath.Join(opts.OutputDir, name+".custom.ts"))
		assert.FileExists(t, filepath.Join(opts.OutputDir, name+".ts"))
	}
}

func TestRunInvalidOptions(t *testing.T) {
	opts := testRunOptions(t)
	opts.Workers = -1

	_, err := Run(context.Background(), fixtureSnapshot(), opts)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}
