// Package generator turns an introspected schema snapshot into the
// client-side sync layer: one schema definition file, one row-type
// file, and a three-file mutator set per table.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kinnrichard/zerogen/manifest"
	"github.com/kinnrichard/zerogen/schema"
)

// Run executes one full generation pass: the schema and row-type
// aggregates first, then the per-table mutator files, then the
// manifest. A hand-edited aggregate aborts the whole run; per-table
// problems only mark that table failed in the summary.
func Run(ctx context.Context, snap *schema.Snapshot, opts Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sum := &Summary{DryRun: opts.DryRun}

	if !opts.MutationsOnly {
		syn := NewSchemaSynthesizer(snap, opts)
		if err := writeAggregate(sum, opts, opts.SchemaPath, syn.SchemaSource()); err != nil {
			return sum, err
		}
		if err := writeAggregate(sum, opts, opts.TypesPath, syn.TypesSource()); err != nil {
			return sum, err
		}
	}

	if opts.SchemaOnly {
		return sum, nil
	}

	man, err := manifest.Load(manifest.PathIn(opts.OutputDir))
	if err != nil {
		return sum, fmt.Errorf("loading manifest: %v", err)
	}

	gen := NewMutationGenerator(snap, opts, man)
	if err := gen.Generate(ctx, sum); err != nil {
		return sum, err
	}

	if !opts.DryRun {
		if err := man.Save(manifest.PathIn(opts.OutputDir)); err != nil {
			return sum, fmt.Errorf("saving manifest: %v", err)
		}
	}

	return sum, nil
}

// writeAggregate writes one whole-schema output file, honoring dry run
// and the hand-edit guard.
func writeAggregate(sum *Summary, opts Options, path, content string) error {
	if !opts.Force {
		data, err := os.ReadFile(path)
		if err == nil && !HasGeneratedBanner(data) {
			return NewConflictError("", path)
		}
	}

	if opts.DryRun {
		sum.AddPreview(path, content)
		sum.AddAggregate(path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %v", filepath.Dir(path), err)
	}
	prev, err := stashFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		prev.restore()
		return fmt.Errorf("writing %s: %v", path, err)
	}
	sum.AddAggregate(path)
	return nil
}
