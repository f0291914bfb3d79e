package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kinnrichard/zerogen/database"
	"github.com/kinnrichard/zerogen/generator"
	"github.com/kinnrichard/zerogen/introspect"
	"github.com/kinnrichard/zerogen/registry"
)

var (
	generateConfigFile    string
	generateModelsFile    string
	generateOutDir        string
	generateSchemaFile    string
	generateTypesFile     string
	generateExclude       []string
	generateWorkers       int
	generateDryRun        bool
	generateForce         bool
	generateSchemaOnly    bool
	generateMutationsOnly bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateConfigFile, "config", "c", "zerogen.yaml", "Generator config file")
	generateCmd.Flags().StringVarP(&generateModelsFile, "models", "m", "models.yaml", "Model registry file")
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", "", "Mutator output directory (overrides config)")
	generateCmd.Flags().StringVar(&generateSchemaFile, "schema-file", "", "Schema output file (overrides config)")
	generateCmd.Flags().StringVar(&generateTypesFile, "types-file", "", "Row types output file (overrides config)")
	generateCmd.Flags().StringSliceVar(&generateExclude, "exclude", nil, "Tables to skip, added to the config exclusions")
	generateCmd.Flags().IntVar(&generateWorkers, "workers", 0, "Tables generated in parallel (overrides config)")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Preview generated files without writing them")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Overwrite hand-edited files on generated paths")
	generateCmd.Flags().BoolVar(&generateSchemaOnly, "schema-only", false, "Generate only the schema and types files")
	generateCmd.Flags().BoolVar(&generateMutationsOnly, "mutations-only", false, "Generate only the per-table mutator files")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the sync client from the live database",
	Long: `Generate the sync client from the live database and the model
registry: the schema definition, row types, and per-table mutators.

Unchanged tables are skipped via the generation manifest. Files on
generated paths that were edited by hand are treated as conflicts and
left alone unless --force is given. Custom files are created once and
never overwritten, not even with --force.

Examples:
  zerogen generate                  # Generate everything
  zerogen generate --dry-run        # Preview without writing
  zerogen generate --force          # Regenerate even unchanged tables
  zerogen generate --exclude logs   # Skip a table for this run
`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := resolveOptions(cmd, generateConfigFile)
		if err != nil {
			fmt.Println("❌ Loading config:", err)
			os.Exit(1)
		}

		reg, err := loadModelRegistry(generateModelsFile, cmd.Flags().Changed("models"))
		if err != nil {
			fmt.Println("❌ Loading model registry:", err)
			os.Exit(1)
		}

		ctx := context.Background()
		pool, err := database.Connect(ctx)
		if err != nil {
			fmt.Println("❌ Connecting to database:", err)
			os.Exit(1)
		}
		defer pool.Close()

		snap, err := introspect.New(pool, reg).Extract(ctx)
		if err != nil {
			fmt.Println("❌ Introspecting database:", err)
			os.Exit(1)
		}
		for _, w := range snap.Warnings {
			fmt.Println("⚠️ ", w)
		}

		sum, err := generator.Run(ctx, snap, opts)
		if err != nil {
			fmt.Println("❌ Generating:", err)
			os.Exit(1)
		}

		if sum.DryRun {
			renderPreviews(sum)
		}
		renderSummary(sum)

		if sum.HasFailures() {
			os.Exit(1)
		}
	},
}

// resolveOptions layers flag overrides on top of the config file. A
// missing config file is fine unless the user pointed at one explicitly.
func resolveOptions(cmd *cobra.Command, configFile string) (generator.Options, error) {
	opts := generator.DefaultOptions()

	if _, err := os.Stat(configFile); err == nil {
		opts, err = generator.LoadOptions(configFile)
		if err != nil {
			return opts, err
		}
	} else if cmd.Flags().Changed("config") {
		return opts, fmt.Errorf("config file %s not found", configFile)
	}

	if generateOutDir != "" {
		opts.OutputDir = generateOutDir
	}
	if generateSchemaFile != "" {
		opts.SchemaPath = generateSchemaFile
	}
	if generateTypesFile != "" {
		opts.TypesPath = generateTypesFile
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = generateWorkers
	}
	opts.ExcludedTables = append(opts.ExcludedTables, generateExclude...)
	opts.DryRun = generateDryRun
	opts.Force = generateForce
	opts.SchemaOnly = generateSchemaOnly
	opts.MutationsOnly = generateMutationsOnly

	return opts, nil
}

// loadModelRegistry reads the registry file. Missing is fine unless the
// user pointed at one explicitly: pattern detection still works without
// declared models.
func loadModelRegistry(path string, explicit bool) (*registry.Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("model registry %s not found", path)
		}
		fmt.Println("ℹ️  No models.yaml found, generating from table patterns only")
		return nil, nil
	}
	return registry.Load(path)
}

func renderPreviews(sum *generator.Summary) {
	previews := sum.Previews()
	if len(previews) == 0 {
		return
	}

	fmt.Println("\n================ DRY RUN: Generation Preview ================")
	for _, p := range previews {
		fmt.Printf("\n--- %s ---\n", p.Path)
		fmt.Println(p.Content)
	}
	fmt.Println("==============================================================")
	fmt.Println("(Dry run only. No files were written.)")
}

func renderSummary(sum *generator.Summary) {
	for _, path := range sum.Aggregates() {
		fmt.Println("📄", path)
	}

	results := sum.Results()
	if len(results) > 0 {
		fmt.Println()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Table", "Action", "Files", "Reason"})
		table.SetBorder(false)
		table.SetColumnSeparator(" ")
		for _, r := range results {
			reason := r.Reason
			if r.Err != nil {
				reason = r.Err.Error()
			}
			table.Append([]string{r.Table, string(r.Action), fmt.Sprintf("%d", len(r.Files)), reason})
		}
		table.Render()
	}

	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	if sum.DryRun {
		green.Printf("✅ Would generate: %d\n", len(sum.Generated()))
	} else {
		green.Printf("✅ Generated: %d\n", len(sum.Generated()))
	}
	yellow.Printf("🕒 Skipped: %d\n", len(sum.Skipped()))
	if failed := sum.Failed(); len(failed) > 0 {
		red.Printf("❌ Failed: %d\n", len(failed))
		for _, r := range failed {
			red.Printf("   - %s: %v\n", r.Table, r.Err)
		}
	}
}
