package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kinnrichard/zerogen/database"
	"github.com/kinnrichard/zerogen/generator"
	"github.com/kinnrichard/zerogen/introspect"
	"github.com/kinnrichard/zerogen/manifest"
	"github.com/kinnrichard/zerogen/schema"
)

var (
	statusConfigFile string
	statusModelsFile string
)

func init() {
	statusCmd.Flags().StringVarP(&statusConfigFile, "config", "c", "zerogen.yaml", "Generator config file")
	statusCmd.Flags().StringVarP(&statusModelsFile, "models", "m", "models.yaml", "Model registry file")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which tables are up to date, pending, or orphaned",
	Long: `Show the generation state of every table without writing anything:
which tables are up to date, which would regenerate on the next run,
and which manifest entries point at tables that no longer exist.
`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := resolveOptions(cmd, statusConfigFile)
		if err != nil {
			fmt.Println("❌ Loading config:", err)
			os.Exit(1)
		}
		opts.DryRun = true

		reg, err := loadModelRegistry(statusModelsFile, cmd.Flags().Changed("models"))
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

		man, err := manifest.Load(manifest.PathIn(opts.OutputDir))
		if err != nil {
			fmt.Println("❌ Loading manifest:", err)
			os.Exit(1)
		}

		fmt.Println("📋 Generation Status")
		fmt.Println(strings.Repeat("=", 60))

		sum, err := generator.Run(ctx, snap, opts)
		if err != nil {
			// A hand-edited aggregate blocks a real run; everything else
			// here is still worth reporting.
			if generator.IsConflictError(err) {
				fmt.Println("⚠️ ", err)
			} else {
				fmt.Println("❌ Planning run:", err)
				os.Exit(1)
			}
		}

		if sum != nil && len(sum.Results()) > 0 {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Table", "State", "Last Generated", "Reason"})
			table.SetBorder(false)
			table.SetColumnSeparator(" ")
			for _, r := range sum.Results() {
				table.Append(statusRow(r, man))
			}
			table.Render()
		}

		reportOrphans(man, snap.Tables)

		files, err := manifest.DetectExisting(opts.OutputDir)
		if err != nil {
			fmt.Println("❌ Reading output directory:", err)
			os.Exit(1)
		}
		fmt.Printf("\n📁 Output directory: %s (%d files)\n", opts.OutputDir, len(files))

		for _, w := range snap.Warnings {
			fmt.Println("⚠️ ", w)
		}
	},
}

func statusRow(r generator.TableResult, man *manifest.Manifest) []string {
	state := "pending"
	reason := r.Reason
	switch r.Action {
	case generator.ActionSkipped:
		if r.Reason == "up to date" {
			state = "up to date"
			reason = ""
		} else {
			state = "skipped"
		}
	case generator.ActionFailed:
		state = "error"
		if generator.IsConflictError(r.Err) {
			state = "conflict"
		}
		reason = r.Err.Error()
	}

	last := "-"
	if e, ok := man.Entry(r.Table); ok {
		last = e.GeneratedAt.Format("2006-01-02 15:04:05")
	}

	return []string{r.Table, state, last, reason}
}

// reportOrphans lists manifest entries whose table no longer exists in
// the database. Their files linger in the output directory until
// removed by hand.
func reportOrphans(man *manifest.Manifest, tables []schema.Table) {
	live := map[string]bool{}
	for _, t := range tables {
		live[t.Name] = true
	}

	var orphans []string
	for _, name := range man.TableNames() {
		if !live[name] {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) == 0 {
		return
	}

	fmt.Println("\n🗑️  Orphaned manifest entries (table no longer exists):")
	for _, name := range orphans {
		e, _ := man.Entry(name)
		fmt.Printf("   - %s (%d files)\n", name, len(e.Files))
	}
}
