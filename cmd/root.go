package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zerogen",
	Short: "Generate a sync client schema and mutators from Postgres",
	Long: `zerogen introspects a live Postgres database, combines it with a
declarative model registry, and generates the client sync layer:
the schema definition, row types, and per-table mutator files.

Examples:

  zerogen init
  zerogen generate
  zerogen status
`,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
}
