package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kinnrichard/zerogen/database"
	"github.com/kinnrichard/zerogen/introspect"
	"github.com/kinnrichard/zerogen/registry"
)

var (
	checkConfigFile string
	checkModelsFile string
	checkTimeout    time.Duration
)

func init() {
	checkCmd.Flags().StringVarP(&checkConfigFile, "config", "c", "zerogen.yaml", "Generator config file")
	checkCmd.Flags().StringVarP(&checkModelsFile, "models", "m", "models.yaml", "Model registry file")
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for the database checks")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate config, registry, and database connectivity",
	Long: `Validate everything a generation run depends on, without generating.

This command will:
- Parse and validate zerogen.yaml
- Parse and validate models.yaml
- Verify database connectivity
- Verify every registered model resolves to a live table

Examples:
  zerogen check                    # Check current setup
  zerogen check --timeout 30s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := checkSetup(cmd); err != nil {
			fmt.Printf("❌ Check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Check completed successfully")
	},
}

func checkSetup(cmd *cobra.Command) error {
	opts, err := resolveOptions(cmd, checkConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %v", err)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(checkConfigFile); err == nil {
		fmt.Println("✅ Config valid:", checkConfigFile)
	} else {
		fmt.Println("⚠️  No config file found, using defaults")
	}

	var reg *registry.Registry
	if _, err := os.Stat(checkModelsFile); err == nil {
		reg, err = registry.Load(checkModelsFile)
		if err != nil {
			return fmt.Errorf("loading model registry: %v", err)
		}
		fmt.Printf("✅ Registry valid: %d models in %s\n", len(reg.Models()), checkModelsFile)
	} else {
		fmt.Println("⚠️  No models.yaml found, pattern detection only")
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	pool, err := database.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting to database: %v", err)
	}
	defer pool.Close()
	fmt.Println("✅ Database reachable")

	if reg == nil {
		return nil
	}

	in := introspect.New(pool, reg)
	missing := 0
	for _, m := range reg.Models() {
		exists, err := in.TableExists(ctx, m.TableName)
		if err != nil {
			return fmt.Errorf("checking table %s: %v", m.TableName, err)
		}
		if !exists {
			fmt.Printf("⚠️  Model %s: table %q not found\n", m.Name, m.TableName)
			missing++
		}
	}
	if missing == 0 {
		fmt.Println("✅ All registered models resolve to live tables")
	} else {
		fmt.Printf("⚠️  %d registered models have no table; they will be skipped\n", missing)
	}

	return nil
}
