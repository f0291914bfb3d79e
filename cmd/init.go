package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold zerogen config and model registry files",
	Long: `Scaffold the two files zerogen reads: zerogen.yaml for generator
settings and models.yaml for the model registry.

The model registry declares what the database catalog cannot express:
associations, enum value sets, and positioning narrowing. Tables
without a registry entry still generate when they carry detectable
patterns.

Examples:
  zerogen init                    # Create zerogen.yaml and models.yaml
`,
	Run: func(cmd *cobra.Command, args []string) {
		wrote := 0

		if _, err := os.Stat("zerogen.yaml"); err == nil {
			fmt.Println("⚠️  zerogen.yaml already exists, leaving it alone")
		} else {
			if err := os.WriteFile("zerogen.yaml", []byte(configExample), 0644); err != nil {
				fmt.Println("❌ Error creating zerogen.yaml:", err)
				os.Exit(1)
			}
			fmt.Println("✅ Created zerogen.yaml")
			wrote++
		}

		if _, err := os.Stat("models.yaml"); err == nil {
			fmt.Println("⚠️  models.yaml already exists, leaving it alone")
		} else {
			if err := os.WriteFile("models.yaml", []byte(registryExample), 0644); err != nil {
				fmt.Println("❌ Error creating models.yaml:", err)
				os.Exit(1)
			}
			fmt.Println("✅ Created models.yaml")
			wrote++
		}

		if wrote == 0 {
			return
		}

		fmt.Println("📝 Edit models.yaml to declare your models and associations")
		fmt.Println("🔑 Set DATABASE_URL in your environment or a .env file")
		fmt.Println("🚀 Run 'zerogen generate' to generate the sync client")
	},
}

const configExample = `# zerogen generator configuration. Flags override these values.

# Where the per-table mutator files go.
output_dir: frontend/src/lib/mutations

# Whole-schema outputs, regenerated on every run.
schema_file: frontend/src/lib/schema.gen.ts
types_file: frontend/src/lib/types.gen.ts

# Output file extension: ts or js.
extension: ts

# Tables that never get mutators, on top of the built-in
# infrastructure exclusions (schema_migrations, solid_queue_*, ...).
excluded_tables: []
#  - audit_snapshots

# Rename generated operations. delete: discard emits discardTask
# instead of deleteTask.
name_overrides: {}
#  delete: discard
#  restore: undiscard

# Force a client type per native type: string, number, boolean, json.
type_overrides: {}
#  citext: string

# Tables generated in parallel. Raise for large databases.
workers: 1
`

const registryExample = `# zerogen model registry. Declares what the database catalog cannot
# express: associations, enum value sets, and positioning behavior.
#
# Conventions fill in the rest: a model named Task maps to the tasks
# table, and belongs_to job implies the job_id foreign key.

version: 1

models:
  - name: Client
    has_many:
      - name: jobs

  - name: Job
    belongs_to:
      - name: client
    has_many:
      - name: tasks
        dependent: destroy
      - name: technicians
        through: job_assignments
    enums:
      status: [open, in_progress, completed, cancelled]

  - name: Task
    belongs_to:
      - name: job
      - name: parent
        table: tasks
    positioning:
      column: position
      ops: [move_before, move_after, move_to_top, move_to_bottom]

  - name: Note
    belongs_to:
      - name: notable
        polymorphic: true
`
