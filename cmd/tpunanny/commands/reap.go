package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tpunanny/cmd/tpunanny/handlers"
)

// Reap returns the reap command.
func Reap() *cobra.Command {
	var flags fleetFlags
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Delete all suspended workers of a project",
		Long: `Reap deletes every SUSPENDED worker of the project, across all zones.

Deletes run in parallel. A worker that disappears before its delete is
reported as already gone. A failed delete does not stop the others, but makes
the command exit non-zero.

Examples:
  tpunanny reap -p my-project
  tpunanny reap -p my-project --include-failed --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reap(cmd.Context(), flags.configPath, flags.overrides(cmd), dryRun, jsonOutput, verbosity(cmd))
		},
	}

	flags.bindProject(cmd)
	flags.bindReaper(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the workers that would be deleted")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
