package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tpunanny/cmd/tpunanny/handlers"
)

// Status returns the command listing the workers of a project.
//
// Optional flags:
//
//	--watch, -w: Continuously watch status updates
//	--interval: Refresh period of --watch
//	--json: Output in JSON format
func Status() *cobra.Command {
	var flags fleetFlags
	var opts handlers.StatusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the workers of a project",
		Long: `Status lists every worker of the project with its zone, accelerator
type, IP address, state and age, sorted by worker ID.

Examples:
  tpunanny status -p my-project
  tpunanny status -p my-project --watch
  tpunanny status -p my-project --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), flags.configPath, flags.overrides(cmd), opts)
		},
	}

	flags.bindProject(cmd)
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Continuously watch status updates")
	cmd.Flags().DurationVar(&opts.Interval, "interval", handlers.DefaultWatchInterval, "Refresh period of --watch")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}
