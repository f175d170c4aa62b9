package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tpunanny/cmd/tpunanny/handlers"
)

// Babysit returns the babysit command.
func Babysit() *cobra.Command {
	var flags fleetFlags

	cmd := &cobra.Command{
		Use:   "babysit",
		Short: "Keep a fleet of workers alive",
		Long: `Babysit keeps every listed worker alive until interrupted.

Each worker gets its own loop that:
  - creates the worker when it is missing
  - deletes and re-creates it when it is SUSPENDED or FAILED
  - runs the remote script over SSH once per incarnation, when it turns ACTIVE

Every worker logs to <log-dir>/<zone>-<worker>.txt.
Flags override the values of the configuration file.

Examples:
  # Keep workers tn-v5p-8-0..2 alive
  tpunanny babysit -p my-project -z us-east5-a -t v5p-8 -i 0,1,2

  # Run train.sh on every fresh worker
  tpunanny babysit -c fleet.yaml --remote-script train.sh --ssh-user ubuntu --ssh-key ~/.ssh/id_ed25519`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Babysit(cmd.Context(), flags.configPath, flags.overrides(cmd), verbosity(cmd))
		},
	}

	flags.bindProject(cmd)
	flags.bindFleet(cmd)

	return cmd
}
