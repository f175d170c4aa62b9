// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"strconv"

	"github.com/spf13/cobra"
)

// Root returns the root command for the tpunanny CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tpunanny",
		Short:         "Keep a fleet of preemptible TPU workers alive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().IntP("verbosity", "v", 0, "Log verbosity (0 = info, higher shows debug lines)")

	cmd.AddCommand(Babysit())
	cmd.AddCommand(Reap())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())

	return cmd
}

// verbosity reads the persistent --verbosity flag from cmd or its parents.
func verbosity(cmd *cobra.Command) int {
	f := cmd.Flag("verbosity")
	if f == nil {
		return 0
	}
	v, err := strconv.Atoi(f.Value.String())
	if err != nil {
		return 0
	}
	return v
}
