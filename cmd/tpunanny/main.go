// Package main is the entry point for the tpunanny CLI.
//
// tpunanny keeps a fleet of preemptible accelerator workers alive: it
// recreates workers the provider suspended or failed, runs a setup script on
// every fresh incarnation and reaps suspended workers in bulk.
//
// Commands: babysit, reap, status, version.
//
// For detailed usage information, run:
//
//	tpunanny --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/tpunanny/cmd/tpunanny/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
