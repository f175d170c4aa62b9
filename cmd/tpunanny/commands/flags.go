package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tpunanny/cmd/tpunanny/handlers"
)

// fleetFlags holds the flags shared by the fleet commands. Every flag
// overrides the matching config file field when set.
type fleetFlags struct {
	configPath string
	o          handlers.Overrides

	spot          bool
	streamLogs    bool
	includeFailed bool
	concurrency   int
}

// bindProject registers the flags every command needs to reach a project.
func (f *fleetFlags) bindProject(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to fleet configuration file (default: "+handlers.DefaultConfigFile+" if present)")
	fs.StringVar(&f.o.Provider, "provider", "", "Worker provider: tpu or hcloud (default: tpu)")
	fs.StringVarP(&f.o.Project, "project", "p", "", "Cloud project")
	fs.StringVar(&f.o.Credentials, "credentials", "", "Service account key file (default: Application Default Credentials)")
}

// bindFleet registers the flags describing the fleet to babysit.
func (f *fleetFlags) bindFleet(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.o.Zone, "zone", "z", "", "Zone of the workers")
	fs.StringVarP(&f.o.AcceleratorType, "accelerator-type", "t", "", "Accelerator type, e.g. v5p-8")
	fs.StringVar(&f.o.WorkerPrefix, "prefix", "", "Worker ID prefix (default: tn-<accelerator-type>)")
	fs.IntSliceVarP(&f.o.Indices, "indices", "i", nil, "Worker indices to keep alive, e.g. 0,1,2")
	fs.BoolVar(&f.spot, "spot", true, "Request spot capacity")
	fs.StringVar(&f.o.StartupScript, "startup-script", "", "Script file passed to the worker as startup script")
	fs.StringVar(&f.o.RemoteScript, "remote-script", "", "Script file run over SSH once per worker incarnation")
	fs.IntSliceVar(&f.o.ScriptTargets, "script-targets", nil, "Host indices that run the remote script (default: all hosts)")
	fs.StringVar(&f.o.SSHUser, "ssh-user", "", "SSH user for the remote script")
	fs.StringVar(&f.o.SSHKey, "ssh-key", "", "SSH private key file for the remote script")
	fs.StringVar(&f.o.LogDir, "log-dir", "", "Directory of the per-worker log files (default: logs)")
	fs.BoolVar(&f.streamLogs, "stream-logs", false, "Also stream every worker's log to stdout")
	fs.StringVar(&f.o.MetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
}

// bindReaper registers the reap policy flags.
func (f *fleetFlags) bindReaper(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.includeFailed, "include-failed", false, "Also delete FAILED workers")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Maximum parallel deletes (0 = all at once)")
}

// overrides resolves the flags the user actually set.
func (f *fleetFlags) overrides(cmd *cobra.Command) handlers.Overrides {
	o := f.o
	fs := cmd.Flags()
	if fs.Changed("spot") {
		o.Spot = &f.spot
	}
	if fs.Changed("stream-logs") {
		o.StreamLogs = &f.streamLogs
	}
	if fs.Changed("include-failed") {
		o.IncludeFailed = &f.includeFailed
	}
	if fs.Changed("concurrency") {
		o.Concurrency = &f.concurrency
	}
	return o
}
