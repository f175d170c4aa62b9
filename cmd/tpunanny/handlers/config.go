package handlers

import (
	"fmt"
	"os"

	"github.com/imamik/tpunanny/internal/config"
)

// DefaultConfigFile is read when no --config flag is given and it exists in
// the working directory.
const DefaultConfigFile = "tpunanny.yaml"

// Overrides are CLI flag values that take precedence over the config file.
// Zero values (nil pointers, empty strings and slices) leave the file value.
type Overrides struct {
	Provider        string
	Project         string
	Zone            string
	AcceleratorType string
	WorkerPrefix    string
	Indices         []int
	Spot            *bool

	RemoteScript  string
	StartupScript string
	ScriptTargets []int
	SSHUser       string
	SSHKey        string

	LogDir      string
	StreamLogs  *bool
	MetricsAddr string
	Credentials string

	IncludeFailed *bool
	Concurrency   *int
}

// Factory function variables for config loading - can be replaced in tests.
var (
	readConfigFile = config.ReadFile

	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
)

// loadConfig reads the config file (explicit or default), applies flag
// overrides and then defaults.
func loadConfig(path string, o Overrides) (*config.Fleet, error) {
	if path == "" && fileExists(DefaultConfigFile) {
		path = DefaultConfigFile
	}

	cfg := &config.Fleet{}
	if path != "" {
		loaded, err := readConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = loaded
	}

	o.apply(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

func (o Overrides) apply(cfg *config.Fleet) {
	setString(&cfg.Provider, o.Provider)
	setString(&cfg.Project, o.Project)
	setString(&cfg.Zone, o.Zone)
	setString(&cfg.AcceleratorType, o.AcceleratorType)
	setString(&cfg.WorkerPrefix, o.WorkerPrefix)
	if len(o.Indices) > 0 {
		cfg.Indices = o.Indices
	}
	if o.Spot != nil {
		cfg.Spot = o.Spot
	}

	setString(&cfg.RemoteScript, o.RemoteScript)
	setString(&cfg.StartupScript, o.StartupScript)
	if len(o.ScriptTargets) > 0 {
		cfg.ScriptTargets = o.ScriptTargets
	}
	setString(&cfg.SSH.User, o.SSHUser)
	setString(&cfg.SSH.PrivateKeyPath, o.SSHKey)

	setString(&cfg.LogDir, o.LogDir)
	if o.StreamLogs != nil {
		cfg.StreamLogs = *o.StreamLogs
	}
	setString(&cfg.MetricsAddr, o.MetricsAddr)
	setString(&cfg.Credentials, o.Credentials)

	if o.IncludeFailed != nil {
		cfg.Reaper.IncludeFailed = *o.IncludeFailed
	}
	if o.Concurrency != nil {
		cfg.Reaper.Concurrency = *o.Concurrency
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
