package config

import (
	"time"

	"github.com/imamik/tpunanny/internal/util/naming"
	"github.com/imamik/tpunanny/internal/util/ptr"
)

// Provider names.
const (
	ProviderTPU    = "tpu"
	ProviderHCloud = "hcloud"
)

// Default loop intervals.
const (
	DefaultPollInterval      = 60 * time.Second
	DefaultReadyPollInterval = 10 * time.Second
	DefaultCooldown          = 30 * time.Second
	DefaultStagger           = 1 * time.Second
	DefaultSSHPort           = 22
	DefaultLogDir            = "logs"
)

// Fleet is the desired state of one babysat fleet.
type Fleet struct {
	Provider        string `yaml:"provider"`
	Project         string `yaml:"project"`
	Zone            string `yaml:"zone"`
	AcceleratorType string `yaml:"acceleratorType"`
	// WorkerPrefix defaults to tn-<acceleratorType>.
	WorkerPrefix string `yaml:"workerPrefix"`
	Indices      []int  `yaml:"indices"`
	Spot         *bool  `yaml:"spot"`

	// RemoteScript and StartupScript are file paths. The handler reads them.
	RemoteScript  string `yaml:"remoteScript"`
	StartupScript string `yaml:"startupScript"`
	// ScriptTargets selects host indices of a multi-host worker that run the
	// remote script. Empty means every host. The first target is primary.
	ScriptTargets []int `yaml:"scriptTargets"`

	SSH       SSH       `yaml:"ssh"`
	Intervals Intervals `yaml:"intervals"`
	Reaper    Reaper    `yaml:"reaper"`
	Archive   Archive   `yaml:"archive"`

	LogDir      string `yaml:"logDir"`
	StreamLogs  bool   `yaml:"streamLogs"`
	MetricsAddr string `yaml:"metricsAddr"`

	// Credentials is a Google service account key file. Empty uses
	// Application Default Credentials.
	Credentials string `yaml:"credentials"`
	// SSHKeys are Hetzner SSH key names installed on created servers.
	SSHKeys []string `yaml:"sshKeys"`
}

// SSH configures remote script execution.
type SSH struct {
	User           string `yaml:"user"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
	Port           int    `yaml:"port"`
}

// Intervals configures the babysit loop timing.
type Intervals struct {
	Poll      time.Duration `yaml:"poll"`
	ReadyPoll time.Duration `yaml:"readyPoll"`
	Cooldown  time.Duration `yaml:"cooldown"`
	Stagger   time.Duration `yaml:"stagger"`
}

// Reaper configures bulk cleanup.
type Reaper struct {
	// IncludeFailed also reaps FAILED workers, not only SUSPENDED ones.
	IncludeFailed bool `yaml:"includeFailed"`
	// Concurrency caps parallel deletes. Zero fires all deletes at once.
	Concurrency int `yaml:"concurrency"`
}

// Archive configures transcript upload to S3-compatible storage.
// It is disabled when Bucket is empty.
type Archive struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`

	// PathStyle addresses the bucket in the URL path instead of the host.
	PathStyle bool `yaml:"pathStyle"`
}

// Enabled reports whether transcripts should be archived.
func (a Archive) Enabled() bool {
	return a.Bucket != ""
}

// ApplyDefaults fills every unset field with its default.
func (f *Fleet) ApplyDefaults() {
	if f.Provider == "" {
		f.Provider = ProviderTPU
	}
	if f.WorkerPrefix == "" && f.AcceleratorType != "" {
		f.WorkerPrefix = naming.DefaultPrefix(f.AcceleratorType)
	}
	if f.Spot == nil {
		f.Spot = ptr.To(true)
	}
	if f.SSH.Port == 0 {
		f.SSH.Port = DefaultSSHPort
	}
	if f.Intervals.Poll == 0 {
		f.Intervals.Poll = DefaultPollInterval
	}
	if f.Intervals.ReadyPoll == 0 {
		f.Intervals.ReadyPoll = DefaultReadyPollInterval
	}
	if f.Intervals.Cooldown == 0 {
		f.Intervals.Cooldown = DefaultCooldown
	}
	if f.Intervals.Stagger == 0 {
		f.Intervals.Stagger = DefaultStagger
	}
	if f.LogDir == "" {
		f.LogDir = DefaultLogDir
	}
	if f.Archive.Region == "" {
		f.Archive.Region = "auto"
	}
}

// UseSpot reports whether workers are requested as spot capacity.
func (f *Fleet) UseSpot() bool {
	return ptr.Deref(f.Spot, true)
}
