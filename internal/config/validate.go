package config

import (
	"fmt"

	"github.com/imamik/tpunanny/internal/worker"
)

// Validate checks the fleet definition for babysitting.
func (f *Fleet) Validate() error {
	if err := f.ValidateProject(); err != nil {
		return err
	}
	if f.Zone == "" {
		return invalid("zone is required")
	}
	if f.AcceleratorType == "" {
		return invalid("acceleratorType is required")
	}
	if len(f.Indices) == 0 {
		return invalid("at least one worker index is required")
	}

	seen := make(map[int]bool, len(f.Indices))
	for _, idx := range f.Indices {
		if idx < 0 {
			return invalid("worker index %d must not be negative", idx)
		}
		if seen[idx] {
			return invalid("worker index %d is listed twice", idx)
		}
		seen[idx] = true
	}

	for _, target := range f.ScriptTargets {
		if target < 0 {
			return invalid("script target %d must not be negative", target)
		}
	}
	if len(f.ScriptTargets) > 0 && f.RemoteScript == "" {
		return invalid("scriptTargets requires remoteScript")
	}
	if f.RemoteScript != "" && f.SSH.User == "" {
		return invalid("ssh.user is required when remoteScript is set")
	}

	if f.Intervals.Poll <= 0 || f.Intervals.ReadyPoll <= 0 {
		return invalid("poll intervals must be positive")
	}
	if f.Intervals.Cooldown < 0 || f.Intervals.Stagger < 0 {
		return invalid("cooldown and stagger must not be negative")
	}

	if f.Archive.Enabled() && f.Archive.Endpoint == "" {
		return invalid("archive.endpoint is required when archive.bucket is set")
	}
	return nil
}

// ValidateProject checks the fields needed by project-wide commands
// (reap, status).
func (f *Fleet) ValidateProject() error {
	switch f.Provider {
	case ProviderTPU, ProviderHCloud:
	default:
		return invalid("unknown provider %q (want %q or %q)", f.Provider, ProviderTPU, ProviderHCloud)
	}
	if f.Project == "" {
		return invalid("project is required")
	}
	if f.Reaper.Concurrency < 0 {
		return invalid("reaper.concurrency must not be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", worker.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
