package hcloud

import (
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/tpunanny/internal/worker"
)

// MapState maps a server status onto a worker state.
func MapState(status hcloud.ServerStatus) worker.State {
	switch status {
	case hcloud.ServerStatusRunning:
		return worker.StateActive
	case hcloud.ServerStatusInitializing,
		hcloud.ServerStatusStarting,
		hcloud.ServerStatusRebuilding,
		hcloud.ServerStatusMigrating,
		hcloud.ServerStatusDeleting:
		return worker.StatePending
	case hcloud.ServerStatusOff, hcloud.ServerStatusStopping:
		return worker.StateSuspended
	default:
		return worker.StateFailed
	}
}

// providerState renders a server status the way TPU states are rendered.
func providerState(status hcloud.ServerStatus) string {
	if status == "" {
		return "UNKNOWN"
	}
	return string(status)
}
