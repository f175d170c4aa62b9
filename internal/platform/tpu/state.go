package tpu

import "github.com/imamik/tpunanny/internal/worker"

// Queued resource states as reported by the TPU API.
const (
	StateCreating            = "CREATING"
	StateAccepted            = "ACCEPTED"
	StateProvisioning        = "PROVISIONING"
	StateWaitingForResources = "WAITING_FOR_RESOURCES"
	StateActive              = "ACTIVE"
	StateSuspending          = "SUSPENDING"
	StateSuspended           = "SUSPENDED"
	StateDeleting            = "DELETING"
	StateFailed              = "FAILED"
)

// MapState maps a queued resource state onto a worker state. Unknown and
// transitional states are pending.
func MapState(state string) worker.State {
	switch state {
	case StateActive:
		return worker.StateActive
	case StateSuspended:
		return worker.StateSuspended
	case StateFailed:
		return worker.StateFailed
	default:
		return worker.StatePending
	}
}
