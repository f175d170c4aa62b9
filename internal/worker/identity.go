package worker

import (
	"fmt"
	"time"
)

// Identity names one supervised worker. It is fixed for the lifetime of a
// babysit loop; every incarnation of the worker reuses it.
type Identity struct {
	Project         string
	Zone            string
	ID              string
	AcceleratorType string
}

// String returns "zone/id", the form used in log lines and reports.
func (i Identity) String() string {
	return fmt.Sprintf("%s/%s", i.Zone, i.ID)
}

// Ref returns the short reference used in reaper reports.
func (i Identity) Ref() Ref {
	return Ref{ID: i.ID, Zone: i.Zone}
}

// Ref is a worker reference without project or accelerator information.
type Ref struct {
	ID   string `json:"id"`
	Zone string `json:"zone"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Zone, r.ID)
}

// Status is one observation of a worker as reported by the provider.
// A worker that does not exist is reported as State == StateMissing with no
// error, so callers branch on the value instead of on an error.
type Status struct {
	State State
	// ProviderState is the raw state name reported by the provider
	// (e.g. WAITING_FOR_RESOURCES), kept for logs and status output.
	ProviderState string
	// Endpoints are the reachable host addresses of the worker in provider
	// order. Multi-host workers have one entry per host.
	Endpoints []string
}

// Missing is the Status reported for a worker that does not exist.
func Missing() Status {
	return Status{State: StateMissing, ProviderState: "NOT_FOUND"}
}

// CreateRequest describes a worker to create.
type CreateRequest struct {
	Identity Identity
	// Runtime is the provider image/runtime chosen for the accelerator type.
	Runtime string
	// StartupScript is passed to the worker as its boot-time script. Optional.
	StartupScript string
	Spot          bool
	Labels        map[string]string
}

// Listing is one entry of a project-wide worker listing.
type Listing struct {
	Identity      Identity
	State         State
	ProviderState string
	CreatedAt     time.Time
	Spot          bool
}
