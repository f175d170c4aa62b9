// Package worker defines the provider-neutral vocabulary shared by the fleet
// controller and the platform clients: worker identities, observed lifecycle
// states, create requests, project listings, remote script requests and the
// error taxonomy used to classify provider failures.
package worker
