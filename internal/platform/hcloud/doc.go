// Package hcloud runs fleet workers as Hetzner Cloud servers.
//
// A worker is a server named after the worker ID. Its zone is the Hetzner
// location (fsn1, nbg1, ...) and its accelerator type is the server type.
// Hetzner has no project boundary below the API token, so workers carry a
// project label and project-wide listings filter on it.
//
// Server status is mapped onto worker states:
//
//   - running: active
//   - initializing, starting, rebuilding, migrating, deleting: pending
//   - off, stopping: suspended
//   - anything else: failed
//
// Hetzner has no spot capacity; the spot flag of a create request is ignored.
// Timeouts and retry parameters come from config.LoadTimeouts.
package hcloud
