// Package config defines the configuration model of a babysat fleet.
//
// A [Fleet] is read from a YAML file with [LoadFile] (or assembled from CLI
// flags), completed with [Fleet.ApplyDefaults] and checked with
// [Fleet.Validate]. Provider call timeouts and retry parameters come from
// environment variables through [LoadTimeouts].
package config
