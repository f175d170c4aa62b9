// Package labels provides consistent labeling for provider resources created
// by tpunanny.
//
// Keys use only lowercase letters, digits and dashes so the same label set is
// valid on Google Cloud TPU nodes and on Hetzner Cloud servers.
package labels
