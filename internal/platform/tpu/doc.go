// Package tpu implements the fleet resource client on Google Cloud TPU
// queued resources (TPU API v2).
//
// Each worker is one queued resource holding a single node with the same ID.
// Describe reports a missing queued resource as worker.StateMissing. Create
// and Delete wait for the returned long-running operation. Transient API
// errors (429 and 5xx) are retried with exponential backoff.
package tpu
