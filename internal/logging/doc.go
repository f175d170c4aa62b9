// Package logging builds the zap-backed logr loggers used across tpunanny.
//
// The CLI gets one base logger from [New]. Each babysit loop gets its own
// logger from [WorkerSinks.ForWorker], which writes to a per-worker file and
// optionally mirrors to a stream such as stdout.
package logging
