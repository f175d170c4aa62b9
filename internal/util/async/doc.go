// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunAll] starts every task at once and reports each task's own outcome.
// The SSH executor and the status view use them to fan out per-host and
// per-worker calls.
package async
