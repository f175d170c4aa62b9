// Package fleet keeps a fleet of accelerator workers alive.
//
// A [Reconciler] drives one worker towards existence: it creates missing
// workers and deletes and recreates suspended or failed ones. A [Loop]
// reconciles one worker forever, waits for it to become active and runs the
// remote script once per incarnation. A [Supervisor] runs one loop per worker
// of a fleet and replaces the running fleet when asked to babysit a new one.
// A [Reaper] deletes every suspended worker of a project in one batch.
//
// All waits select on a [Signal], so firing it stops every loop of a fleet
// within one polling interval, and in-flight provider calls are cancelled.
package fleet
