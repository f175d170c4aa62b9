package worker

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ScriptRequest asks a remote executor to run Script on every address.
// Output of the first address is streamed to Stdout/Stderr when set; output of
// the other addresses is discarded.
type ScriptRequest struct {
	Addresses []string
	Script    string
	Stdout    io.Writer
	Stderr    io.Writer
}

// ScriptResult is the primary (first address) result of a script run.
type ScriptResult struct {
	Address  string
	ExitCode int
	Stdout   string
	Stderr   string
	// Secondary holds the outcome of every other address, in request order.
	Secondary []HostOutcome
}

// HostOutcome is the outcome of a script run on a non-primary address.
type HostOutcome struct {
	Address  string
	ExitCode int
	Err      error
}

// Transcript is the record of one remote script run, kept for archiving.
type Transcript struct {
	Identity   Identity
	Address    string
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
	Stdout     string
	Stderr     string
	// Error is the execution error text, empty on success.
	Error string
}

// Key returns the object key of the transcript below prefix:
// "<prefix>/<zone>/<id>/<started>.log". An empty prefix is omitted.
func (t Transcript) Key(prefix string) string {
	key := fmt.Sprintf("%s/%s/%s.log", t.Identity.Zone, t.Identity.ID, t.StartedAt.UTC().Format("20060102T150405Z"))
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// Render formats the transcript as a plain text document.
func (t Transcript) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "worker: %s\n", t.Identity)
	fmt.Fprintf(&b, "project: %s\n", t.Identity.Project)
	fmt.Fprintf(&b, "address: %s\n", t.Address)
	fmt.Fprintf(&b, "started: %s\n", t.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "finished: %s\n", t.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "exit code: %d\n", t.ExitCode)
	if t.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", t.Error)
	}
	b.WriteString("\n--- stdout ---\n")
	b.WriteString(t.Stdout)
	b.WriteString("\n--- stderr ---\n")
	b.WriteString(t.Stderr)
	return b.String()
}
