package fleet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/tpunanny/internal/worker"
)

// Default loop intervals.
const (
	DefaultPollInterval      = 60 * time.Second
	DefaultReadyPollInterval = 10 * time.Second
)

// LoopConfig is the per-worker configuration of a babysit loop.
type LoopConfig struct {
	Identity      worker.Identity
	StartupScript string
	// RemoteScript runs once per incarnation after the worker becomes
	// active. Empty disables remote execution.
	RemoteScript string
	// ScriptTargets are host indices of the worker. Empty targets every host.
	ScriptTargets     []int
	PollInterval      time.Duration
	ReadyPollInterval time.Duration
}

// Loop babysits one worker until its signal fires.
type Loop struct {
	cfg        LoopConfig
	reconciler *Reconciler
	client     ResourceClient
	executor   RemoteExecutor
	archiver   TranscriptArchiver
	log        logr.Logger

	// scriptRan is true once the remote script was attempted on the current
	// incarnation. It is reset on every create or recreate.
	scriptRan bool
}

// NewLoop creates a babysit loop. Zero intervals take their defaults.
func NewLoop(cfg LoopConfig, reconciler *Reconciler, deps Dependencies, log logr.Logger) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = DefaultReadyPollInterval
	}
	return &Loop{
		cfg:        cfg,
		reconciler: reconciler,
		client:     deps.Client,
		executor:   deps.Executor,
		archiver:   deps.Archiver,
		log:        log,
	}
}

// ScriptRan reports whether the script ran on the current incarnation.
func (l *Loop) ScriptRan() bool {
	return l.scriptRan
}

// Run reconciles the worker every poll interval until sig fires.
func (l *Loop) Run(sig *Signal) {
	l.log.Info("Babysitting worker", "acceleratorType", l.cfg.Identity.AcceleratorType)
	for !sig.Fired() {
		l.iterate(sig)
		if sig.Wait(l.cfg.PollInterval) {
			break
		}
	}
	l.log.Info("Babysit loop stopped")
}

// iterate runs one reconcile, wait and execute pass. Failures are logged and
// left for the next pass.
func (l *Loop) iterate(sig *Signal) {
	ctx, cancel := sig.Context(context.Background())
	defer cancel()
	ctx = logr.NewContext(ctx, l.log)

	id := l.cfg.Identity
	start := time.Now()
	outcome, err := l.reconciler.Reconcile(ctx, id, l.cfg.StartupScript)
	if outcome.NewIncarnation() {
		l.scriptRan = false
	}
	if err != nil {
		if sig.Fired() {
			return
		}
		recordReconcileMetric(id, "error", time.Since(start).Seconds())
		l.log.Error(err, "Reconcile failed")
		return
	}
	recordReconcileMetric(id, outcome.String(), time.Since(start).Seconds())

	if outcome.NewIncarnation() {
		l.log.Info("Worker "+outcome.String(), "outcome", outcome.String())
	}

	if l.cfg.RemoteScript == "" || l.scriptRan {
		return
	}

	status, ok := l.waitUntilActive(ctx, sig)
	if !ok {
		return
	}
	l.runScript(ctx, status)
}

// waitUntilActive polls the worker until it is active. It gives up when the
// signal fires, when describe fails, or when the worker turns missing,
// suspended or failed, leaving recovery to the next reconcile.
func (l *Loop) waitUntilActive(ctx context.Context, sig *Signal) (worker.Status, bool) {
	for {
		status, err := l.client.Describe(ctx, l.cfg.Identity)
		if err != nil {
			if !sig.Fired() {
				l.log.Error(worker.Unavailable("describe", err), "Failed to check worker readiness")
			}
			return worker.Status{}, false
		}

		switch {
		case status.State == worker.StateActive:
			return status, true
		case status.State == worker.StateMissing || status.State.Unhealthy():
			l.log.Info("Worker left provisioning before becoming active", "state", status.ProviderState)
			return worker.Status{}, false
		}

		l.log.V(1).Info("Waiting for worker to become active", "state", status.ProviderState)
		if sig.Wait(l.cfg.ReadyPollInterval) {
			return worker.Status{}, false
		}
	}
}

func (l *Loop) runScript(ctx context.Context, status worker.Status) {
	id := l.cfg.Identity
	targets, err := selectTargets(status.Endpoints, l.cfg.ScriptTargets)
	if err != nil {
		l.log.Error(err, "Cannot run remote script")
		return
	}
	if l.executor == nil {
		l.log.Error(errors.New("no remote executor configured"), "Cannot run remote script")
		return
	}

	stdout := newLineWriter(l.log, false)
	stderr := newLineWriter(l.log, true)
	l.log.Info("Running remote script", "hosts", len(targets), "primary", targets[0])

	started := time.Now()
	result, err := l.executor.Run(ctx, worker.ScriptRequest{
		Addresses: targets,
		Script:    l.cfg.RemoteScript,
		Stdout:    stdout,
		Stderr:    stderr,
	})
	finished := time.Now()
	stdout.Flush()
	stderr.Flush()

	// Attempted counts as ran, whatever the exit status.
	l.scriptRan = true
	recordScriptRunMetric(id, err == nil)

	if result.Address == "" {
		result.Address = targets[0]
	}
	if err != nil {
		l.log.Error(err, "Remote script failed", "address", result.Address, "exitCode", result.ExitCode)
	} else {
		l.log.Info("Remote script finished", "address", result.Address, "exitCode", result.ExitCode)
	}
	for _, host := range result.Secondary {
		if host.Err != nil {
			l.log.Error(host.Err, "Remote script failed on secondary host", "address", host.Address, "exitCode", host.ExitCode)
		}
	}

	if l.archiver == nil {
		return
	}
	transcript := worker.Transcript{
		Identity:   id,
		Address:    result.Address,
		StartedAt:  started,
		FinishedAt: finished,
		ExitCode:   result.ExitCode,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
	}
	if err != nil {
		transcript.Error = err.Error()
	}
	if err := l.archiver.Archive(ctx, transcript); err != nil {
		l.log.Error(err, "Failed to archive script transcript")
	}
}

// selectTargets picks the script hosts from a worker's endpoints. The first
// returned address is the primary host.
func selectTargets(endpoints []string, targets []int) ([]string, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("worker has no reachable endpoints")
	}
	if len(targets) == 0 {
		return append([]string(nil), endpoints...), nil
	}

	selected := make([]string, 0, len(targets))
	seen := make(map[int]bool, len(targets))
	for _, idx := range targets {
		if idx < 0 || idx >= len(endpoints) {
			return nil, fmt.Errorf("script target %d out of range (worker has %d hosts)", idx, len(endpoints))
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		selected = append(selected, endpoints[idx])
	}
	return selected, nil
}

// lineWriter logs everything written to it, one log line per output line.
type lineWriter struct {
	mu     sync.Mutex
	log    logr.Logger
	stderr bool
	buf    []byte
}

func newLineWriter(log logr.Logger, stderr bool) *lineWriter {
	return &lineWriter{log: log, stderr: stderr}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if w.stderr {
		w.log.Error(nil, line, "stream", "stderr")
		return
	}
	w.log.Info(line, "stream", "stdout")
}
