package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/tpunanny/internal/worker"
)

// captureLogger returns a logger recording every formatted line.
func captureLogger() (logr.Logger, func() []string) {
	var mu sync.Mutex
	var lines []string
	log := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})
	return log, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func newTestLoop(client *MockResourceClient, executor *MockExecutor, script string) *Loop {
	deps := Dependencies{Client: client, Executor: executor}
	r := NewReconciler(client, nil, WithCooldown(0))
	return NewLoop(LoopConfig{
		Identity:          testIdentity(),
		RemoteScript:      script,
		PollInterval:      time.Millisecond,
		ReadyPollInterval: time.Millisecond,
	}, r, deps, logr.Discard())
}

func TestLoop_RunsScriptOncePerIncarnation(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "python train.py")
	sig := NewSignal()

	// Missing: created, becomes active, script runs.
	loop.iterate(sig)
	assert.True(t, loop.ScriptRan())
	assert.Equal(t, 1, executor.runCount())

	// Still active: nothing happens.
	loop.iterate(sig)
	loop.iterate(sig)
	assert.Equal(t, 1, executor.runCount())
	assert.Equal(t, 1, client.createCount())

	// Failed: re-created, flag reset, script runs again.
	client.SetState("tn-v4-8-0", worker.StateFailed)
	loop.iterate(sig)
	assert.Equal(t, 2, client.createCount())
	assert.Equal(t, 1, client.deleteCount())
	assert.Equal(t, 2, executor.runCount())
	assert.True(t, loop.ScriptRan())

	loop.iterate(sig)
	assert.Equal(t, 2, executor.runCount())
}

func TestLoop_FailedWorkerIsRecreatedWithFlagReset(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.SetState("tn-v4-8-0", worker.StateActive)
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "run.sh")
	sig := NewSignal()

	loop.iterate(sig)
	require.Equal(t, 1, executor.runCount())

	// The replacement comes up pending, so the loop waits for it.
	client.SetState("tn-v4-8-0", worker.StateFailed)
	client.mu.Lock()
	client.CreateState = worker.StatePending
	client.mu.Unlock()

	done := make(chan struct{})
	go func() {
		loop.iterate(sig)
		close(done)
	}()

	require.Eventually(t, func() bool { return client.createCount() == 2 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, executor.runCount())

	client.SetState("tn-v4-8-0", worker.StateActive)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop kept waiting after worker became active")
	}

	assert.Equal(t, 2, executor.runCount())
	assert.True(t, loop.ScriptRan())
}

func TestLoop_WaitsForActiveBeforeRunning(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.DescribeFunc = stateSequence(
		worker.StateMissing, // reconcile
		worker.StatePending, // ready poll
		worker.StatePending,
		worker.StateActive,
	)
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "run.sh")

	loop.iterate(NewSignal())

	require.Equal(t, 1, executor.runCount())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, executor.RunCalls[0].Addresses)
	assert.Equal(t, "run.sh", executor.RunCalls[0].Script)
	assert.Len(t, client.DescribeCalls, 4)
}

func TestLoop_WaitAbandonedWhenWorkerTurnsUnhealthy(t *testing.T) {
	t.Parallel()
	for _, state := range []worker.State{worker.StateMissing, worker.StateSuspended, worker.StateFailed} {
		t.Run(state.String(), func(t *testing.T) {
			t.Parallel()
			client := newMockResourceClient()
			client.DescribeFunc = stateSequence(worker.StateMissing, worker.StatePending, state)
			executor := &MockExecutor{}
			loop := newTestLoop(client, executor, "run.sh")

			loop.iterate(NewSignal())

			assert.Zero(t, executor.runCount())
			assert.False(t, loop.ScriptRan())
			assert.Len(t, client.DescribeCalls, 3)
		})
	}
}

func TestLoop_DescribeErrorDuringWait(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	calls := 0
	client.DescribeFunc = func(context.Context, worker.Identity) (worker.Status, error) {
		calls++
		if calls == 1 {
			return worker.Status{State: worker.StateActive, Endpoints: []string{"10.0.0.1"}}, nil
		}
		return worker.Status{}, errors.New("timeout")
	}
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "run.sh")

	loop.iterate(NewSignal())

	assert.Zero(t, executor.runCount())
	assert.False(t, loop.ScriptRan())
}

func TestLoop_FailedScriptStillCountsAsRan(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{"non-zero exit", &worker.RemoteExecutionError{Address: "10.0.0.1", ExitCode: 2}},
		{"transport error", &worker.RemoteExecutionError{Address: "10.0.0.1", ExitCode: -1, Err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newMockResourceClient()
			executor := &MockExecutor{
				RunFunc: func(_ context.Context, req worker.ScriptRequest) (worker.ScriptResult, error) {
					var exitErr *worker.RemoteExecutionError
					errors.As(tt.err, &exitErr)
					return worker.ScriptResult{Address: req.Addresses[0], ExitCode: exitErr.ExitCode}, tt.err
				},
			}
			loop := newTestLoop(client, executor, "run.sh")
			sig := NewSignal()

			loop.iterate(sig)
			loop.iterate(sig)

			assert.True(t, loop.ScriptRan())
			assert.Equal(t, 1, executor.runCount())
		})
	}
}

func TestLoop_NoScriptNoWait(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "")

	loop.iterate(NewSignal())

	assert.Zero(t, executor.runCount())
	assert.Len(t, client.DescribeCalls, 1)
}

func TestLoop_ReconcileErrorSkipsScript(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.CreateFunc = func(context.Context, worker.CreateRequest) error { return errors.New("stockout") }
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "run.sh")

	loop.iterate(NewSignal())

	assert.Zero(t, executor.runCount())
	assert.False(t, loop.ScriptRan())
}

// A create that errors on the client side but succeeds at the provider
// still starts a new incarnation, so the script runs on it.
func TestLoop_CreateErrorStillResetsScriptFlag(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.SetState("tn-v4-8-0", worker.StateActive)
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "run.sh")
	sig := NewSignal()

	loop.iterate(sig)
	require.Equal(t, 1, executor.runCount())
	require.True(t, loop.ScriptRan())

	client.SetState("tn-v4-8-0", worker.StateFailed)
	client.CreateFunc = func(_ context.Context, req worker.CreateRequest) error {
		client.SetState(req.Identity.ID, worker.StateActive)
		return errors.New("operation poll timed out")
	}

	loop.iterate(sig)
	assert.False(t, loop.ScriptRan())
	assert.Equal(t, 1, executor.runCount())

	loop.iterate(sig)
	loop.iterate(sig)

	assert.Equal(t, 1, client.deleteCount())
	assert.Equal(t, 1, client.createCount())
	assert.Equal(t, 2, executor.runCount())
	assert.True(t, loop.ScriptRan())
}

func TestLoop_ScriptTargets(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.Endpoints = []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	executor := &MockExecutor{}
	loop := newTestLoop(client, executor, "run.sh")
	loop.cfg.ScriptTargets = []int{2, 0}

	loop.iterate(NewSignal())

	require.Equal(t, 1, executor.runCount())
	assert.Equal(t, []string{"10.0.0.3", "10.0.0.1"}, executor.RunCalls[0].Addresses)
}

func TestLoop_StreamsScriptOutputToLogger(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	executor := &MockExecutor{
		RunFunc: func(_ context.Context, req worker.ScriptRequest) (worker.ScriptResult, error) {
			fmt.Fprint(req.Stdout, "epoch 1\nepoch 2\npartial")
			fmt.Fprint(req.Stderr, "warning: low memory\n")
			return worker.ScriptResult{Address: req.Addresses[0]}, nil
		},
	}
	log, lines := captureLogger()
	r := NewReconciler(client, nil, WithCooldown(0))
	loop := NewLoop(LoopConfig{Identity: testIdentity(), RemoteScript: "run.sh", ReadyPollInterval: time.Millisecond},
		r, Dependencies{Client: client, Executor: executor}, log)

	loop.iterate(NewSignal())

	all := strings.Join(lines(), "\n")
	assert.Contains(t, all, `"msg"="epoch 1" "stream"="stdout"`)
	assert.Contains(t, all, `"msg"="epoch 2" "stream"="stdout"`)
	assert.Contains(t, all, `"msg"="partial" "stream"="stdout"`)
	assert.Contains(t, all, `"msg"="warning: low memory" "error"=null "stream"="stderr"`)
	assert.Contains(t, all, `"msg"="Remote script finished"`)
}

func TestLoop_ArchivesTranscript(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	executor := &MockExecutor{
		RunFunc: func(_ context.Context, req worker.ScriptRequest) (worker.ScriptResult, error) {
			return worker.ScriptResult{Address: req.Addresses[0], ExitCode: 1, Stdout: "out", Stderr: "err"},
				&worker.RemoteExecutionError{Address: req.Addresses[0], ExitCode: 1}
		},
	}
	archiver := &MockArchiver{}
	r := NewReconciler(client, nil, WithCooldown(0))
	loop := NewLoop(LoopConfig{Identity: testIdentity(), RemoteScript: "run.sh", ReadyPollInterval: time.Millisecond},
		r, Dependencies{Client: client, Executor: executor, Archiver: archiver}, logr.Discard())

	loop.iterate(NewSignal())

	require.Len(t, archiver.Transcripts, 1)
	tr := archiver.Transcripts[0]
	assert.Equal(t, testIdentity(), tr.Identity)
	assert.Equal(t, "10.0.0.1", tr.Address)
	assert.Equal(t, 1, tr.ExitCode)
	assert.Equal(t, "out", tr.Stdout)
	assert.Contains(t, tr.Error, "exit code 1")
	assert.False(t, tr.FinishedAt.Before(tr.StartedAt))
}

func TestLoop_RunStopsWhenSignalFires(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	r := NewReconciler(client, nil)
	loop := NewLoop(LoopConfig{Identity: testIdentity(), PollInterval: time.Hour}, r,
		Dependencies{Client: client}, logr.Discard())
	sig := NewSignal()

	done := make(chan struct{})
	go func() {
		loop.Run(sig)
		close(done)
	}()

	require.Eventually(t, func() bool { return client.createCount() == 1 }, 5*time.Second, time.Millisecond)
	sig.Fire()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after signal fired")
	}
}

func TestLoop_CancelledDuringCooldownDoesNotCreate(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.SetState("tn-v4-8-0", worker.StateSuspended)
	r := NewReconciler(client, nil, WithCooldown(time.Hour))
	loop := NewLoop(LoopConfig{Identity: testIdentity(), PollInterval: time.Millisecond}, r,
		Dependencies{Client: client}, logr.Discard())
	sig := NewSignal()

	done := make(chan struct{})
	go func() {
		loop.Run(sig)
		close(done)
	}()

	require.Eventually(t, func() bool { return client.deleteCount() == 1 }, 5*time.Second, time.Millisecond)
	sig.Fire()
	<-done

	assert.Zero(t, client.createCount())
	assert.Equal(t, 1, client.deleteCount())
}

func TestLoop_CancelledDuringReadyWait(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.CreateState = worker.StatePending
	executor := &MockExecutor{}
	r := NewReconciler(client, nil)
	loop := NewLoop(LoopConfig{
		Identity:          testIdentity(),
		RemoteScript:      "run.sh",
		PollInterval:      time.Hour,
		ReadyPollInterval: time.Hour,
	}, r, Dependencies{Client: client, Executor: executor}, logr.Discard())
	sig := NewSignal()

	done := make(chan struct{})
	go func() {
		loop.Run(sig)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(client.ops()) >= 3 }, 5*time.Second, time.Millisecond)
	sig.Fire()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop during ready wait")
	}
	assert.Zero(t, executor.runCount())
	assert.Equal(t, 1, client.createCount())
}

func TestSelectTargets(t *testing.T) {
	t.Parallel()
	endpoints := []string{"a", "b", "c"}
	tests := []struct {
		name      string
		endpoints []string
		targets   []int
		want      []string
		errMsg    string
	}{
		{name: "all hosts", endpoints: endpoints, want: []string{"a", "b", "c"}},
		{name: "explicit order", endpoints: endpoints, targets: []int{1, 0}, want: []string{"b", "a"}},
		{name: "duplicates dropped", endpoints: endpoints, targets: []int{2, 2}, want: []string{"c"}},
		{name: "out of range", endpoints: endpoints, targets: []int{3}, errMsg: "out of range"},
		{name: "no endpoints", errMsg: "no reachable endpoints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := selectTargets(tt.endpoints, tt.targets)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineWriter_SplitsLines(t *testing.T) {
	t.Parallel()
	log, lines := captureLogger()
	w := newLineWriter(log, false)

	_, _ = w.Write([]byte("a\r\nb"))
	_, _ = w.Write([]byte("c\n"))
	w.Flush()
	w.Flush()

	got := lines()
	require.Len(t, got, 2)
	assert.Contains(t, got[0], `"msg"="a"`)
	assert.Contains(t, got[1], `"msg"="bc"`)
}
