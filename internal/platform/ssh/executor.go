package ssh

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/imamik/tpunanny/internal/util/async"
	"github.com/imamik/tpunanny/internal/worker"
)

// Executor runs a script on every host of a worker concurrently. The first
// address is the primary host: its output is streamed and captured and its
// exit status decides the result.
type Executor struct {
	client *Client
}

// NewExecutor creates an executor that connects with client.
func NewExecutor(client *Client) *Executor {
	return &Executor{client: client}
}

type hostRun struct {
	exitCode int
	err      error
}

// Run executes req.Script on all of req.Addresses and waits for every host.
func (e *Executor) Run(ctx context.Context, req worker.ScriptRequest) (worker.ScriptResult, error) {
	if len(req.Addresses) == 0 {
		return worker.ScriptResult{ExitCode: -1}, &worker.RemoteExecutionError{
			ExitCode: -1,
			Err:      errors.New("no addresses to run on"),
		}
	}

	var primaryOut, primaryErr bytes.Buffer
	runs := make([]hostRun, len(req.Addresses))
	tasks := make([]async.Task, len(req.Addresses))

	for i, addr := range req.Addresses {
		stdout, stderr := io.Discard, io.Discard
		if i == 0 {
			stdout = tee(&primaryOut, req.Stdout)
			stderr = tee(&primaryErr, req.Stderr)
		}
		tasks[i] = async.Task{
			Name: addr,
			Func: func(ctx context.Context) error {
				code, err := e.client.Run(ctx, addr, req.Script, stdout, stderr)
				runs[i] = hostRun{exitCode: code, err: err}
				return err
			},
		}
	}
	async.RunAll(ctx, tasks)

	result := worker.ScriptResult{
		Address:  req.Addresses[0],
		ExitCode: runs[0].exitCode,
		Stdout:   primaryOut.String(),
		Stderr:   primaryErr.String(),
	}
	for i, addr := range req.Addresses[1:] {
		run := runs[i+1]
		result.Secondary = append(result.Secondary, worker.HostOutcome{
			Address:  addr,
			ExitCode: run.exitCode,
			Err:      hostError(addr, run),
		})
	}

	return result, hostError(result.Address, runs[0])
}

func hostError(addr string, run hostRun) error {
	if run.err == nil && run.exitCode == 0 {
		return nil
	}
	return &worker.RemoteExecutionError{Address: addr, ExitCode: run.exitCode, Err: run.err}
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
