package fleet

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/tpunanny/internal/worker"
)

// ResourceClient is the provider-facing API used by the fleet controller.
// Implementations retry transient failures themselves.
type ResourceClient interface {
	// Describe reports the current status of a worker. A worker that does not
	// exist is reported as worker.StateMissing, not as an error.
	Describe(ctx context.Context, id worker.Identity) (worker.Status, error)

	// Create requests a new worker and returns once the provider accepted it.
	Create(ctx context.Context, req worker.CreateRequest) error

	// Delete force-deletes a worker. It returns an error wrapping
	// worker.ErrNotFound when the worker is already gone.
	Delete(ctx context.Context, id worker.Identity) error

	// List returns every worker of a project across all zones.
	List(ctx context.Context, project string) ([]worker.Listing, error)
}

// RuntimeSelector picks the runtime (image) for an accelerator type.
type RuntimeSelector func(acceleratorType string) string

// RemoteExecutor runs a script on the hosts of an active worker.
// It returns a *worker.RemoteExecutionError when the primary host exits
// non-zero or cannot be reached.
type RemoteExecutor interface {
	Run(ctx context.Context, req worker.ScriptRequest) (worker.ScriptResult, error)
}

// TranscriptArchiver stores the transcript of a remote script run.
type TranscriptArchiver interface {
	Archive(ctx context.Context, transcript worker.Transcript) error
}

// LoggerFactory creates the logger of one babysit loop. The returned func
// releases the logger's resources once the loop has exited.
type LoggerFactory func(id worker.Identity) (logr.Logger, func() error, error)

// Dependencies are the collaborators shared by every loop of a fleet.
type Dependencies struct {
	Client   ResourceClient
	Runtime  RuntimeSelector
	Executor RemoteExecutor
	// Archiver is optional.
	Archiver TranscriptArchiver
	// Loggers is optional. Without it loops log through the supervisor's
	// logger.
	Loggers LoggerFactory
	// Labels are added to every created worker.
	Labels map[string]string
}
