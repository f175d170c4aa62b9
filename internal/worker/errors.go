package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the worker does not exist at the provider.
	ErrNotFound = errors.New("worker not found")

	// ErrProviderUnavailable indicates a provider call could not complete,
	// even after the client's own retries.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidConfig indicates a setup error in the fleet definition.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Unavailable wraps err as a provider failure for the given operation.
// Nil and not-found errors are returned unchanged.
func Unavailable(operation string, err error) error {
	if err == nil || IsNotFound(err) || errors.Is(err, ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, operation, err)
}

// RemoteExecutionError reports a script that exited non-zero or could not be
// run at all. ExitCode is -1 when the script never produced an exit status.
type RemoteExecutionError struct {
	Address  string
	ExitCode int
	Err      error
}

func (e *RemoteExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote execution on %s failed (exit code %d): %v", e.Address, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("remote execution on %s failed (exit code %d)", e.Address, e.ExitCode)
}

func (e *RemoteExecutionError) Unwrap() error {
	return e.Err
}
