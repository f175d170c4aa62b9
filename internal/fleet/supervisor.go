package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/imamik/tpunanny/internal/util/naming"
	"github.com/imamik/tpunanny/internal/worker"
)

// DefaultStagger is the delay between starting consecutive loops.
const DefaultStagger = 1 * time.Second

// FleetSpec describes a fleet to babysit.
type FleetSpec struct {
	Project         string
	Zone            string
	AcceleratorType string
	// WorkerPrefix defaults to tn-<AcceleratorType>.
	WorkerPrefix  string
	Indices       []int
	Spot          bool
	StartupScript string
	RemoteScript  string
	ScriptTargets []int

	PollInterval      time.Duration
	ReadyPollInterval time.Duration
	Cooldown          time.Duration
	Stagger           time.Duration
}

// Validate checks the spec. Errors wrap worker.ErrInvalidConfig.
func (s FleetSpec) Validate() error {
	switch {
	case s.Project == "":
		return invalidSpec("project is required")
	case s.Zone == "":
		return invalidSpec("zone is required")
	case s.AcceleratorType == "":
		return invalidSpec("accelerator type is required")
	case len(s.Indices) == 0:
		return invalidSpec("at least one worker index is required")
	case s.Cooldown < 0 || s.Stagger < 0 || s.PollInterval < 0 || s.ReadyPollInterval < 0:
		return invalidSpec("intervals must not be negative")
	}

	seen := make(map[string]bool, len(s.Indices))
	for _, id := range s.Identities() {
		if seen[id.ID] {
			return invalidSpec("worker %s is listed twice", id.ID)
		}
		seen[id.ID] = true
	}
	return nil
}

// Prefix returns the worker ID prefix of the fleet.
func (s FleetSpec) Prefix() string {
	if s.WorkerPrefix != "" {
		return s.WorkerPrefix
	}
	return naming.DefaultPrefix(s.AcceleratorType)
}

// Identities returns the identity of every worker, in index order.
func (s FleetSpec) Identities() []worker.Identity {
	ids := make([]worker.Identity, 0, len(s.Indices))
	for _, idx := range s.Indices {
		ids = append(ids, worker.Identity{
			Project:         s.Project,
			Zone:            s.Zone,
			ID:              naming.WorkerID(s.Prefix(), idx),
			AcceleratorType: s.AcceleratorType,
		})
	}
	return ids
}

func invalidSpec(format string, args ...any) error {
	return fmt.Errorf("%w: %s", worker.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// run is one babysat fleet.
type run struct {
	signal *Signal
	done   chan struct{}
}

// Supervisor runs one babysit loop per worker of the active fleet.
// At most one fleet is active per Supervisor.
type Supervisor struct {
	deps Dependencies
	log  logr.Logger

	mu     sync.Mutex
	active *run
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(deps Dependencies, log logr.Logger) *Supervisor {
	return &Supervisor{deps: deps, log: log}
}

// Babysit supervises the fleet until ctx is cancelled, Stop is called, or a
// later Babysit call supersedes it. A previously active fleet is stopped
// first and its loops are awaited. Babysit blocks until every loop of this
// fleet has exited. Only setup errors are returned.
func (s *Supervisor) Babysit(ctx context.Context, spec FleetSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if s.deps.Client == nil {
		return invalidSpec("a resource client is required")
	}
	if spec.RemoteScript != "" && s.deps.Executor == nil {
		return invalidSpec("a remote executor is required to run a remote script")
	}
	if spec.Cooldown == 0 {
		spec.Cooldown = DefaultCooldown
	}
	if spec.Stagger == 0 {
		spec.Stagger = DefaultStagger
	}

	current := &run{signal: NewSignal(), done: make(chan struct{})}
	var previous *run
	// done closes only after every earlier fleet is gone, even when this
	// call is superseded before its predecessor has exited.
	defer func() {
		if previous == nil {
			close(current.done)
			return
		}
		go func() {
			<-previous.done
			close(current.done)
		}()
	}()

	s.mu.Lock()
	previous = s.active
	s.active = current
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.active == current {
			s.active = nil
		}
		s.mu.Unlock()
	}()

	stop := context.AfterFunc(ctx, current.signal.Fire)
	defer stop()

	if previous != nil {
		s.log.Info("Stopping previous fleet")
		previous.signal.Fire()
		select {
		case <-previous.done:
		case <-current.signal.Done():
			return nil
		}
	}

	reconciler := NewReconciler(s.deps.Client, s.deps.Runtime,
		WithCooldown(spec.Cooldown),
		WithSpot(spec.Spot),
		WithFleetLabel(spec.Prefix()),
		WithLabels(s.deps.Labels),
	)

	s.log.Info("Babysitting fleet",
		"project", spec.Project,
		"zone", spec.Zone,
		"acceleratorType", spec.AcceleratorType,
		"workers", len(spec.Indices),
	)

	var g errgroup.Group
	for i, id := range spec.Identities() {
		if i > 0 && current.signal.Wait(spec.Stagger) {
			break
		}
		if current.signal.Fired() {
			break
		}

		log, release := s.loggerFor(id)
		loop := NewLoop(LoopConfig{
			Identity:          id,
			StartupScript:     spec.StartupScript,
			RemoteScript:      spec.RemoteScript,
			ScriptTargets:     spec.ScriptTargets,
			PollInterval:      spec.PollInterval,
			ReadyPollInterval: spec.ReadyPollInterval,
		}, reconciler, s.deps, log)

		g.Go(func() error {
			activeLoops.Inc()
			defer activeLoops.Dec()
			defer release()

			loop.Run(current.signal)
			return nil
		})
	}

	_ = g.Wait()
	s.log.Info("Fleet stopped", "project", spec.Project, "zone", spec.Zone)
	return nil
}

// Stop fires the signal of the active fleet, if any. It does not wait.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.signal.Fire()
	}
}

// loggerFor returns the loop logger for a worker and its release func.
func (s *Supervisor) loggerFor(id worker.Identity) (logr.Logger, func()) {
	keys := []any{"worker", id.ID, "zone", id.Zone, "project", id.Project}
	if s.deps.Loggers == nil {
		return s.log.WithValues(keys...), func() {}
	}

	log, closeFn, err := s.deps.Loggers(id)
	if err != nil {
		s.log.Error(err, "Failed to create worker logger, using fleet logger", keys...)
		return s.log.WithValues(keys...), func() {}
	}
	return log.WithValues(keys...), func() {
		if closeFn == nil {
			return
		}
		if err := closeFn(); err != nil {
			s.log.Error(err, "Failed to close worker logger", keys...)
		}
	}
}
