package fleet

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/tpunanny/internal/util/labels"
	"github.com/imamik/tpunanny/internal/worker"
)

// DefaultCooldown is the pause between deleting an unhealthy worker and
// creating its replacement.
const DefaultCooldown = 30 * time.Second

// Reconciler drives a single worker towards existence.
type Reconciler struct {
	client   ResourceClient
	runtime  RuntimeSelector
	cooldown time.Duration
	spot     bool
	fleet    string
	labels   map[string]string
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithCooldown sets the pause between delete and create.
func WithCooldown(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		r.cooldown = d
	}
}

// WithSpot requests spot (preemptible) capacity for created workers.
func WithSpot(spot bool) ReconcilerOption {
	return func(r *Reconciler) {
		r.spot = spot
	}
}

// WithFleetLabel records the fleet's worker prefix on created workers.
func WithFleetLabel(prefix string) ReconcilerOption {
	return func(r *Reconciler) {
		r.fleet = prefix
	}
}

// WithLabels adds extra labels to created workers.
func WithLabels(extra map[string]string) ReconcilerOption {
	return func(r *Reconciler) {
		r.labels = extra
	}
}

// NewReconciler creates a Reconciler. A nil runtime selector leaves the
// runtime empty so the provider picks its default.
func NewReconciler(client ResourceClient, runtime RuntimeSelector, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		client:   client,
		runtime:  runtime,
		cooldown: DefaultCooldown,
		spot:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile observes the worker once and acts on its state:
//   - missing workers are created (OutcomeCreated)
//   - suspended or failed workers are deleted, and after the cooldown created
//     again with the same identity (OutcomeRecreated)
//   - anything else is left alone (OutcomeExists)
//
// Provider failures are returned wrapped with worker.ErrProviderUnavailable.
// If ctx is cancelled during the cooldown, ctx.Err() is returned and no
// create is issued. The logger is taken from ctx.
//
// Once a create or delete has been issued the outcome is OutcomeCreated or
// OutcomeRecreated even when an error is returned: a call that failed on the
// client side may still have replaced the worker at the provider.
func (r *Reconciler) Reconcile(ctx context.Context, id worker.Identity, startupScript string) (worker.Outcome, error) {
	log := logr.FromContextOrDiscard(ctx)

	status, err := r.client.Describe(ctx, id)
	if err != nil {
		return worker.OutcomeExists, worker.Unavailable("describe", err)
	}
	recordWorkerStateMetric(id, status.State)

	switch {
	case status.State == worker.StateMissing:
		log.Info("Worker not found, creating")
		if err := r.create(ctx, id, startupScript); err != nil {
			return worker.OutcomeCreated, err
		}
		return worker.OutcomeCreated, nil

	case status.State.Unhealthy():
		log.Info("Worker unhealthy, deleting", "state", status.ProviderState)
		if err := r.client.Delete(ctx, id); err != nil {
			if !worker.IsNotFound(err) {
				return worker.OutcomeRecreated, worker.Unavailable("delete", err)
			}
			log.Info("Worker already deleted")
		}

		log.V(1).Info("Waiting before recreating worker", "cooldown", r.cooldown)
		if err := sleepContext(ctx, r.cooldown); err != nil {
			return worker.OutcomeRecreated, err
		}

		log.Info("Recreating worker")
		if err := r.create(ctx, id, startupScript); err != nil {
			return worker.OutcomeRecreated, err
		}
		return worker.OutcomeRecreated, nil

	default:
		log.V(1).Info("Worker exists", "state", status.ProviderState)
		return worker.OutcomeExists, nil
	}
}

func (r *Reconciler) create(ctx context.Context, id worker.Identity, startupScript string) error {
	req := worker.CreateRequest{
		Identity:      id,
		StartupScript: startupScript,
		Spot:          r.spot,
		Labels:        r.labelsFor(id),
	}
	if r.runtime != nil {
		req.Runtime = r.runtime(id.AcceleratorType)
	}

	if err := r.client.Create(ctx, req); err != nil {
		return worker.Unavailable("create", err)
	}
	return nil
}

func (r *Reconciler) labelsFor(id worker.Identity) map[string]string {
	lb := labels.NewLabelBuilder().
		WithProject(id.Project).
		WithAccelerator(id.AcceleratorType)
	if r.fleet != "" {
		lb.WithFleet(r.fleet)
	}
	return lb.Merge(r.labels).Build()
}
