package fleet

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/imamik/tpunanny/internal/worker"
)

// ReapPolicy selects what the Reaper deletes and how.
type ReapPolicy struct {
	// IncludeFailed also deletes FAILED workers.
	IncludeFailed bool
	// Concurrency caps parallel deletes. Zero issues all deletes at once.
	Concurrency int
}

// DeleteFailure is one delete the Reaper could not complete.
type DeleteFailure struct {
	Ref worker.Ref
	Err error
}

// ReapReport is the outcome of one reap.
type ReapReport struct {
	// Deleted are the workers whose delete succeeded.
	Deleted []worker.Ref
	// AlreadyGone were selected but had disappeared before the delete.
	AlreadyGone []worker.Ref
	Failed      []DeleteFailure
}

// Reaper deletes every suspended worker of a project in one batch.
type Reaper struct {
	client ResourceClient
	policy ReapPolicy
	log    logr.Logger
}

// NewReaper creates a Reaper.
func NewReaper(client ResourceClient, policy ReapPolicy, log logr.Logger) *Reaper {
	return &Reaper{client: client, policy: policy, log: log}
}

// Selects reports whether the policy reaps a worker in the given state.
func (p ReapPolicy) Selects(state worker.State) bool {
	return state == worker.StateSuspended || (p.IncludeFailed && state == worker.StateFailed)
}

// Reap lists every worker of the project and deletes the selected ones
// concurrently. A failed delete never aborts the batch; only a failed listing
// is returned as an error.
func (r *Reaper) Reap(ctx context.Context, project string) (*ReapReport, error) {
	listings, err := r.client.List(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", worker.Unavailable("list", err))
	}

	var selected []worker.Listing
	for _, l := range listings {
		if r.policy.Selects(l.State) {
			selected = append(selected, l)
		}
	}

	report := &ReapReport{}
	if len(selected) == 0 {
		r.log.Info("No workers to reap", "project", project, "listed", len(listings))
		return report, nil
	}
	r.log.Info("Reaping workers", "project", project, "count", len(selected))

	errs := make([]error, len(selected))
	var g errgroup.Group
	if r.policy.Concurrency > 0 {
		g.SetLimit(r.policy.Concurrency)
	}
	for i, l := range selected {
		g.Go(func() error {
			errs[i] = r.client.Delete(ctx, l.Identity)
			return nil
		})
	}
	_ = g.Wait()

	for i, l := range selected {
		ref := l.Identity.Ref()
		switch err := errs[i]; {
		case err == nil:
			r.log.Info("Deleted worker", "worker", ref.ID, "zone", ref.Zone, "state", l.ProviderState)
			recordReaperDeleteMetric("deleted")
			report.Deleted = append(report.Deleted, ref)
		case worker.IsNotFound(err):
			r.log.Info("Worker already gone", "worker", ref.ID, "zone", ref.Zone)
			recordReaperDeleteMetric("already_gone")
			report.AlreadyGone = append(report.AlreadyGone, ref)
		default:
			r.log.Error(err, "Failed to delete worker", "worker", ref.ID, "zone", ref.Zone)
			recordReaperDeleteMetric("failed")
			report.Failed = append(report.Failed, DeleteFailure{Ref: ref, Err: err})
		}
	}
	return report, nil
}
