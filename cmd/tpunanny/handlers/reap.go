package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/go-logr/logr"

	"github.com/imamik/tpunanny/internal/fleet"
	"github.com/imamik/tpunanny/internal/logging"
	"github.com/imamik/tpunanny/internal/util/naming"
	"github.com/imamik/tpunanny/internal/worker"
)

// ReapResult is the JSON form of a reap run.
type ReapResult struct {
	Project     string        `json:"project"`
	DryRun      bool          `json:"dryRun,omitempty"`
	Selected    []string      `json:"selected,omitempty"`
	Deleted     []string      `json:"deleted"`
	AlreadyGone []string      `json:"alreadyGone"`
	Failed      []ReapFailure `json:"failed"`
}

// ReapFailure is one delete that failed.
type ReapFailure struct {
	Worker string `json:"worker"`
	Error  string `json:"error"`
}

// Reap handles the reap command.
//
// It deletes every SUSPENDED worker of the project (and FAILED ones with
// --include-failed) in parallel. With dryRun it only lists them.
func Reap(ctx context.Context, configPath string, o Overrides, dryRun, jsonOutput bool, verbosity int) error {
	cfg, err := loadConfig(configPath, o)
	if err != nil {
		return err
	}
	if err := cfg.ValidateProject(); err != nil {
		return err
	}

	log := logging.New(logging.Options{Verbosity: verbosity, Stream: stderr})
	ctx = logr.NewContext(ctx, log)

	client, _, err := newResourceClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	policy := fleet.ReapPolicy{
		IncludeFailed: cfg.Reaper.IncludeFailed,
		Concurrency:   cfg.Reaper.Concurrency,
	}

	if dryRun {
		selected, err := selectForReap(ctx, client, cfg.Project, policy)
		if err != nil {
			return err
		}
		result := &ReapResult{Project: cfg.Project, DryRun: true, Selected: selected}
		if jsonOutput {
			return printJSON(stdout, result)
		}
		printDryRun(stdout, result)
		return nil
	}

	report, err := fleet.NewReaper(client, policy, log).Reap(ctx, cfg.Project)
	if err != nil {
		return err
	}

	result := reapResult(cfg.Project, report)
	if jsonOutput {
		if err := printJSON(stdout, result); err != nil {
			return err
		}
	} else {
		printReapResult(stdout, result)
	}

	if n := len(result.Failed); n > 0 {
		return fmt.Errorf("%d of %d deletes failed", n, n+len(result.Deleted)+len(result.AlreadyGone))
	}
	return nil
}

func selectForReap(ctx context.Context, client fleet.ResourceClient, project string, policy fleet.ReapPolicy) ([]string, error) {
	listings, err := client.List(ctx, project)
	if err != nil {
		return nil, worker.Unavailable("list", fmt.Errorf("failed to list workers: %w", err))
	}
	var selected []string
	for _, l := range listings {
		if policy.Selects(l.State) {
			selected = append(selected, l.Identity.String())
		}
	}
	sortNatural(selected)
	return selected, nil
}

func reapResult(project string, report *fleet.ReapReport) *ReapResult {
	result := &ReapResult{
		Project:     project,
		Deleted:     refStrings(report.Deleted),
		AlreadyGone: refStrings(report.AlreadyGone),
		Failed:      []ReapFailure{},
	}
	for _, f := range report.Failed {
		result.Failed = append(result.Failed, ReapFailure{Worker: refString(f.Ref), Error: f.Err.Error()})
	}
	return result
}

func refStrings(refs []worker.Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, refString(r))
	}
	return out
}

func refString(r worker.Ref) string {
	return r.Zone + "/" + r.ID
}

func sortNatural(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return naming.NaturalLess(ids[i], ids[j]) })
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printDryRun(w io.Writer, r *ReapResult) {
	if len(r.Selected) == 0 {
		fmt.Fprintf(w, "No workers to reap in %s\n", r.Project)
		return
	}
	fmt.Fprintf(w, "Would delete %d workers in %s:\n", len(r.Selected), r.Project)
	for _, id := range r.Selected {
		fmt.Fprintf(w, "  %s\n", id)
	}
}

func printReapResult(w io.Writer, r *ReapResult) {
	if len(r.Deleted)+len(r.AlreadyGone)+len(r.Failed) == 0 {
		fmt.Fprintf(w, "No workers to reap in %s\n", r.Project)
		return
	}
	fmt.Fprintf(w, "Deleted %d workers in %s\n", len(r.Deleted), r.Project)
	for _, id := range r.Deleted {
		fmt.Fprintf(w, "  %s\n", id)
	}
	if len(r.AlreadyGone) > 0 {
		fmt.Fprintf(w, "Already gone: %d\n", len(r.AlreadyGone))
		for _, id := range r.AlreadyGone {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(w, "Failed: %d\n", len(r.Failed))
		for _, f := range r.Failed {
			fmt.Fprintf(w, "  %s: %s\n", f.Worker, f.Error)
		}
	}
}
