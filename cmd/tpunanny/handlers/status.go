package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/imamik/tpunanny/internal/fleet"
	"github.com/imamik/tpunanny/internal/util/async"
	"github.com/imamik/tpunanny/internal/util/naming"
	"github.com/imamik/tpunanny/internal/worker"
)

// DefaultWatchInterval is the refresh period of status --watch.
const DefaultWatchInterval = 10 * time.Second

// WorkerStatus is one row of the status listing.
type WorkerStatus struct {
	ID              string    `json:"id"`
	Zone            string    `json:"zone"`
	AcceleratorType string    `json:"acceleratorType"`
	IP              string    `json:"ip,omitempty"`
	State           string    `json:"state"`
	ProviderState   string    `json:"providerState,omitempty"`
	Spot            bool      `json:"spot"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
	Age             string    `json:"age,omitempty"`
}

// FleetStatus is the status listing of a project.
type FleetStatus struct {
	Project string         `json:"project"`
	Workers []WorkerStatus `json:"workers"`
}

// StatusOptions configures the status command.
type StatusOptions struct {
	Watch    bool
	Interval time.Duration
	JSON     bool
}

// Status handles the status command.
//
// It lists every worker of the project with its state and address. With
// Watch it re-renders every interval until interrupted, showing a caption
// instead of failing when the provider cannot be reached.
func Status(ctx context.Context, configPath string, o Overrides, opts StatusOptions) error {
	cfg, err := loadConfig(configPath, o)
	if err != nil {
		return err
	}
	if err := cfg.ValidateProject(); err != nil {
		return err
	}

	client, _, err := newResourceClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	if opts.Watch {
		interval := opts.Interval
		if interval <= 0 {
			interval = DefaultWatchInterval
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchStatus(ctx, client, cfg.Project, interval, opts.JSON)
	}

	status, err := collectStatus(ctx, client, cfg.Project, time.Now())
	if err != nil {
		return err
	}
	return showStatus(status, opts.JSON, nil)
}

// watchStatus re-renders the status every interval until ctx ends.
func watchStatus(ctx context.Context, client fleet.ResourceClient, project string, interval time.Duration, jsonOutput bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *FleetStatus
	for {
		status, err := collectStatus(ctx, client, project, time.Now())
		if err == nil {
			last = status
		} else if last == nil {
			last = &FleetStatus{Project: project}
		}

		if !jsonOutput {
			fmt.Fprint(stdout, "\033[H\033[2J")
		}
		if renderErr := showStatus(last, jsonOutput, err); renderErr != nil {
			return renderErr
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func showStatus(status *FleetStatus, jsonOutput bool, connErr error) error {
	if jsonOutput {
		return printJSON(stdout, status)
	}
	fmt.Fprint(stdout, renderStatus(status, statusRenderOptions{
		Color:     isInteractiveTTY(),
		ConnError: connErr,
	}))
	return nil
}

// collectStatus lists the project's workers and resolves the address of every
// ACTIVE one. Describe failures leave the address empty.
func collectStatus(ctx context.Context, client fleet.ResourceClient, project string, now time.Time) (*FleetStatus, error) {
	listings, err := client.List(ctx, project)
	if err != nil {
		return nil, worker.Unavailable("list", err)
	}

	rows := make([]WorkerStatus, len(listings))
	var tasks []async.Task
	for i, l := range listings {
		rows[i] = WorkerStatus{
			ID:              l.Identity.ID,
			Zone:            l.Identity.Zone,
			AcceleratorType: l.Identity.AcceleratorType,
			State:           l.State.String(),
			ProviderState:   l.ProviderState,
			Spot:            l.Spot,
			CreatedAt:       l.CreatedAt,
		}
		if !l.CreatedAt.IsZero() {
			rows[i].Age = formatAge(now.Sub(l.CreatedAt))
		}
		if l.State != worker.StateActive {
			continue
		}
		id := l.Identity
		tasks = append(tasks, async.Task{
			Name: id.String(),
			Func: func(ctx context.Context) error {
				status, err := client.Describe(ctx, id)
				if err != nil {
					return err
				}
				if len(status.Endpoints) > 0 {
					rows[i].IP = status.Endpoints[0]
				}
				return nil
			},
		})
	}
	async.RunAll(ctx, tasks)

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ID != rows[j].ID {
			return naming.NaturalLess(rows[i].ID, rows[j].ID)
		}
		return rows[i].Zone < rows[j].Zone
	})
	return &FleetStatus{Project: project, Workers: rows}, nil
}

// formatAge renders a duration the way kubectl does: 45s, 12m, 5h3m, 2d4h.
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	default:
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		if h == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd%dh", days, h)
	}
}

var isInteractiveTTY = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
