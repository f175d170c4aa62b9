package tpu

import (
	"context"
	"fmt"
	"time"

	tpuapi "google.golang.org/api/tpu/v2"

	"github.com/imamik/tpunanny/internal/util/naming"
	"github.com/imamik/tpunanny/internal/worker"
)

// StartupScriptKey is the node metadata key holding the boot-time script.
const StartupScriptKey = "startup-script"

// Describe reports the status of a worker's queued resource. Endpoints are
// filled for ACTIVE workers only.
func (c *RealClient) Describe(ctx context.Context, id worker.Identity) (worker.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Describe)
	defer cancel()

	name := naming.QueuedResource(id.Project, id.Zone, id.ID)
	var qr *tpuapi.QueuedResource
	err := c.withRetry(ctx, func() error {
		res, err := c.service.Projects.Locations.QueuedResources.Get(name).Context(ctx).Do()
		if err != nil {
			return err
		}
		qr = res
		return nil
	})
	if IsNotFound(err) {
		return worker.Missing(), nil
	}
	if err != nil {
		return worker.Status{}, fmt.Errorf("failed to describe queued resource %s: %w", id, err)
	}

	providerState := queuedResourceState(qr)
	status := worker.Status{State: MapState(providerState), ProviderState: providerState}
	if status.State != worker.StateActive {
		return status, nil
	}

	endpoints, err := c.endpoints(ctx, id)
	if err != nil {
		return worker.Status{}, err
	}
	status.Endpoints = endpoints
	return status, nil
}

// endpoints returns the reachable address of every host of the worker's node,
// preferring external IPs.
func (c *RealClient) endpoints(ctx context.Context, id worker.Identity) ([]string, error) {
	name := naming.Node(id.Project, id.Zone, id.ID)
	var node *tpuapi.Node
	err := c.withRetry(ctx, func() error {
		res, err := c.service.Projects.Locations.Nodes.Get(name).Context(ctx).Do()
		if err != nil {
			return err
		}
		node = res
		return nil
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return nodeEndpoints(node), nil
}

func nodeEndpoints(node *tpuapi.Node) []string {
	endpoints := make([]string, 0, len(node.NetworkEndpoints))
	for _, ep := range node.NetworkEndpoints {
		if ep == nil {
			continue
		}
		switch {
		case ep.AccessConfig != nil && ep.AccessConfig.ExternalIp != "":
			endpoints = append(endpoints, ep.AccessConfig.ExternalIp)
		case ep.IpAddress != "":
			endpoints = append(endpoints, ep.IpAddress)
		}
	}
	return endpoints
}

// Create requests a queued resource for the worker and waits until the
// create operation completes. An existing queued resource with the same ID
// is left as is.
func (c *RealClient) Create(ctx context.Context, req worker.CreateRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	id := req.Identity
	parent := naming.Location(id.Project, id.Zone)
	qr := c.buildQueuedResource(req)

	var op *tpuapi.Operation
	err := c.withRetry(ctx, func() error {
		res, err := c.service.Projects.Locations.QueuedResources.Create(parent, qr).
			QueuedResourceId(id.ID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		op = res
		return nil
	})
	if IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create queued resource %s: %w", id, err)
	}

	if err := c.waitForOperation(ctx, op); err != nil {
		return fmt.Errorf("failed to create queued resource %s: %w", id, err)
	}
	return nil
}

func (c *RealClient) buildQueuedResource(req worker.CreateRequest) *tpuapi.QueuedResource {
	id := req.Identity
	runtime := req.Runtime
	if runtime == "" {
		runtime = SelectRuntime(id.AcceleratorType)
	}

	node := &tpuapi.Node{
		AcceleratorType: id.AcceleratorType,
		RuntimeVersion:  runtime,
		NetworkConfig:   &tpuapi.NetworkConfig{EnableExternalIps: c.externalIPs},
		Labels:          req.Labels,
	}
	if req.StartupScript != "" {
		node.Metadata = map[string]string{StartupScriptKey: req.StartupScript}
	}

	qr := &tpuapi.QueuedResource{
		Tpu: &tpuapi.Tpu{
			NodeSpec: []*tpuapi.NodeSpec{{
				Parent: naming.Location(id.Project, id.Zone),
				NodeId: id.ID,
				Node:   node,
			}},
		},
	}
	if req.Spot {
		qr.Spot = &tpuapi.Spot{}
	}
	return qr
}

// Delete force-deletes the worker's queued resource together with its node
// and waits for the operation. A missing queued resource yields an error
// wrapping worker.ErrNotFound.
func (c *RealClient) Delete(ctx context.Context, id worker.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Delete)
	defer cancel()

	name := naming.QueuedResource(id.Project, id.Zone, id.ID)
	var op *tpuapi.Operation
	err := c.withRetry(ctx, func() error {
		res, err := c.service.Projects.Locations.QueuedResources.Delete(name).Force(true).Context(ctx).Do()
		if err != nil {
			return err
		}
		op = res
		return nil
	})
	if IsNotFound(err) {
		return fmt.Errorf("queued resource %s: %w", id, worker.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete queued resource %s: %w", id, err)
	}

	if err := c.waitForOperation(ctx, op); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("queued resource %s: %w", id, worker.ErrNotFound)
		}
		return fmt.Errorf("failed to delete queued resource %s: %w", id, err)
	}
	return nil
}

// List returns every queued resource of the project across all zones.
func (c *RealClient) List(ctx context.Context, project string) ([]worker.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Describe)
	defer cancel()

	parent := naming.Location(project, "-")
	var listings []worker.Listing
	err := c.withRetry(ctx, func() error {
		listings = listings[:0]
		return c.service.Projects.Locations.QueuedResources.List(parent).Pages(ctx,
			func(page *tpuapi.ListQueuedResourcesResponse) error {
				for _, qr := range page.QueuedResources {
					l, err := toListing(project, qr)
					if err != nil {
						continue
					}
					listings = append(listings, l)
				}
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list queued resources in %s: %w", project, err)
	}
	return listings, nil
}

func toListing(project string, qr *tpuapi.QueuedResource) (worker.Listing, error) {
	zone, id, err := naming.ParseResourcePath(qr.Name)
	if err != nil {
		return worker.Listing{}, err
	}

	providerState := queuedResourceState(qr)
	l := worker.Listing{
		Identity: worker.Identity{
			Project:         project,
			Zone:            zone,
			ID:              id,
			AcceleratorType: acceleratorType(qr),
		},
		State:         MapState(providerState),
		ProviderState: providerState,
		Spot:          qr.Spot != nil,
	}
	if created, err := time.Parse(time.RFC3339Nano, qr.CreateTime); err == nil {
		l.CreatedAt = created
	}
	return l, nil
}

func queuedResourceState(qr *tpuapi.QueuedResource) string {
	if qr == nil || qr.State == nil || qr.State.State == "" {
		return "STATE_UNSPECIFIED"
	}
	return qr.State.State
}

func acceleratorType(qr *tpuapi.QueuedResource) string {
	if qr.Tpu == nil {
		return ""
	}
	for _, spec := range qr.Tpu.NodeSpec {
		if spec != nil && spec.Node != nil && spec.Node.AcceleratorType != "" {
			return spec.Node.AcceleratorType
		}
	}
	return ""
}
