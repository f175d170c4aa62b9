package hcloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/tpunanny/internal/util/labels"
	"github.com/imamik/tpunanny/internal/util/retry"
	"github.com/imamik/tpunanny/internal/worker"
)

// Describe reports the status of the worker's server.
func (c *RealClient) Describe(ctx context.Context, id worker.Identity) (worker.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Describe)
	defer cancel()

	server, err := c.getServer(ctx, id.ID)
	if err != nil {
		return worker.Status{}, fmt.Errorf("failed to describe server %s: %w", id, err)
	}
	if server == nil {
		return worker.Missing(), nil
	}

	status := worker.Status{
		State:         MapState(server.Status),
		ProviderState: providerState(server.Status),
	}
	if status.State == worker.StateActive {
		if ip := publicIP(server); ip != "" {
			status.Endpoints = []string{ip}
		}
	}
	return status, nil
}

// Create creates the worker's server and waits for the create action. A
// server with the same name is left as is.
func (c *RealClient) Create(ctx context.Context, req worker.CreateRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	opts, err := c.buildServerCreateOpts(ctx, req)
	if err != nil {
		return err
	}

	var result hcloud.ServerCreateResult
	err = c.withRetry(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create server %s: %w", req.Identity, err)
	}

	if result.Action != nil {
		if err := c.client.Action.WaitFor(ctx, result.Action); err != nil {
			return fmt.Errorf("failed to wait for server creation: %w", err)
		}
	}
	return nil
}

// buildServerCreateOpts resolves server type, image, location and SSH keys.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, req worker.CreateRequest) (hcloud.ServerCreateOpts, error) {
	id := req.Identity

	serverType, _, err := c.client.ServerType.Get(ctx, id.AcceleratorType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", id.AcceleratorType)
	}

	imageName := req.Runtime
	if imageName == "" {
		imageName = DefaultImage
	}
	arch := DetectArchitecture(id.AcceleratorType).HCloud()
	image, _, err := c.client.Image.GetForArchitecture(ctx, imageName, arch)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("image not found: %s (%s)", imageName, arch)
	}

	location, _, err := c.client.Location.Get(ctx, id.Zone)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get location %s: %w", id.Zone, err)
	}
	if location == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("location not found: %s", id.Zone)
	}

	sshKeys, err := c.resolveSSHKeys(ctx)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	serverLabels := labels.NewLabelBuilder().Merge(req.Labels).WithProject(id.Project).Build()

	return hcloud.ServerCreateOpts{
		Name:       id.ID,
		ServerType: serverType,
		Image:      image,
		Location:   location,
		SSHKeys:    sshKeys,
		Labels:     serverLabels,
		UserData:   req.StartupScript,
	}, nil
}

// resolveSSHKeys resolves the configured SSH key names to SSH key objects.
func (c *RealClient) resolveSSHKeys(ctx context.Context) ([]*hcloud.SSHKey, error) {
	var keys []*hcloud.SSHKey
	for _, name := range c.sshKeys {
		key, _, err := c.client.SSHKey.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get ssh key %s: %w", name, err)
		}
		if key == nil {
			return nil, fmt.Errorf("ssh key not found: %s", name)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Delete deletes the worker's server and waits for the delete action.
// A missing server yields an error wrapping worker.ErrNotFound.
func (c *RealClient) Delete(ctx context.Context, id worker.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Delete)
	defer cancel()

	server, err := c.getServer(ctx, id.ID)
	if err != nil {
		return fmt.Errorf("failed to get server %s: %w", id, err)
	}
	if server == nil {
		return fmt.Errorf("server %s: %w", id, worker.ErrNotFound)
	}

	var result *hcloud.ServerDeleteResult
	err = c.withRetry(ctx, func() error {
		res, _, err := c.client.Server.DeleteWithResult(ctx, server)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if IsNotFound(err) {
		return fmt.Errorf("server %s: %w", id, worker.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete server %s: %w", id, err)
	}

	if result != nil && result.Action != nil {
		if err := c.client.Action.WaitFor(ctx, result.Action); err != nil {
			return fmt.Errorf("failed to wait for server deletion: %w", err)
		}
	}
	return nil
}

// List returns every server labelled with the project.
func (c *RealClient) List(ctx context.Context, project string) ([]worker.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Describe)
	defer cancel()

	var servers []*hcloud.Server
	err := c.withRetry(ctx, func() error {
		res, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
			ListOpts: hcloud.ListOpts{LabelSelector: labels.SelectorForProject(project)},
		})
		if err != nil {
			return err
		}
		servers = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	listings := make([]worker.Listing, 0, len(servers))
	for _, s := range servers {
		listings = append(listings, worker.Listing{
			Identity: worker.Identity{
				Project:         project,
				Zone:            serverLocation(s),
				ID:              s.Name,
				AcceleratorType: serverTypeName(s),
			},
			State:         MapState(s.Status),
			ProviderState: providerState(s.Status),
			CreatedAt:     s.Created,
		})
	}
	return listings, nil
}

func (c *RealClient) getServer(ctx context.Context, name string) (*hcloud.Server, error) {
	var server *hcloud.Server
	err := c.withRetry(ctx, func() error {
		res, _, err := c.client.Server.GetByName(ctx, name)
		if err != nil {
			return err
		}
		server = res
		return nil
	})
	return server, err
}

// withRetry runs call with the client's retry policy.
func (c *RealClient) withRetry(ctx context.Context, call func() error) error {
	return retry.WithExponentialBackoff(ctx, call,
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithRetryIf(shouldRetry),
	)
}

// shouldRetry retries transient API errors and transport failures.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if isInvalidParameter(err) {
		return false
	}
	var apiErr hcloud.Error
	if errors.As(err, &apiErr) {
		return isRetryable(err)
	}
	return true
}

// publicIP returns the public IPv4 of the server, or "" when it has none.
func publicIP(s *hcloud.Server) string {
	if ip := s.PublicNet.IPv4.IP; ip != nil && !ip.IsUnspecified() {
		return ip.String()
	}
	return ""
}

func serverLocation(s *hcloud.Server) string {
	if s.Datacenter != nil && s.Datacenter.Location != nil {
		return s.Datacenter.Location.Name
	}
	return ""
}

func serverTypeName(s *hcloud.Server) string {
	if s.ServerType != nil {
		return s.ServerType.Name
	}
	return ""
}
