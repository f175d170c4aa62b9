package tpu

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	tpuapi "google.golang.org/api/tpu/v2"

	"github.com/imamik/tpunanny/internal/config"
	"github.com/imamik/tpunanny/internal/util/retry"
)

// RealClient implements fleet.ResourceClient on the Cloud TPU API.
type RealClient struct {
	service     *tpuapi.Service
	timeouts    *config.Timeouts
	externalIPs bool
	apiOptions  []option.ClientOption
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithCredentialsFile authenticates with a service account key file instead
// of Application Default Credentials.
func WithCredentialsFile(path string) ClientOption {
	return func(c *RealClient) {
		if path != "" {
			c.apiOptions = append(c.apiOptions, option.WithCredentialsFile(path)) //nolint:staticcheck // key files are still a supported input
		}
	}
}

// WithAPIOptions passes options to the underlying API client (endpoint,
// HTTP client, authentication).
func WithAPIOptions(opts ...option.ClientOption) ClientOption {
	return func(c *RealClient) {
		c.apiOptions = append(c.apiOptions, opts...)
	}
}

// WithExternalIPs controls whether created nodes get external IPs.
// Enabled by default so the remote executor can reach them.
func WithExternalIPs(enabled bool) ClientOption {
	return func(c *RealClient) {
		c.externalIPs = enabled
	}
}

// NewRealClient creates a new RealClient with optional configuration.
func NewRealClient(ctx context.Context, opts ...ClientOption) (*RealClient, error) {
	c := &RealClient{
		timeouts:    config.LoadTimeouts(),
		externalIPs: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	service, err := tpuapi.NewService(ctx, c.apiOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TPU API client: %w", err)
	}
	c.service = service
	return c, nil
}

// withRetry runs call with the client's retry policy for transient errors.
func (c *RealClient) withRetry(ctx context.Context, call func() error) error {
	return retry.WithExponentialBackoff(ctx, call,
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithRetryIf(isTransient),
	)
}
