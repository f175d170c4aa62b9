package tpu

import (
	"context"
	"fmt"
	"time"

	tpuapi "google.golang.org/api/tpu/v2"
)

// waitForOperation polls a long-running operation until it is done.
func (c *RealClient) waitForOperation(ctx context.Context, op *tpuapi.Operation) error {
	for {
		if op == nil {
			return nil
		}
		if op.Done {
			if op.Error != nil {
				return fmt.Errorf("operation %s failed: %s (code %d)", op.Name, op.Error.Message, op.Error.Code)
			}
			return nil
		}

		timer := time.NewTimer(c.timeouts.OperationPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("timeout waiting for operation %s: %w", op.Name, ctx.Err())
		case <-timer.C:
		}

		name := op.Name
		err := c.withRetry(ctx, func() error {
			next, err := c.service.Projects.Locations.Operations.Get(name).Context(ctx).Do()
			if err != nil {
				return err
			}
			op = next
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to poll operation %s: %w", name, err)
		}
	}
}
