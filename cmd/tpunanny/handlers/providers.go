package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"

	"github.com/imamik/tpunanny/internal/config"
	"github.com/imamik/tpunanny/internal/fleet"
	"github.com/imamik/tpunanny/internal/platform/hcloud"
	"github.com/imamik/tpunanny/internal/platform/s3"
	"github.com/imamik/tpunanny/internal/platform/ssh"
	"github.com/imamik/tpunanny/internal/platform/tpu"
)

// Environment variables holding credentials.
const (
	envHCloudToken      = "HCLOUD_TOKEN"
	envArchiveAccessKey = "TPUNANNY_ARCHIVE_ACCESS_KEY"
	envArchiveSecretKey = "TPUNANNY_ARCHIVE_SECRET_KEY"
)

// Factory function variables for provider wiring - can be replaced in tests.
var (
	// newResourceClient creates the provider client and its runtime selector.
	newResourceClient = func(ctx context.Context, cfg *config.Fleet) (fleet.ResourceClient, fleet.RuntimeSelector, error) {
		timeouts := config.LoadTimeouts()
		switch cfg.Provider {
		case config.ProviderHCloud:
			token := os.Getenv(envHCloudToken)
			if token == "" {
				return nil, nil, fmt.Errorf("%s is required for provider %s", envHCloudToken, cfg.Provider)
			}
			client := hcloud.NewRealClient(token,
				hcloud.WithTimeouts(timeouts),
				hcloud.WithSSHKeys(cfg.SSHKeys...),
			)
			return client, hcloud.SelectImage, nil
		default:
			client, err := tpu.NewRealClient(ctx,
				tpu.WithTimeouts(timeouts),
				tpu.WithCredentialsFile(cfg.Credentials),
			)
			if err != nil {
				return nil, nil, err
			}
			return client, tpu.SelectRuntime, nil
		}
	}

	// newExecutor creates the SSH remote executor.
	newExecutor = func(cfg *config.Fleet) (fleet.RemoteExecutor, error) {
		if cfg.SSH.PrivateKeyPath == "" {
			return nil, errors.New("ssh.privateKeyPath is required to run remote scripts")
		}
		// #nosec G304
		key, err := os.ReadFile(cfg.SSH.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH private key: %w", err)
		}
		client, err := ssh.NewClient(&ssh.Config{
			User:       cfg.SSH.User,
			Port:       cfg.SSH.Port,
			PrivateKey: key,
		})
		if err != nil {
			return nil, err
		}
		return ssh.NewExecutor(client), nil
	}

	// newArchiver creates the transcript archiver and checks its bucket.
	// An unreachable bucket is logged, not fatal.
	newArchiver = func(ctx context.Context, cfg *config.Fleet) (fleet.TranscriptArchiver, error) {
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: os.Getenv(envArchiveAccessKey),
			SecretKey: os.Getenv(envArchiveSecretKey),
			PathStyle: cfg.Archive.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive client: %w", err)
		}
		archiver, err := s3.NewArchiver(client, cfg.Archive.Bucket, s3.WithPrefix(cfg.Archive.Prefix))
		if err != nil {
			return nil, err
		}
		if err := archiver.CheckBucket(ctx); err != nil {
			logr.FromContextOrDiscard(ctx).Error(err, "Archive bucket check failed, uploads may fail", "bucket", cfg.Archive.Bucket)
		}
		return archiver, nil
	}
)
