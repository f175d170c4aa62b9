package s3

import (
	"context"
	"errors"
	"time"

	"github.com/imamik/tpunanny/internal/util/retry"
	"github.com/imamik/tpunanny/internal/worker"
)

const transcriptContentType = "text/plain; charset=utf-8"

// Archiver uploads remote script transcripts to a bucket.
type Archiver struct {
	client *Client
	bucket string
	prefix string

	maxRetries   int
	initialDelay time.Duration
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithPrefix stores transcripts below prefix.
func WithPrefix(prefix string) ArchiverOption {
	return func(a *Archiver) { a.prefix = prefix }
}

// WithRetry sets the upload retry policy.
func WithRetry(maxRetries int, initialDelay time.Duration) ArchiverOption {
	return func(a *Archiver) {
		a.maxRetries = maxRetries
		a.initialDelay = initialDelay
	}
}

// NewArchiver creates an archiver writing to bucket.
func NewArchiver(client *Client, bucket string, opts ...ArchiverOption) (*Archiver, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	a := &Archiver{
		client:       client,
		bucket:       bucket,
		maxRetries:   3,
		initialDelay: time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Archive uploads t as a plain text object keyed by worker and start time.
func (a *Archiver) Archive(ctx context.Context, t worker.Transcript) error {
	key := t.Key(a.prefix)
	body := []byte(t.Render())
	return retry.WithExponentialBackoff(ctx, func() error {
		err := a.client.PutObject(ctx, a.bucket, key, transcriptContentType, body)
		if isClientError(err) {
			return retry.Fatal(err)
		}
		return err
	},
		retry.WithMaxRetries(a.maxRetries),
		retry.WithInitialDelay(a.initialDelay),
	)
}

// CheckBucket verifies the archive bucket is reachable.
func (a *Archiver) CheckBucket(ctx context.Context) error {
	ok, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("archive bucket " + a.bucket + " does not exist")
	}
	return nil
}
