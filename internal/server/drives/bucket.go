package drives

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/metrics"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

var provisionBackoff = 100 * time.Millisecond

// BucketHandle is a bucket together with the signer that issues signed
// URLs for its keys.
type BucketHandle struct {
	name    string
	bucket  objects.Bucket
	signer  objects.Signer
	log     logging.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// OpenBucketHandle wraps an existing bucket. A nil signer falls back to the
// bucket itself when it can sign.
func OpenBucketHandle(name string, bucket objects.Bucket, signer objects.Signer, logger logging.Logger) *BucketHandle {
	if signer == nil {
		signer, _ = bucket.(objects.Signer)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &BucketHandle{name: name, bucket: bucket, signer: signer, log: logger.With("module", "bucket", "bucket", name)}
}

// NewBucketHandle provisions a brand-new bucket named prefix + random UID.
// Each failed attempt retries with a fresh name; after attempts failures
// the last creation error is returned.
func NewBucketHandle(ctx context.Context, provisioner objects.Provisioner, signer objects.Signer,
	prefix string, attempts int, logger logging.Logger) (*BucketHandle, error) {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}

	var (
		name   string
		bucket objects.Bucket
	)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(provisionBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := prefix + uuid.NewString()
		b, err := provisioner.CreateBucket(ctx, candidate)
		if err != nil {
			logger.Warn(ctx, "bucket creation failed", "bucket", candidate, "error", err)
			return retry.RetryableError(err)
		}
		name, bucket = candidate, b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provision bucket: %w", err)
	}

	logger.Info(ctx, "bucket provisioned", "bucket", name)
	return OpenBucketHandle(name, bucket, signer, logger), nil
}

func (h *BucketHandle) Name() string { return h.name }

func (h *BucketHandle) Bucket() objects.Bucket { return h.bucket }

func (h *BucketHandle) SetMetrics(m *metrics.Metrics) { h.metrics = m }

// SetClock replaces time.Now as the source of token expiries.
func (h *BucketHandle) SetClock(clock func() time.Time) { h.clock = clock }

func (h *BucketHandle) now() time.Time {
	if h.clock != nil {
		return h.clock()
	}
	return time.Now()
}

// CompletionFunc validates an out-of-band transfer once it has finished.
type CompletionFunc func(ctx context.Context) error

// CreateSignedURL issues a URL granting readable and/or writable access to
// key for ttl. onComplete, if set, runs when the token is completed.
func (h *BucketHandle) CreateSignedURL(ctx context.Context, key string, readable, writable bool,
	ttl time.Duration, onComplete CompletionFunc) (*SignedAccessToken, error) {
	return h.sign(ctx, key, readable, writable, h.now(), ttl, onComplete)
}

// sign issues a token expiring ttl after issued.
func (h *BucketHandle) sign(ctx context.Context, key string, readable, writable bool,
	issued time.Time, ttl time.Duration, onComplete CompletionFunc) (*SignedAccessToken, error) {
	if h.signer == nil {
		return nil, errors.New("bucket has no URL signer")
	}
	u, err := h.signer.SignURL(ctx, key, readable, writable, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign url: %w", err)
	}
	h.metrics.SignedURL(writable)
	h.log.Debug(ctx, "signed url issued", "key", key, "read", readable, "write", writable, "ttl", ttl)

	return &SignedAccessToken{
		URL:        u,
		Key:        key,
		Readable:   readable,
		Writable:   writable,
		Expires:    issued.Add(ttl),
		onComplete: onComplete,
	}, nil
}

// SignedAccessToken is a time-boxed capability for one key.
type SignedAccessToken struct {
	URL      string
	Key      string
	Readable bool
	Writable bool
	Expires  time.Time

	once       sync.Once
	onComplete CompletionFunc
	err        error
}

// Complete runs the completion callback at most once; later calls return
// the first result.
func (t *SignedAccessToken) Complete(ctx context.Context) error {
	t.once.Do(func() {
		if t.onComplete != nil {
			t.err = t.onComplete(ctx)
		}
	})
	return t.err
}
