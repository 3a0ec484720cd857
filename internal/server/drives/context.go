// Package drives implements the versioned file storage data plane: drive
// resolution, file versions, chunked transfer sessions and signed access,
// all layered over an objects.Bucket.
//
// The package keeps no state of its own between calls. Every invariant that
// spans keys is re-derived on read, create-or-get goes through SetIfAbsent,
// and session finalization goes through Take.
package drives

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/metrics"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
)

const (
	DefaultMaxEmbeddedSize = 256 * 1024
	DefaultSignedURLTTL    = 15 * time.Minute
	defaultHydrateLimit    = 8
)

// StorageContext carries the collaborators every drive operation needs.
// Zero optional fields fall back to defaults.
type StorageContext struct {
	Handle    *BucketHandle
	ServiceID string

	Resolver acl.Resolver
	Verifier auth.Verifier
	Tokens   *auth.AccessTokenSigner

	Logger  logging.Logger
	Metrics *metrics.Metrics

	MaxEmbeddedSize int64
	SignedURLTTL    time.Duration
	HydrateLimit    int
	Clock           func() time.Time
}

func (sc *StorageContext) bucket() objects.Bucket { return sc.Handle.Bucket() }

func (sc *StorageContext) now() time.Time {
	if sc.Clock != nil {
		return sc.Clock()
	}
	return time.Now()
}

func (sc *StorageContext) logger() logging.Logger {
	if sc.Logger == nil {
		return logging.Nop()
	}
	return sc.Logger
}

func (sc *StorageContext) resolver() acl.Resolver {
	if sc.Resolver == nil {
		return acl.DefaultResolver{}
	}
	return sc.Resolver
}

func (sc *StorageContext) maxEmbedded() int64 {
	if sc.MaxEmbeddedSize <= 0 {
		return DefaultMaxEmbeddedSize
	}
	return sc.MaxEmbeddedSize
}

func (sc *StorageContext) signedURLTTL() time.Duration {
	if sc.SignedURLTTL <= 0 {
		return DefaultSignedURLTTL
	}
	return sc.SignedURLTTL
}

func (sc *StorageContext) hydrateLimit() int {
	if sc.HydrateLimit <= 0 {
		return defaultHydrateLimit
	}
	return sc.HydrateLimit
}

// signedURL issues a token on the handle with expiry taken from the
// context clock.
func (sc *StorageContext) signedURL(ctx context.Context, key string, readable, writable bool, onComplete CompletionFunc) (*SignedAccessToken, error) {
	return sc.Handle.sign(ctx, key, readable, writable, sc.now(), sc.signedURLTTL(), onComplete)
}

// getJSON loads key into v and reports whether it existed.
func (sc *StorageContext) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, found, err := sc.bucket().Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func kvJSON(key string, v any) (objects.KV, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return objects.KV{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return objects.KV{Key: key, Value: raw}, nil
}

func (sc *StorageContext) putJSON(ctx context.Context, key string, v any) error {
	kv, err := kvJSON(key, v)
	if err != nil {
		return err
	}
	return sc.bucket().Set(ctx, kv.Key, kv.Value)
}
