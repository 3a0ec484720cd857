// Package objects holds the key/value blob store the storage layer is built
// on, with one implementation per supported backend.
//
// Besides plain get/set/delete/list every backend offers the two compound
// primitives the protocol relies on: SetIfAbsent for create-or-get and Take
// (atomic get-and-delete) for at-most-once finalization.
package objects

import (
	"context"
	"time"
)

// Bucket is an opaque key/value store. Missing keys are reported through
// the found flag, never as errors.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent stores value only if key does not exist and reports
	// whether this call wrote it.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	// Take atomically reads and deletes key. Of several concurrent callers
	// at most one observes found == true.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	// List returns the keys starting with prefix in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Signer issues time-boxed URLs that let a bearer read or write one key
// without further authorization.
type Signer interface {
	SignURL(ctx context.Context, key string, readable, writable bool, ttl time.Duration) (string, error)
}

// Provisioner creates named buckets. Creating a name that already exists
// fails with common.ErrorAlreadyExists.
type Provisioner interface {
	CreateBucket(ctx context.Context, name string) (Bucket, error)
}

// KV is one entry of a batched write.
type KV struct {
	Key   string
	Value []byte
}

// BatchSetter is implemented by backends that can write several keys in
// one transaction.
type BatchSetter interface {
	SetMany(ctx context.Context, kvs []KV) error
}

// SetAll writes kvs through SetMany when b supports it, key by key otherwise.
func SetAll(ctx context.Context, b Bucket, kvs []KV) error {
	if bs, ok := b.(BatchSetter); ok {
		return bs.SetMany(ctx, kvs)
	}
	for _, kv := range kvs {
		if err := b.Set(ctx, kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}
