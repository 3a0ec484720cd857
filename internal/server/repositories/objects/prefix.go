package objects

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// PrefixBucket scopes every key of an underlying bucket under a fixed
// prefix. It is how backends without a native bucket concept provision
// buckets.
type PrefixBucket struct {
	inner  Bucket
	prefix string
}

func NewPrefixBucket(inner Bucket, prefix string) *PrefixBucket {
	return &PrefixBucket{inner: inner, prefix: prefix}
}

func (p *PrefixBucket) k(key string) string { return p.prefix + key }

func (p *PrefixBucket) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.k(key))
}

func (p *PrefixBucket) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.k(key), value)
}

func (p *PrefixBucket) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	return p.inner.SetIfAbsent(ctx, p.k(key), value)
}

func (p *PrefixBucket) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.k(key))
}

func (p *PrefixBucket) Take(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Take(ctx, p.k(key))
}

func (p *PrefixBucket) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.inner.List(ctx, p.k(prefix))
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p.prefix)
	}
	return keys, nil
}

func (p *PrefixBucket) SetMany(ctx context.Context, kvs []KV) error {
	scoped := make([]KV, len(kvs))
	for i, kv := range kvs {
		scoped[i] = KV{Key: p.k(kv.Key), Value: kv.Value}
	}
	return SetAll(ctx, p.inner, scoped)
}

// PrefixProvisioner provisions buckets as key namespaces of one store. A
// marker key claims the name so two provisioners never share a namespace.
type PrefixProvisioner struct {
	store Bucket
}

func NewPrefixProvisioner(store Bucket) *PrefixProvisioner {
	return &PrefixProvisioner{store: store}
}

func (p *PrefixProvisioner) CreateBucket(ctx context.Context, name string) (Bucket, error) {
	created, err := p.store.SetIfAbsent(ctx, "buckets/"+name, []byte{})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	if !created {
		return nil, fmt.Errorf("%w: bucket %s", common.ErrorAlreadyExists, name)
	}
	return NewPrefixBucket(p.store, "b/"+name+"/"), nil
}
