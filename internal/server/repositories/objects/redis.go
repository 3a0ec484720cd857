package objects

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Bucket over Redis. SETNX and GETDEL provide the compound
// primitives.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	return s.client.SetNX(ctx, key, value, 0).Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Take(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, globEscaper.Replace(prefix)+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	// SCAN may return a key more than once.
	sort.Strings(keys)
	return slices.Compact(keys), nil
}

func (s *RedisStore) SetMany(ctx context.Context, kvs []KV) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, kv := range kvs {
			pipe.Set(ctx, kv.Key, kv.Value, 0)
		}
		return nil
	})
	return err
}
