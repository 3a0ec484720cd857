package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
	"github.com/redis/go-redis/v9"
)

// BadgerRepositoryManager runs on an embedded badger database.
type BadgerRepositoryManager struct {
	store *objects.BadgerStore
}

// NewBadgerRepositoryManager opens the database in dir; an empty dir keeps
// it in memory.
func NewBadgerRepositoryManager(dir string) (*BadgerRepositoryManager, error) {
	store, err := objects.OpenBadger(dir)
	if err != nil {
		return nil, fmt.Errorf("badger open error: %w", err)
	}
	return &BadgerRepositoryManager{store: store}, nil
}

func (m *BadgerRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *BadgerRepositoryManager) Objects() objects.Bucket { return m.store }

func (m *BadgerRepositoryManager) Provisioner() objects.Provisioner {
	return objects.NewPrefixProvisioner(m.store)
}

func (m *BadgerRepositoryManager) Signer() objects.Signer { return nil }

func (m *BadgerRepositoryManager) Close() error { return m.store.Close() }

// RedisRepositoryManager runs on a Redis server.
type RedisRepositoryManager struct {
	client redis.UniversalClient
	store  *objects.RedisStore
}

func NewRedisRepositoryManager(addr, password string, db int) *RedisRepositoryManager {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisRepositoryManager{client: client, store: objects.NewRedisStore(client)}
}

// RunMigrations only checks the server is reachable; Redis has no schema.
func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (m *RedisRepositoryManager) Objects() objects.Bucket { return m.store }

func (m *RedisRepositoryManager) Provisioner() objects.Provisioner {
	return objects.NewPrefixProvisioner(m.store)
}

func (m *RedisRepositoryManager) Signer() objects.Signer { return nil }

func (m *RedisRepositoryManager) Close() error { return m.store.Close() }
