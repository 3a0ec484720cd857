package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
)

type InMemoryRepositoryManager struct {
	store *objects.MemoryStore
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: objects.NewMemoryStore()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Objects() objects.Bucket { return m.store }

func (m *InMemoryRepositoryManager) Provisioner() objects.Provisioner {
	return objects.NewPrefixProvisioner(m.store)
}

func (m *InMemoryRepositoryManager) Signer() objects.Signer { return nil }

func (m *InMemoryRepositoryManager) Close() error { return nil }
