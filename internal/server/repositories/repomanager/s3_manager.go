package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
)

// S3RepositoryManager runs on S3 compatible storage. Without a configured
// bucket Objects is nil and buckets must be provisioned.
type S3RepositoryManager struct {
	store       *objects.S3Store
	provisioner *objects.S3Provisioner
}

func NewS3RepositoryManager(ctx context.Context, cfg objects.S3Config, bucket string) (*S3RepositoryManager, error) {
	client, presign, err := objects.NewS3Clients(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 client init error: %w", err)
	}
	m := &S3RepositoryManager{provisioner: objects.NewS3Provisioner(client, presign)}
	if bucket != "" {
		m.store = objects.NewS3Store(client, presign, bucket)
	}
	return m, nil
}

func (m *S3RepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *S3RepositoryManager) Objects() objects.Bucket {
	if m.store == nil {
		return nil
	}
	return m.store
}

func (m *S3RepositoryManager) Provisioner() objects.Provisioner { return m.provisioner }

// Signer is nil without a configured bucket; provisioned S3 buckets sign
// their own URLs.
func (m *S3RepositoryManager) Signer() objects.Signer {
	if m.store == nil {
		return nil
	}
	return m.store
}

func (m *S3RepositoryManager) Close() error { return nil }
