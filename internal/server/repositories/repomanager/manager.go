// Package repomanager opens the object store backend selected in the
// configuration and prepares it for use.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
)

// RepositoryManager owns one backend connection.
//
// Objects is the root store. Provisioner carves fresh buckets out of the
// backend. Signer is non-nil only for backends that presign natively.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Objects() objects.Bucket
	Provisioner() objects.Provisioner
	Signer() objects.Signer
	Close() error
}

// New opens the backend named by cfg.Backend.
func New(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewInMemoryRepositoryManager(), nil
	case config.BackendBadger:
		return NewBadgerRepositoryManager(cfg.BadgerDir)
	case config.BackendRedis:
		return NewRedisRepositoryManager(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	case config.BackendPostgres:
		return NewPostgresRepositoryManager(cfg.DatabaseDSN)
	case config.BackendS3:
		return NewS3RepositoryManager(ctx, objects.S3Config{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
		}, cfg.S3Bucket)
	default:
		return nil, fmt.Errorf("%w: backend %q", common.ErrorUnsupported, cfg.Backend)
	}
}
