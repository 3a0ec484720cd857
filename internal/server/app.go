// Package server wires the drive service together: logging, metrics, the
// object store backend, the bucket handle, the drive registry and the
// session reaper, and runs it until it is signalled to stop.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/drives"
	"github.com/dmitrijs2005/gophdrive/internal/server/metrics"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/prometheus/client_golang/prometheus"
)

const driveCacheLifeWindow = 10 * time.Minute

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	registry *prometheus.Registry
	storage  *drives.StorageContext
	drives   *drives.Registry
	cache    *bigcache.BigCache
	reaper   *drives.Reaper
}

// NewApp builds the service from c. Logs go to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger, err := logging.New(c.LogFormat, logOut)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(c.MetricsNamespace, registry)
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	repos, err := repomanager.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("storage migration error: %w", err)
	}

	handle, err := openBucket(ctx, c, repos, logger)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	handle.SetMetrics(m)

	secret := []byte(c.SecretKey)
	sc := &drives.StorageContext{
		Handle:          handle,
		ServiceID:       c.ServiceID,
		Verifier:        auth.NewJWTVerifier(secret),
		Tokens:          auth.NewAccessTokenSigner(secret),
		Logger:          logger.With("module", "drives"),
		Metrics:         m,
		MaxEmbeddedSize: c.MaxEmbeddedSize,
		SignedURLTTL:    c.SignedURLTTL,
	}

	cache, err := bigcache.New(ctx, bigcache.DefaultConfig(driveCacheLifeWindow))
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("drive cache init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		repos:    repos,
		registry: registry,
		storage:  sc,
		drives:   drives.NewRegistry(sc, cache),
		cache:    cache,
		reaper:   drives.NewReaper(sc, c.SessionTTL),
	}, nil
}

// openBucket picks the bucket the service stores drives in. The memory
// backend and S3 without a configured bucket get a freshly provisioned
// one; every other backend uses its root store.
func openBucket(ctx context.Context, c *config.Config, repos repomanager.RepositoryManager, logger logging.Logger) (*drives.BucketHandle, error) {
	signer := repos.Signer()
	if signer == nil && c.Backend != config.BackendS3 {
		signer = auth.NewURLSigner(c.SignedURLBase, []byte(c.SecretKey))
	}

	root := repos.Objects()
	if root != nil && c.Backend != config.BackendMemory {
		return drives.OpenBucketHandle(bucketName(c), root, signer, logger), nil
	}

	handle, err := drives.NewBucketHandle(ctx, repos.Provisioner(), signer, c.BucketPrefix, c.BucketAttempts, logger)
	if err != nil {
		return nil, fmt.Errorf("bucket init error: %w", err)
	}
	return handle, nil
}

func bucketName(c *config.Config) string {
	if c.Backend == config.BackendS3 {
		return c.S3Bucket
	}
	return c.Backend
}

// Drives is the drive registry of the running service.
func (app *App) Drives() *drives.Registry { return app.drives }

func (app *App) Storage() *drives.StorageContext { return app.storage }

func (app *App) Gatherer() prometheus.Gatherer { return app.registry }

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled or the process is signalled, then
// releases the backend.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"service", app.config.ServiceID, "backend", app.config.Backend, "bucket", app.storage.Handle.Name())

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx, app.config.ReaperInterval)
	}()

	<-ctx.Done()
	wg.Wait()

	app.shutdown(context.WithoutCancel(ctx))
}

func (app *App) shutdown(ctx context.Context) {
	app.dumpMetrics(ctx)
	if err := app.cache.Close(); err != nil {
		app.logger.Warn(ctx, "drive cache close error", "error", err)
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "storage close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// dumpMetrics logs the final value of every counter.
func (app *App) dumpMetrics(ctx context.Context) {
	families, err := app.registry.Gather()
	if err != nil {
		app.logger.Warn(ctx, "metrics gather error", "error", err)
		return
	}
	for _, f := range families {
		total := 0.0
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		app.logger.Info(ctx, "metric", "name", f.GetName(), "total", total)
	}
}

