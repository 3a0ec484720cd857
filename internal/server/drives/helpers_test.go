package drives

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/dmitrijs2005/gophdrive/internal/checksum"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/metrics"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("drives-test-secret")

const testSignBase = "https://files.example.test/o"

type testEnv struct {
	sc      *StorageContext
	reg     *Registry
	store   objects.Bucket
	metrics *metrics.Metrics

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvOn(t, objects.NewMemoryStore())
}

func newTestEnvOn(t *testing.T, store objects.Bucket) *testEnv {
	t.Helper()

	m, err := metrics.New("test", prometheus.NewRegistry())
	require.NoError(t, err)

	e := &testEnv{store: store, metrics: m, now: time.Now().UTC().Truncate(time.Second)}

	handle := OpenBucketHandle("test", store, auth.NewURLSigner(testSignBase, testSecret), nil)
	handle.SetMetrics(m)
	e.sc = &StorageContext{
		Handle:          handle,
		ServiceID:       "svc",
		Verifier:        auth.NewJWTVerifier(testSecret),
		Tokens:          auth.NewAccessTokenSigner(testSecret),
		Metrics:         m,
		MaxEmbeddedSize: 1024,
		Clock:           e.clock,
	}

	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(time.Minute))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	e.reg = NewRegistry(e.sc, cache)
	return e
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// drive opens (creating if needed) path for user.
func (e *testEnv) drive(t *testing.T, user, path string) *Drive {
	t.Helper()
	d, err := e.reg.GetDrive(context.Background(), auth.NewIdentity(user), path, true)
	require.NoError(t, err)
	return d
}

func as(user string) Credentials { return WithIdentity(auth.NewIdentity(user)) }

// uploadChunked uploads parts as consecutive chunks of filename and closes
// the session.
func uploadChunked(t *testing.T, d *Drive, creds Credentials, filename string, parts ...[]byte) models.FileMeta {
	t.Helper()
	ctx := context.Background()

	meta, s, err := d.OpenUploader(ctx, filename, nil, creds)
	require.NoError(t, err)
	for i, p := range parts {
		require.NoError(t, d.UploadChunk(ctx, s.FileUID, i, s.ChunkSecret(i), p, checksum.Sum(p), ""))
	}
	require.NoError(t, d.CloseUploader(ctx, s.FileUID, s.Secret))
	return meta
}

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
