package server

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/auth"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/drives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func testConfig(backend string) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Backend = backend
	return c
}

func TestNewApp_MemoryProvisionsBucket(t *testing.T) {
	ctx := context.Background()
	c := testConfig(config.BackendMemory)
	var out syncBuffer

	app, err := newApp(ctx, c, &out)
	require.NoError(t, err)
	assert.Contains(t, app.Storage().Handle.Name(), c.BucketPrefix)
	assert.Contains(t, out.String(), "bucket provisioned")

	d, err := app.Drives().GetDrive(ctx, auth.NewIdentity("alice"), "home", true)
	require.NoError(t, err)
	_, _, err = d.Upload(ctx, drives.FileHandle{Filename: "a.txt", Data: []byte("hello")}, drives.WithIdentity(auth.NewIdentity("alice")), nil)
	require.NoError(t, err)

	var uploaded string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, `"msg":"file uploaded"`) {
			uploaded = line
		}
	}
	require.NotEmpty(t, uploaded)
	assert.Contains(t, uploaded, `"module":"drives"`)

	families, err := app.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewApp_Badger(t *testing.T) {
	c := testConfig(config.BackendBadger)
	c.BadgerDir = t.TempDir()

	app, err := newApp(context.Background(), c, &syncBuffer{})
	require.NoError(t, err)
	assert.Equal(t, config.BackendBadger, app.Storage().Handle.Name())
	app.shutdown(context.Background())
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig("floppy")
	_, err := newApp(context.Background(), c, &syncBuffer{})
	assert.ErrorIs(t, err, common.ErrorUnsupported)

	c = testConfig(config.BackendMemory)
	c.LogFormat = "xml"
	_, err = newApp(context.Background(), c, &syncBuffer{})
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := testConfig(config.BackendMemory)
	c.ReaperInterval = time.Millisecond
	var out syncBuffer

	app, err := newApp(context.Background(), c, &out)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Contains(t, out.String(), "Starting app...")
	assert.Contains(t, out.String(), "App stopped")
	assert.Contains(t, out.String(), "gophdrive_drive_created_total")
}
