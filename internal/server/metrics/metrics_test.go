package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m, err := New("test", prometheus.NewRegistry())
	require.NoError(t, err)

	m.Upload("chunked", ResultOK)
	m.Upload("chunked", ResultOK)
	m.Download("embedded", ResultDenied)
	m.Chunk("in", 10)
	m.Chunk("in", 5)
	m.Finalize("upload", true)
	m.Finalize("upload", false)
	m.Finalize("upload", false)
	m.SignedURL(true)
	m.Reaped("download")
	m.DriveCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Uploads.WithLabelValues("chunked", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downloads.WithLabelValues("embedded", ResultDenied)))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.ChunkBytes.WithLabelValues("in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Finalized.WithLabelValues("upload", "finalized")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Finalized.WithLabelValues("upload", "noop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedURLs.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReapedSession.WithLabelValues("download")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrivesCreated))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("test", reg)
	require.NoError(t, err)
	_, err = New("test", reg)
	require.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Upload("embedded", ResultOK)
		m.Download("embedded", ResultOK)
		m.Chunk("out", 1)
		m.Finalize("upload", true)
		m.SignedURL(false)
		m.Reaped("upload")
		m.DriveCreated()
	})
}
