// Package metrics exposes the prometheus counters of the storage data plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK     = "ok"
	ResultDenied = "denied"
	ResultError  = "error"
)

// Metrics groups the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Uploads       *prometheus.CounterVec
	Downloads     *prometheus.CounterVec
	ChunkBytes    *prometheus.CounterVec
	Finalized     *prometheus.CounterVec
	SignedURLs    *prometheus.CounterVec
	ReapedSession *prometheus.CounterVec
	DrivesCreated prometheus.Counter
}

// New creates the counters and registers them with reg.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "uploads_total",
			Help:      "Uploads started, by mode (embedded, signed, chunked) and result",
		}, []string{"mode", "result"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "downloads_total",
			Help:      "Downloads served, by mode (embedded, signed, chunked) and result",
		}, []string{"mode", "result"}),
		ChunkBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "chunk_bytes_total",
			Help:      "Chunk payload bytes transferred, by direction",
		}, []string{"direction"}),
		Finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "finalized_total",
			Help:      "Transfer sessions closed, by kind and whether this call won the take",
		}, []string{"kind", "outcome"}),
		SignedURLs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bucket",
			Name:      "signed_urls_total",
			Help:      "Signed URLs issued, by access (read, write)",
		}, []string{"access"}),
		ReapedSession: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reaped_total",
			Help:      "Abandoned transfer sessions removed by the reaper, by kind",
		}, []string{"kind"}),
		DrivesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "created_total",
			Help:      "Drives and sub-drives auto-created",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Uploads, m.Downloads, m.ChunkBytes, m.Finalized, m.SignedURLs, m.ReapedSession, m.DrivesCreated,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Upload(mode, result string) {
	if m != nil {
		m.Uploads.WithLabelValues(mode, result).Inc()
	}
}

func (m *Metrics) Download(mode, result string) {
	if m != nil {
		m.Downloads.WithLabelValues(mode, result).Inc()
	}
}

func (m *Metrics) Chunk(direction string, n int) {
	if m != nil {
		m.ChunkBytes.WithLabelValues(direction).Add(float64(n))
	}
}

// Finalize records a session close. won is false for callers that lost
// the take.
func (m *Metrics) Finalize(kind string, won bool) {
	if m == nil {
		return
	}
	outcome := "noop"
	if won {
		outcome = "finalized"
	}
	m.Finalized.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SignedURL(writable bool) {
	if m == nil {
		return
	}
	access := "read"
	if writable {
		access = "write"
	}
	m.SignedURLs.WithLabelValues(access).Inc()
}

func (m *Metrics) Reaped(kind string) {
	if m != nil {
		m.ReapedSession.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) DriveCreated() {
	if m != nil {
		m.DrivesCreated.Inc()
	}
}
