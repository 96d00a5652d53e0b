package gateway

import (
	"sync/atomic"
)

// Metrics tracks gateway-level counters using atomic operations for lock-free
// concurrency. They feed /status; the Prometheus series live in telemetry.
type Metrics struct {
	batches  atomic.Int64
	items    atomic.Int64
	errors   atomic.Int64
	streams  atomic.Int64
	streamed atomic.Int64
}

// RecordBatch records one accepted batch of n items.
func (m *Metrics) RecordBatch(n int) {
	m.batches.Add(1)
	m.items.Add(int64(n))
}

// RecordError records a failed batch.
func (m *Metrics) RecordError() {
	m.errors.Add(1)
}

// StreamOpened records a new event stream and returns its closer.
func (m *Metrics) StreamOpened() func() {
	m.streams.Add(1)
	return func() { m.streams.Add(-1) }
}

// RecordStreamed records one event written to a stream.
func (m *Metrics) RecordStreamed() {
	m.streamed.Add(1)
}

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Batches:       m.batches.Load(),
		Items:         m.items.Load(),
		Errors:        m.errors.Load(),
		OpenStreams:   m.streams.Load(),
		EventsWritten: m.streamed.Load(),
	}
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Batches       int64 `json:"batches"`
	Items         int64 `json:"items"`
	Errors        int64 `json:"errors"`
	OpenStreams   int64 `json:"open_streams"`
	EventsWritten int64 `json:"events_written"`
}
