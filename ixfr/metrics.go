package ixfr

import "sync/atomic"

// Metrics accumulates process-lifetime counters for the operational
// outcomes a host cares about when running this package in a server.
// Every field is safe for concurrent use from the query path and the
// builder path simultaneously.
type Metrics struct {
	QueriesUpToDate   atomic.Int64
	QueriesIxfr       atomic.Int64
	QueriesAxfr       atomic.Int64
	QueriesError      atomic.Int64
	SegmentsBuilt     atomic.Int64
	SegmentsCancelled atomic.Int64
	SegmentsEvicted   atomic.Int64
	PersistWrites     atomic.Int64
	PersistReads      atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics, suitable for JSON
// encoding by an admin API handler.
type MetricsSnapshot struct {
	QueriesUpToDate   int64
	QueriesIxfr       int64
	QueriesAxfr       int64
	QueriesError      int64
	SegmentsBuilt     int64
	SegmentsCancelled int64
	SegmentsEvicted   int64
	PersistWrites     int64
	PersistReads      int64
}

// DefaultMetrics is the package-wide counter set used by HandleQuery,
// Builder, and Chain unless a host wires its own via SetMetrics.
var DefaultMetrics = &Metrics{}

// SetMetrics swaps the package-wide counter set, letting a host scope
// metrics per zone or per listener instead of sharing one global set.
func SetMetrics(m *Metrics) {
	if m == nil {
		m = &Metrics{}
	}
	DefaultMetrics = m
}

// Snapshot copies m's current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		QueriesUpToDate:   m.QueriesUpToDate.Load(),
		QueriesIxfr:       m.QueriesIxfr.Load(),
		QueriesAxfr:       m.QueriesAxfr.Load(),
		QueriesError:      m.QueriesError.Load(),
		SegmentsBuilt:     m.SegmentsBuilt.Load(),
		SegmentsCancelled: m.SegmentsCancelled.Load(),
		SegmentsEvicted:   m.SegmentsEvicted.Load(),
		PersistWrites:     m.PersistWrites.Load(),
		PersistReads:      m.PersistReads.Load(),
	}
}
