package dispatch

import (
	"sync/atomic"
	"time"
)

// Observer receives hooks after each dispatched operation. Implementations
// must be safe for concurrent use; the dispatcher calls them inline on
// the request path.
type Observer interface {
	OnCreate(operation string, duration time.Duration)
	OnRead(operation string, duration time.Duration)
	OnUpdate(operation string, duration time.Duration)
	OnDelete(operation string, duration time.Duration)
	OnError(operation string, status int)
}

// NoopObserver discards all hooks.
type NoopObserver struct{}

func (NoopObserver) OnCreate(string, time.Duration) {}
func (NoopObserver) OnRead(string, time.Duration)   {}
func (NoopObserver) OnUpdate(string, time.Duration) {}
func (NoopObserver) OnDelete(string, time.Duration) {}
func (NoopObserver) OnError(string, int)            {}

// MetricsObserver keeps atomic in-memory counters, exposed through the
// server's stats endpoint.
type MetricsObserver struct {
	createCount    atomic.Int64
	readCount      atomic.Int64
	updateCount    atomic.Int64
	deleteCount    atomic.Int64
	errorCount     atomic.Int64
	totalLatencyNs atomic.Int64
}

func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (m *MetricsObserver) OnCreate(_ string, d time.Duration) {
	m.createCount.Add(1)
	m.totalLatencyNs.Add(int64(d))
}

func (m *MetricsObserver) OnRead(_ string, d time.Duration) {
	m.readCount.Add(1)
	m.totalLatencyNs.Add(int64(d))
}

func (m *MetricsObserver) OnUpdate(_ string, d time.Duration) {
	m.updateCount.Add(1)
	m.totalLatencyNs.Add(int64(d))
}

func (m *MetricsObserver) OnDelete(_ string, d time.Duration) {
	m.deleteCount.Add(1)
	m.totalLatencyNs.Add(int64(d))
}

func (m *MetricsObserver) OnError(_ string, _ int) {
	m.errorCount.Add(1)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	CreateCount  int64         `json:"createCount"`
	ReadCount    int64         `json:"readCount"`
	UpdateCount  int64         `json:"updateCount"`
	DeleteCount  int64         `json:"deleteCount"`
	ErrorCount   int64         `json:"errorCount"`
	TotalLatency time.Duration `json:"totalLatencyNs"`
}

func (m *MetricsObserver) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		CreateCount:  m.createCount.Load(),
		ReadCount:    m.readCount.Load(),
		UpdateCount:  m.updateCount.Load(),
		DeleteCount:  m.deleteCount.Load(),
		ErrorCount:   m.errorCount.Load(),
		TotalLatency: time.Duration(m.totalLatencyNs.Load()),
	}
}

// Reset zeroes all counters.
func (m *MetricsObserver) Reset() {
	m.createCount.Store(0)
	m.readCount.Store(0)
	m.updateCount.Store(0)
	m.deleteCount.Store(0)
	m.errorCount.Store(0)
	m.totalLatencyNs.Store(0)
}
