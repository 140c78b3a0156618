package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects tick-level runtime counters. Safe for concurrent
// overlapping ticks.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	TicksStarted    int64
	TicksCompleted  int64
	TicksAborted    int64
	TicksIdle       int64 // ticks that found nothing to do
	GenerationCalls int64
	MemoryWrites    int64
	MemoryFailures  int64

	// Histogram (simplified)
	generationLatencies []time.Duration
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		generationLatencies: make([]time.Duration, 0, 1000),
	}
}

// IncTicksStarted increments the ticks started counter.
func (m *Metrics) IncTicksStarted() {
	atomic.AddInt64(&m.TicksStarted, 1)
}

// IncTicksCompleted increments the ticks completed counter.
func (m *Metrics) IncTicksCompleted() {
	atomic.AddInt64(&m.TicksCompleted, 1)
}

// IncTicksAborted increments the ticks aborted counter.
func (m *Metrics) IncTicksAborted() {
	atomic.AddInt64(&m.TicksAborted, 1)
}

// IncTicksIdle increments the idle tick counter.
func (m *Metrics) IncTicksIdle() {
	atomic.AddInt64(&m.TicksIdle, 1)
}

// IncGenerationCalls increments the generation call counter.
func (m *Metrics) IncGenerationCalls() {
	atomic.AddInt64(&m.GenerationCalls, 1)
}

// IncMemoryWrites increments the memory write counter.
func (m *Metrics) IncMemoryWrites() {
	atomic.AddInt64(&m.MemoryWrites, 1)
}

// IncMemoryFailures increments the swallowed memory failure counter.
func (m *Metrics) IncMemoryFailures() {
	atomic.AddInt64(&m.MemoryFailures, 1)
}

// ObserveGenerationLatency records a generation round-trip duration.
func (m *Metrics) ObserveGenerationLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generationLatencies = append(m.generationLatencies, d)
}

// Snapshot returns current counter values as a map for reporting.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"ticks_started":    atomic.LoadInt64(&m.TicksStarted),
		"ticks_completed":  atomic.LoadInt64(&m.TicksCompleted),
		"ticks_aborted":    atomic.LoadInt64(&m.TicksAborted),
		"ticks_idle":       atomic.LoadInt64(&m.TicksIdle),
		"generation_calls": atomic.LoadInt64(&m.GenerationCalls),
		"memory_writes":    atomic.LoadInt64(&m.MemoryWrites),
		"memory_failures":  atomic.LoadInt64(&m.MemoryFailures),
	}
}

// AvgGenerationLatency returns the mean generation latency, or zero when
// nothing has been observed yet.
func (m *Metrics) AvgGenerationLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.generationLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.generationLatencies {
		total += d
	}
	return total / time.Duration(len(m.generationLatencies))
}
