package qsim

import (
	"sort"
	"sync"
	"time"
)

// Metrics tracks the subsystem's operational counters. All mutation
// goes through the recording methods; readers take a Snapshot.
type Metrics struct {
	mu sync.RWMutex

	circuitsLive int
	bytesInUse   int64
	gatesApplied int64
	measurements int64
	searchRuns   int64
	opCount      int64
	errorCounts  map[ErrorKind]int64
	availability AvailabilityState

	averageOpLatency time.Duration
	p95OpLatency     time.Duration
	p99OpLatency     time.Duration

	latencyWindow []time.Duration
	windowSize    int
}

// MetricsSnapshot is a point-in-time copy safe to read and serialize.
type MetricsSnapshot struct {
	CircuitsLive int
	BytesInUse   int64
	GatesApplied int64
	Measurements int64
	SearchRuns   int64
	OpCount      int64
	ErrorCounts  map[ErrorKind]int64
	Availability AvailabilityState

	AverageOpLatency time.Duration
	P95OpLatency     time.Duration
	P99OpLatency     time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		errorCounts:   make(map[ErrorKind]int64),
		latencyWindow: make([]time.Duration, 0, 1000), // Last 1000 operations
		windowSize:    1000,
	}
}

// recordOp tracks one API operation's latency and outcome.
func (m *Metrics) recordOp(start time.Time, err error) {
	duration := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.opCount++
	if err != nil {
		m.errorCounts[KindOf(err)]++
	}
	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.averageOpLatency = (m.averageOpLatency*time.Duration(m.opCount-1) + duration) /
		time.Duration(m.opCount)

	m.latencyWindow = append(m.latencyWindow, duration)
	if len(m.latencyWindow) > m.windowSize {
		m.latencyWindow = m.latencyWindow[1:]
	}

	sorted := make([]time.Duration, len(m.latencyWindow))
	copy(sorted, m.latencyWindow)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(sorted) > 0 {
		p95 := int(float64(len(sorted)) * 0.95)
		p99 := int(float64(len(sorted)) * 0.99)
		if p95 >= len(sorted) {
			p95 = len(sorted) - 1
		}
		if p99 >= len(sorted) {
			p99 = len(sorted) - 1
		}
		m.p95OpLatency = sorted[p95]
		m.p99OpLatency = sorted[p99]
	}
}

func (m *Metrics) addGates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gatesApplied += int64(n)
}

func (m *Metrics) addMeasurement() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.measurements++
}

func (m *Metrics) addSearchRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchRuns++
}

func (m *Metrics) setCircuitsLive(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitsLive = n
}

func (m *Metrics) setBytesInUse(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesInUse = n
}

func (m *Metrics) setAvailability(s AvailabilityState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availability = s
}

// Snapshot returns a consistent copy of every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := MetricsSnapshot{
		CircuitsLive:     m.circuitsLive,
		BytesInUse:       m.bytesInUse,
		GatesApplied:     m.gatesApplied,
		Measurements:     m.measurements,
		SearchRuns:       m.searchRuns,
		OpCount:          m.opCount,
		Availability:     m.availability,
		AverageOpLatency: m.averageOpLatency,
		P95OpLatency:     m.p95OpLatency,
		P99OpLatency:     m.p99OpLatency,
		ErrorCounts:      make(map[ErrorKind]int64, len(m.errorCounts)),
	}
	for k, v := range m.errorCounts {
		out.ErrorCounts[k] = v
	}
	return out
}
