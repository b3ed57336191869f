package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	requestLatency map[string]time.Duration
	errorCount     map[string]int64
	operationCount map[string]int64
	sweepCount     map[string]int64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	RequestLatency map[string]int64 `json:"request_latency_ms"`
	Errors         map[string]int64 `json:"errors"`
	Operations     map[string]int64 `json:"operations"`
	Sweeps         map[string]int64 `json:"sweeps"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		requestLatency: make(map[string]time.Duration),
		errorCount:     make(map[string]int64),
		operationCount: make(map[string]int64),
		sweepCount:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordOperation counts a ticket service call by name and outcome. A nil
// err counts as "ok".
func (m *Metrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationCount[op+"|"+outcome]++
}

// RecordSweep counts one background sweep run.
func (m *Metrics) RecordSweep(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepCount[outcome]++
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	latency := make(map[string]int64, len(m.requestLatency))
	for k, v := range m.requestLatency {
		latency[k] = v.Milliseconds()
	}
	return Snapshot{
		Requests:       copyCounts(m.requestCount),
		RequestLatency: latency,
		Errors:         copyCounts(m.errorCount),
		Operations:     copyCounts(m.operationCount),
		Sweeps:         copyCounts(m.sweepCount),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
