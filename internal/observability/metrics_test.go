package observability

import (
	"errors"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:id", "GET", 200, 3*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 200, 2*time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "NOT_FOUND")
	m.RecordOperation("create", nil)
	m.RecordOperation("create", errors.New("boom"))
	m.RecordSweep(nil)

	s := m.Snapshot()
	if got := s.Requests["/tickets/:id|GET|200"]; got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
	if got := s.RequestLatency["/tickets/:id|GET|200"]; got != 5 {
		t.Errorf("expected 5ms latency, got %d", got)
	}
	if got := s.Errors["/tickets/:id|GET|NOT_FOUND"]; got != 1 {
		t.Errorf("expected 1 error, got %d", got)
	}
	if s.Operations["create|ok"] != 1 || s.Operations["create|error"] != 1 {
		t.Errorf("unexpected operations: %v", s.Operations)
	}
	if s.Sweeps["ok"] != 1 {
		t.Errorf("expected 1 sweep, got %v", s.Sweeps)
	}

	s.Operations["create|ok"] = 99
	if m.Snapshot().Operations["create|ok"] != 1 {
		t.Error("expected snapshot to be a copy")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordOperation("view", nil)
	m.RecordSweep(nil)
	if s := m.Snapshot(); s.Requests != nil {
		t.Errorf("expected empty snapshot, got %+v", s)
	}
}
