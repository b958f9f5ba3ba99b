// Package audit records stage transitions as an append-only trail.
package audit

import (
	"sync"
	"time"
)

// Record is one stage transition on one schedule. Records are append-only:
// a sink never mutates or reorders what it has accepted.
type Record struct {
	JobID      string    `json:"jobId"`
	ScheduleID string    `json:"scheduleId"`
	Stage      string    `json:"stage"`
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actor"`
}

// Sink accepts transition records. Implementations must treat Append as
// append-only.
type Sink interface {
	Append(rec Record) error
}

// MemorySink is a concurrency-safe in-memory Sink.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores the record.
func (s *MemorySink) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of all accepted records in append order.
func (s *MemorySink) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ForJob returns the records for one job in append order.
func (s *MemorySink) ForJob(jobID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out
}
