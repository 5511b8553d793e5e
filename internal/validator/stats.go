package validator

import (
	"sync"

	"github.com/user/coffee-ingest/internal/entity"
)

// Stats accumulates validation counts. It belongs to the caller, which keeps
// Validate free of side effects.
type Stats struct {
	mu         sync.Mutex
	total      int
	valid      int
	invalid    int
	errorTypes map[entity.ErrorCategory]int
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Total      int                          `json:"total"`
	Valid      int                          `json:"valid"`
	Invalid    int                          `json:"invalid"`
	ErrorTypes map[entity.ErrorCategory]int `json:"error_types"`
}

// NewStats creates empty validation stats.
func NewStats() *Stats {
	return &Stats{errorTypes: make(map[entity.ErrorCategory]int)}
}

// Record counts one outcome.
func (s *Stats) Record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if o.IsValid {
		s.valid++
	} else {
		s.invalid++
	}
	for _, e := range o.Errors {
		s.errorTypes[e.Category]++
	}
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make(map[entity.ErrorCategory]int, len(s.errorTypes))
	for k, v := range s.errorTypes {
		types[k] = v
	}
	return StatsSnapshot{Total: s.total, Valid: s.valid, Invalid: s.invalid, ErrorTypes: types}
}

// Reset zeroes the counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total, s.valid, s.invalid = 0, 0, 0
	s.errorTypes = make(map[entity.ErrorCategory]int)
}
