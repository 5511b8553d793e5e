package usecase

import (
	"sync"
	"time"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/guard"
	"github.com/user/coffee-ingest/internal/mapper"
	"github.com/user/coffee-ingest/internal/validator"
)

// maxErrorSamples is the number of example messages kept per error category.
const maxErrorSamples = 3

// ComponentStats are the cumulative counters of the pipeline's components.
type ComponentStats struct {
	Validation validator.StatsSnapshot `json:"validation"`
	Mapping    mapper.StatsSnapshot    `json:"mapping"`
	Upsert     *entity.UpsertStats     `json:"upsert,omitempty"`
}

// RunStats summarizes one batch.
type RunStats struct {
	RunID          string                            `json:"run_id"`
	RoasterID      string                            `json:"roaster_id"`
	Platform       string                            `json:"platform"`
	MetadataOnly   bool                              `json:"metadata_only"`
	StartedAt      time.Time                         `json:"started_at"`
	Duration       time.Duration                     `json:"duration_ns"`
	Total          int                               `json:"total"`
	Outcomes       map[entity.Outcome]int            `json:"outcomes"`
	ErrorSamples   map[entity.ErrorCategory][]string `json:"error_samples,omitempty"`
	ErrorCounts    map[entity.ErrorCategory]int      `json:"error_counts,omitempty"`
	RecordFailures map[string]int                    `json:"record_failures,omitempty"`
	Guard          guard.Stats                       `json:"guard"`
	Components     ComponentStats                    `json:"components"`
}

// Count returns the number of artifacts that ended with outcome o.
func (s RunStats) Count(o entity.Outcome) int { return s.Outcomes[o] }

type runStats struct {
	mu       sync.Mutex
	meta     runMeta
	started  time.Time
	total    int
	outcomes map[entity.Outcome]int
	samples  map[entity.ErrorCategory][]string
	counts   map[entity.ErrorCategory]int
	failures map[string]int
}

func newRunStats(meta runMeta, started time.Time) *runStats {
	return &runStats{
		meta:     meta,
		started:  started,
		outcomes: make(map[entity.Outcome]int),
		samples:  make(map[entity.ErrorCategory][]string),
		counts:   make(map[entity.ErrorCategory]int),
		failures: make(map[string]int),
	}
}

func (s *runStats) record(res ItemResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.outcomes[res.Outcome]++
}

// sample counts an error and keeps its message if the category has room.
func (s *runStats) sample(e entity.FieldError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[e.Category]++
	if len(s.samples[e.Category]) < maxErrorSamples {
		s.samples[e.Category] = append(s.samples[e.Category], e.Error())
	}
}

func (s *runStats) recordFailure(op string) {
	s.mu.Lock()
	s.failures[op]++
	s.mu.Unlock()
}

func (s *runStats) snapshot(now time.Time) RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := RunStats{
		RunID:          s.meta.runID,
		RoasterID:      s.meta.roasterID,
		Platform:       s.meta.platform,
		MetadataOnly:   s.meta.metadataOnly,
		StartedAt:      s.started,
		Duration:       now.Sub(s.started),
		Total:          s.total,
		Outcomes:       make(map[entity.Outcome]int, len(s.outcomes)),
		ErrorSamples:   make(map[entity.ErrorCategory][]string, len(s.samples)),
		ErrorCounts:    make(map[entity.ErrorCategory]int, len(s.counts)),
		RecordFailures: make(map[string]int, len(s.failures)),
	}
	for k, v := range s.outcomes {
		out.Outcomes[k] = v
	}
	for k, v := range s.samples {
		out.ErrorSamples[k] = append([]string(nil), v...)
	}
	for k, v := range s.counts {
		out.ErrorCounts[k] = v
	}
	for k, v := range s.failures {
		out.RecordFailures[k] = v
	}
	return out
}
