package mapper

import "sync"

// StatsSnapshot is a point-in-time copy of the mapper counters.
type StatsSnapshot struct {
	ArtifactsMapped int `json:"artifacts_mapped"`
	ArtifactsFailed int `json:"artifacts_failed"`
	VariantsBuilt   int `json:"variants_built"`
	VariantsSkipped int `json:"variants_skipped"`
	PricesBuilt     int `json:"prices_built"`
	PricesSkipped   int `json:"prices_skipped"`
	ImagesBuilt     int `json:"images_built"`
	ImagesSkipped   int `json:"images_skipped"`
}

// Stats counts mapping results across artifacts.
type Stats struct {
	mu sync.Mutex
	s  StatsSnapshot
}

func (st *Stats) add(update func(*StatsSnapshot)) {
	st.mu.Lock()
	update(&st.s)
	st.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// Reset zeroes the counters.
func (st *Stats) Reset() {
	st.mu.Lock()
	st.s = StatsSnapshot{}
	st.mu.Unlock()
}
