// Package guard gates image work on metadata-only runs. The state is chosen
// once from the run's metadata-only flag and never changes.
package guard

import (
	"sync"

	"go.uber.org/zap"

	"github.com/user/coffee-ingest/pkg/metrics"
)

// State is the fixed state of a Guard.
type State string

const (
	StateOpen    State = "open"
	StateBlocked State = "blocked"
)

type noOp struct{}

// NoOp is returned in place of a result when a blocked guard skips an operation.
var NoOp any = noOp{}

// Stats counts guarded operations.
type Stats struct {
	State     State `json:"state"`
	Checks    int   `json:"checks"`
	Skipped   int   `json:"skipped"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
}

// Guard intercepts image operations. It performs no I/O itself.
type Guard struct {
	state  State
	logger *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a guard that is Blocked when metadataOnly is set and Open otherwise.
func New(metadataOnly bool, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := StateOpen
	if metadataOnly {
		state = StateBlocked
	}
	return &Guard{state: state, logger: logger.With(zap.String("component", "image_guard"))}
}

// State returns the guard's fixed state.
func (g *Guard) State() State { return g.state }

// Blocked reports whether image operations are skipped.
func (g *Guard) Blocked() bool { return g.state == StateBlocked }

// CheckAllowed reports whether op may run and counts the check.
func (g *Guard) CheckAllowed(op string) bool {
	g.mu.Lock()
	g.stats.Checks++
	g.mu.Unlock()
	if g.Blocked() {
		g.logger.Debug("image operation not allowed", zap.String("op", op))
		return false
	}
	return true
}

// Do runs fn once when the guard is Open and returns its result and error
// unchanged. When Blocked, fn is not called and NoOp is returned.
func (g *Guard) Do(op string, fn func() (any, error)) (any, error) {
	res, ran, err := Call(g, op, fn)
	if !ran {
		return NoOp, nil
	}
	return res, err
}

// Call is the typed form of Do. ran is false when the guard skipped fn.
func Call[T any](g *Guard, op string, fn func() (T, error)) (res T, ran bool, err error) {
	if g.Blocked() {
		g.record(func(s *Stats) { s.Skipped++ }, "skipped")
		g.logger.Debug("image operation skipped", zap.String("op", op))
		return res, false, nil
	}
	res, err = fn()
	if err != nil {
		g.record(func(s *Stats) { s.Failed++ }, "failed")
		return res, true, err
	}
	g.record(func(s *Stats) { s.Succeeded++ }, "succeeded")
	return res, true, nil
}

// Skip counts n operations that a caller dropped after CheckAllowed refused
// them, so the skipped total matches the work a blocked run avoided.
func (g *Guard) Skip(op string, n int) {
	if n <= 0 {
		return
	}
	g.mu.Lock()
	g.stats.Skipped += n
	g.mu.Unlock()
	metrics.ImageGuardOperations.WithLabelValues("skipped").Add(float64(n))
	g.logger.Debug("image operations skipped", zap.String("op", op), zap.Int("count", n))
}

func (g *Guard) record(update func(*Stats), result string) {
	g.mu.Lock()
	update(&g.stats)
	g.mu.Unlock()
	metrics.ImageGuardOperations.WithLabelValues(result).Inc()
}

// Stats returns a snapshot of the counters.
func (g *Guard) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.stats
	s.State = g.state
	return s
}

// Reset zeroes the counters. The state is kept.
func (g *Guard) Reset() {
	g.mu.Lock()
	g.stats = Stats{}
	g.mu.Unlock()
}
