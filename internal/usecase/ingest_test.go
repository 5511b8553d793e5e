package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
)

type fakeRunner struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (r *fakeRunner) ProcessJob(_ context.Context, job *entity.IngestJob) (*BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job.ID)
	if r.err != nil {
		return nil, r.err
	}
	return &BatchResult{RunID: job.ID}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestIngestManager_Submit(t *testing.T) {
	tests := []struct {
		name string
		job  *entity.IngestJob
	}{
		{name: "nil job", job: nil},
		{name: "no roaster", job: &entity.IngestJob{Platform: "shopify", Filenames: []string{"a.json"}}},
		{name: "no platform", job: &entity.IngestJob{RoasterID: "r1", Filenames: []string{"a.json"}}},
		{name: "no files", job: &entity.IngestJob{RoasterID: "r1", Platform: "shopify", Filenames: []string{" ", ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{}
			_, err := NewIngestManager(q, zap.NewNop()).Submit(context.Background(), tt.job)
			assert.ErrorIs(t, err, ErrInvalidJob)
			assert.Empty(t, q.jobs)
		})
	}

	t.Run("queued", func(t *testing.T) {
		q := &fakeQueue{}
		m := NewIngestManager(q, zap.NewNop())

		id, err := m.Submit(context.Background(), &entity.IngestJob{
			RoasterID: "r1",
			Platform:  "shopify",
			Filenames: []string{" a.json ", "", "b.json"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		require.Len(t, q.jobs, 1)
		assert.Equal(t, id, q.jobs[0].ID)
		assert.Equal(t, []string{"a.json", "b.json"}, q.jobs[0].Filenames)
		assert.False(t, q.jobs[0].SubmittedAt.IsZero())

		size, err := m.QueueSize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), size)
	})

	t.Run("queue failure", func(t *testing.T) {
		q := &fakeQueue{err: errors.New("redis down")}
		_, err := NewIngestManager(q, zap.NewNop()).Submit(context.Background(), &entity.IngestJob{
			RoasterID: "r1", Platform: "shopify", Filenames: []string{"a.json"},
		})
		assert.ErrorContains(t, err, "redis down")
	})
}

func TestIngestWorker_ProcessJobFromQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("empty queue", func(t *testing.T) {
		w := NewIngestWorker(&fakeQueue{}, &fakeRunner{}, 1, zap.NewNop())
		found, err := w.ProcessJobFromQueue(ctx)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("runs a job", func(t *testing.T) {
		q := &fakeQueue{jobs: []*entity.IngestJob{{ID: "job-1"}}}
		r := &fakeRunner{}
		found, err := NewIngestWorker(q, r, 1, zap.NewNop()).ProcessJobFromQueue(ctx)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []string{"job-1"}, r.jobs)
	})

	t.Run("runner failure", func(t *testing.T) {
		q := &fakeQueue{jobs: []*entity.IngestJob{{ID: "job-1"}}}
		found, err := NewIngestWorker(q, &fakeRunner{err: ErrNoReader}, 1, zap.NewNop()).ProcessJobFromQueue(ctx)
		assert.True(t, found)
		assert.ErrorIs(t, err, ErrNoReader)
	})

	t.Run("queue failure", func(t *testing.T) {
		q := &fakeQueue{err: errors.New("redis down")}
		found, err := NewIngestWorker(q, &fakeRunner{}, 1, zap.NewNop()).ProcessJobFromQueue(ctx)
		assert.False(t, found)
		assert.ErrorContains(t, err, "redis down")
	})
}

func TestIngestWorker_StartStop(t *testing.T) {
	q := &fakeQueue{jobs: []*entity.IngestJob{{ID: "job-1"}, {ID: "job-2"}}}
	r := &fakeRunner{}
	w := NewIngestWorker(q, r, 2, zap.NewNop())

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return r.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()
}

func TestJittered(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jittered(errorBackoff)
		assert.GreaterOrEqual(t, d, time.Duration(float64(errorBackoff)*(1-jitterFactor)))
		assert.LessOrEqual(t, d, time.Duration(float64(errorBackoff)*(1+jitterFactor)))
	}
}
