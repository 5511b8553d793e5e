package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/repository"
)

const (
	// errorBackoff is the pause after a queue failure, +/- jitterFactor.
	errorBackoff = 5 * time.Second
	jitterFactor = 0.2
	// idlePoll is the pause after finding the queue empty.
	idlePoll = time.Second
)

// JobRunner executes an ingest job. *Pipeline implements it.
type JobRunner interface {
	ProcessJob(ctx context.Context, job *entity.IngestJob) (*BatchResult, error)
}

// IngestWorker drains the ingest queue with a fixed number of goroutines.
type IngestWorker struct {
	queueRepo repository.QueueRepository
	runner    JobRunner
	workers   int
	logger    *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewIngestWorker creates a worker pool. It does nothing until Start.
func NewIngestWorker(queueRepo repository.QueueRepository, runner JobRunner, workers int, logger *zap.Logger) *IngestWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &IngestWorker{
		queueRepo: queueRepo,
		runner:    runner,
		workers:   workers,
		logger:    logger.With(zap.String("component", "ingest_worker")),
		stopChan:  make(chan struct{}),
	}
}

// ProcessJobFromQueue pops one job and runs it. It reports whether a job
// was found; an empty queue is not an error.
func (w *IngestWorker) ProcessJobFromQueue(ctx context.Context) (bool, error) {
	job, err := w.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			return false, nil
		}
		return false, fmt.Errorf("failed to pop ingest job: %w", err)
	}

	w.logger.Info("processing ingest job",
		zap.String("job_id", job.ID),
		zap.String("roaster_id", job.RoasterID),
		zap.Int("files", len(job.Filenames)),
	)
	res, err := w.runner.ProcessJob(ctx, job)
	if err != nil {
		return true, fmt.Errorf("ingest job %s: %w", job.ID, err)
	}
	w.logger.Info("ingest job finished",
		zap.String("job_id", job.ID),
		zap.Any("outcomes", res.Stats.Outcomes),
		zap.Duration("duration", res.Stats.Duration),
	)
	return true, nil
}

// Start launches the workers. They stop when ctx is done or Stop is called.
func (w *IngestWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (w *IngestWorker) Stop() {
	w.once.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

func (w *IngestWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
		}

		found, err := w.ProcessJobFromQueue(ctx)
		var pause time.Duration
		switch {
		case err != nil:
			w.logger.Error("ingest worker error", zap.Error(err))
			pause = jittered(errorBackoff)
		case !found:
			pause = idlePoll
		}
		if pause == 0 {
			continue
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func jittered(d time.Duration) time.Duration {
	jitter := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(d) * (1 + jitter))
}
