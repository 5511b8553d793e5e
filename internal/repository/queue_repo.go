package repository

import (
	"context"
	"errors"

	"github.com/user/coffee-ingest/internal/entity"
)

// ErrQueueEmpty is returned by Pop when no job is waiting.
var ErrQueueEmpty = errors.New("ingest queue is empty")

// QueueRepository is a FIFO queue of ingest jobs.
type QueueRepository interface {
	// Push adds a job to the end of the queue.
	Push(ctx context.Context, job *entity.IngestJob) error
	// Pop removes and returns the job at the front of the queue.
	Pop(ctx context.Context) (*entity.IngestJob, error)
	// Size returns the current number of queued jobs.
	Size(ctx context.Context) (int64, error)
}
