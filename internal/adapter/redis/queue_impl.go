package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/repository"
)

const ingestQueueKey = "ingest:queue"

// QueueRepoImpl is a FIFO of JSON-encoded ingest jobs on a Redis list.
type QueueRepoImpl struct {
	client Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a job to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, job *entity.IngestJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode ingest job: %w", err)
	}
	return r.client.LPush(ctx, ingestQueueKey, b).Err()
}

// Pop removes a job from the right side of the list. An empty list yields
// repository.ErrQueueEmpty.
func (r *QueueRepoImpl) Pop(ctx context.Context) (*entity.IngestJob, error) {
	s, err := r.client.RPop(ctx, ingestQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrQueueEmpty
		}
		return nil, err
	}
	var job entity.IngestJob
	if err := json.Unmarshal([]byte(s), &job); err != nil {
		return nil, fmt.Errorf("decode ingest job: %w", err)
	}
	return &job, nil
}

// Size returns the current number of queued jobs.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, ingestQueueKey).Result()
}
