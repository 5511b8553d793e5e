package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/repository"
)

// ErrInvalidJob is returned when a job lacks a roaster, a platform or files.
var ErrInvalidJob = errors.New("ingest job needs roaster_id, platform and at least one filename")

// IngestManager accepts ingest jobs for asynchronous processing.
type IngestManager interface {
	Submit(ctx context.Context, job *entity.IngestJob) (string, error)
	QueueSize(ctx context.Context) (int64, error)
}

type ingestManager struct {
	queueRepo repository.QueueRepository
	logger    *zap.Logger
}

// NewIngestManager creates an IngestManager backed by queueRepo.
func NewIngestManager(queueRepo repository.QueueRepository, logger *zap.Logger) IngestManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ingestManager{queueRepo: queueRepo, logger: logger.With(zap.String("component", "ingest_manager"))}
}

// Submit assigns the job an id and queues it. The id doubles as the run id
// of the batch the worker eventually executes.
func (m *ingestManager) Submit(ctx context.Context, job *entity.IngestJob) (string, error) {
	if job == nil || strings.TrimSpace(job.RoasterID) == "" || strings.TrimSpace(job.Platform) == "" {
		return "", ErrInvalidJob
	}
	files := job.Filenames[:0:0]
	for _, f := range job.Filenames {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return "", ErrInvalidJob
	}
	job.Filenames = files
	job.ID = uuid.NewString()
	job.SubmittedAt = time.Now().UTC()

	if err := m.queueRepo.Push(ctx, job); err != nil {
		return "", fmt.Errorf("failed to queue ingest job: %w", err)
	}
	m.logger.Info("ingest job queued",
		zap.String("job_id", job.ID),
		zap.String("roaster_id", job.RoasterID),
		zap.Int("files", len(files)),
	)
	return job.ID, nil
}

func (m *ingestManager) QueueSize(ctx context.Context) (int64, error) {
	return m.queueRepo.Size(ctx)
}
