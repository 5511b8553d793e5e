package repository

import (
	"context"

	"github.com/user/coffee-ingest/internal/entity"
)

// ClassificationFallback is an external classifier consulted for products the
// keyword rules cannot decide.
type ClassificationFallback interface {
	Classify(ctx context.Context, req *entity.ClassificationRequest) (*entity.ClassificationResponse, error)
}
