package repository

import (
	"context"

	"github.com/user/coffee-ingest/internal/entity"
)

// CoffeeStore is the upsert surface of the catalogue store. Every call
// returns the opaque id of the written record. Upserts are idempotent on
// their natural keys.
type CoffeeStore interface {
	UpsertCoffee(ctx context.Context, coffee *entity.CoffeePayload) (string, error)
	UpsertVariant(ctx context.Context, coffeeID string, variant *entity.VariantPayload) (string, error)
	InsertPrice(ctx context.Context, variantID string, price *entity.PricePayload) (string, error)
	UpsertCoffeeImage(ctx context.Context, coffeeID string, image *entity.ImagePayload) (string, error)
}

// UpsertStatsReporter is implemented by stores that count their calls.
type UpsertStatsReporter interface {
	UpsertStats() entity.UpsertStats
}
