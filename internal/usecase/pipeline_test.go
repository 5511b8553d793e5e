package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/guard"
)

func artifactDoc(id string) map[string]any {
	return map[string]any{
		"source":         "shopify",
		"roaster_domain": "example-roasters.com",
		"scraped_at":     "2024-05-01T10:00:00Z",
		"audit":          map[string]any{"artifact_id": id},
		"product": map[string]any{
			"platform_product_id": id,
			"title":               "Ethiopia Guji " + id,
			"product_type":        "Coffee",
			"source_url":          "https://example-roasters.com/products/" + id,
			"images":              []any{map[string]any{"url": "/img/" + id + ".jpg"}},
			"variants": []any{
				map[string]any{"platform_variant_id": id + "-v1", "title": "Whole Bean", "price": "18.00"},
				map[string]any{"platform_variant_id": id + "-v2", "title": "French Press Grind", "price": "18.50"},
			},
		},
	}
}

func encodeDoc(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func rawArtifact(t *testing.T, id string) []byte {
	return encodeDoc(t, artifactDoc(id))
}

func productOf(doc map[string]any) map[string]any { return doc["product"].(map[string]any) }

func newTestPipeline(deps Dependencies) *Pipeline {
	return NewPipeline(deps, Options{Workers: 2}, zap.NewNop())
}

func TestProcessBatch_OneResultPerItem(t *testing.T) {
	q := &fakeQuarantine{}
	p := newTestPipeline(Dependencies{Quarantine: q})

	missingDomain := artifactDoc("a4")
	delete(missingDomain, "roaster_domain")
	items := [][]byte{
		rawArtifact(t, "a1"),
		[]byte(`{"source": "shopify"`),
		rawArtifact(t, "a3"),
		encodeDoc(t, missingDomain),
	}

	res := p.ProcessBatch(context.Background(), Batch{RoasterID: "r1", Platform: "shopify", Items: items})

	require.Len(t, res.Results, len(items))
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, entity.OutcomeMapped, res.Results[0].Outcome)
	assert.Equal(t, entity.OutcomeInvalid, res.Results[1].Outcome)
	assert.Equal(t, entity.OutcomeMapped, res.Results[2].Outcome)
	assert.Equal(t, entity.OutcomeInvalid, res.Results[3].Outcome)

	assert.Equal(t, "a1", res.Results[0].ArtifactID)
	assert.Equal(t, "unknown_unknown_unknown", res.Results[1].ArtifactID)
	assert.Equal(t, "a4", res.Results[3].ArtifactID)

	mapped := res.Results[0].Mapped
	require.NotNil(t, mapped)
	assert.Equal(t, "whole", mapped.Coffee.DefaultGrind)
	require.NotNil(t, res.Results[0].IsCoffee)
	assert.True(t, *res.Results[0].IsCoffee)

	byID := make(map[string]*entity.InvalidArtifact)
	for _, r := range q.all() {
		byID[r.ArtifactID] = r
	}
	require.Len(t, byID, 2)
	assert.Equal(t, entity.CategoryTypeMismatch, byID["unknown_unknown_unknown"].Reason)
	assert.Equal(t, items[1], byID["unknown_unknown_unknown"].RawPayload)
	assert.Equal(t, entity.CategoryMissingField, byID["a4"].Reason)
	assert.Equal(t, "r1", byID["a4"].RoasterID)
	assert.NotEmpty(t, byID["a4"].ID)

	s := res.Stats
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, s.RunID)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Count(entity.OutcomeMapped))
	assert.Equal(t, 2, s.Count(entity.OutcomeInvalid))
	assert.Len(t, s.ErrorSamples[entity.CategoryMissingField], 1)
	assert.Equal(t, 4, s.Components.Validation.Total)
	assert.Nil(t, s.Components.Upsert)
}

func TestProcessBatch_Persists(t *testing.T) {
	store := newFakeStore()
	raw := &fakeRawStore{}
	processed := newFakeProcessed()
	p := newTestPipeline(Dependencies{Store: store, RawStore: raw, Processed: processed})

	item := rawArtifact(t, "a1")
	res := p.ProcessBatch(context.Background(), Batch{RoasterID: "r1", Platform: "shopify", Items: [][]byte{item}})

	require.Len(t, res.Results, 1)
	r := res.Results[0]
	assert.Equal(t, entity.OutcomePersisted, r.Outcome)
	assert.Equal(t, "coffee-1", r.CoffeeID)
	assert.Nil(t, r.Mapped)

	require.Len(t, store.coffees, 1)
	c := store.coffees[0]
	assert.Equal(t, "r1", c.RoasterID)
	assert.Equal(t, "whole", c.DefaultGrind)
	assert.NotEmpty(t, c.ContentHash)
	assert.NotEmpty(t, c.RawPayloadHash)

	require.Len(t, store.variants, 2)
	total := 0
	for variantID, prices := range store.prices {
		assert.Contains(t, store.variants, variantID)
		total += len(prices)
	}
	assert.Equal(t, 2, total)

	require.Len(t, store.images, 1)
	assert.Equal(t, "https://example-roasters.com/img/a1.jpg", store.images[0].URL)

	assert.Equal(t, item, raw.saved["a1"])
	assert.Len(t, processed.hashes, 1)
	for _, ttl := range processed.hashes {
		assert.Equal(t, defaultDedupTTL, ttl)
	}

	assert.Equal(t, guard.StateOpen, res.Stats.Guard.State)
	assert.Zero(t, res.Stats.Guard.Skipped)
	require.NotNil(t, res.Stats.Components.Upsert)
	assert.Equal(t, 1, res.Stats.Components.Upsert.Calls["upsert_coffee"])
}

func TestProcessBatch_MetadataOnlySkipsImages(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(Dependencies{Store: store})

	res := p.ProcessBatch(context.Background(), Batch{
		RoasterID:    "r1",
		Platform:     "shopify",
		MetadataOnly: true,
		Items:        [][]byte{rawArtifact(t, "a1")},
	})

	assert.Equal(t, entity.OutcomePersisted, res.Results[0].Outcome)
	assert.Empty(t, store.images)
	assert.Len(t, store.variants, 2)
	assert.Equal(t, guard.StateBlocked, res.Stats.Guard.State)
	assert.Equal(t, 1, res.Stats.Guard.Skipped)
	assert.True(t, res.Stats.MetadataOnly)
	assert.Equal(t, 1, res.Stats.Components.Mapping.ImagesSkipped)
}

func TestProcessBatch_MetadataOnlyOption(t *testing.T) {
	store := newFakeStore()
	p := NewPipeline(Dependencies{Store: store}, Options{MetadataOnly: true}, zap.NewNop())

	res := p.ProcessBatch(context.Background(), Batch{RoasterID: "r1", Items: [][]byte{rawArtifact(t, "a1")}})

	assert.Equal(t, entity.OutcomePersisted, res.Results[0].Outcome)
	assert.Empty(t, store.images)
	assert.True(t, res.Stats.MetadataOnly)
}

func TestProcessBatch_CoffeeUpsertFailure(t *testing.T) {
	store := newFakeStore()
	store.failCoffee = true
	q := &fakeQuarantine{}
	p := newTestPipeline(Dependencies{Store: store, Quarantine: q})

	res := p.ProcessBatch(context.Background(), Batch{RoasterID: "r1", Items: [][]byte{rawArtifact(t, "a1")}})

	r := res.Results[0]
	assert.Equal(t, entity.OutcomeFailed, r.Outcome)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, entity.CategoryPersistenceError, r.Errors[0].Category)
	assert.Contains(t, r.Errors[0].Message, errStoreDown.Error())

	records := q.all()
	require.Len(t, records, 1)
	assert.Equal(t, entity.CategoryPersistenceError, records[0].Reason)
	assert.Len(t, res.Stats.ErrorSamples[entity.CategoryPersistenceError], 1)
}

func TestProcessBatch_VariantFailureSkipsItsPrice(t *testing.T) {
	store := newFakeStore()
	store.failVariant["a1-v2"] = true
	p := newTestPipeline(Dependencies{Store: store})

	res := p.ProcessBatch(context.Background(), Batch{RoasterID: "r1", Items: [][]byte{rawArtifact(t, "a1")}})

	assert.Equal(t, entity.OutcomePersisted, res.Results[0].Outcome)
	require.Len(t, store.variants, 1)
	require.Len(t, store.prices, 1)
	for _, prices := range store.prices {
		require.Len(t, prices, 1)
		assert.Equal(t, "a1-v1", prices[0].PlatformVariantID)
	}
	assert.Equal(t, 1, res.Stats.RecordFailures["upsert_variant"])
	assert.Equal(t, 1, res.Stats.RecordFailures["insert_price"])
}

func TestProcessBatch_Duplicates(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(Dependencies{Store: store, Processed: newFakeProcessed()})
	item := rawArtifact(t, "a1")
	ctx := context.Background()

	first := p.ProcessBatch(ctx, Batch{RoasterID: "r1", Items: [][]byte{item}})
	assert.Equal(t, entity.OutcomePersisted, first.Results[0].Outcome)

	second := p.ProcessBatch(ctx, Batch{RoasterID: "r1", Items: [][]byte{item}})
	assert.Equal(t, entity.OutcomeDuplicate, second.Results[0].Outcome)
	assert.Len(t, store.coffees, 1)

	forced := p.ProcessBatch(ctx, Batch{RoasterID: "r1", Force: true, Items: [][]byte{item}})
	assert.Equal(t, entity.OutcomePersisted, forced.Results[0].Outcome)
	assert.Len(t, store.coffees, 2)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	q := &fakeQuarantine{}
	p := newTestPipeline(Dependencies{Quarantine: q})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.ProcessBatch(ctx, Batch{Items: [][]byte{rawArtifact(t, "a1"), []byte(`nope`)}})

	require.Len(t, res.Results, 2)
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, entity.OutcomeCancelled, r.Outcome)
	}
	assert.Empty(t, q.all())
	assert.Equal(t, 2, res.Stats.Count(entity.OutcomeCancelled))
}

func TestProcessBatch_MappingErrorIsQuarantined(t *testing.T) {
	q := &fakeQuarantine{}
	p := newTestPipeline(Dependencies{Quarantine: q})

	doc := artifactDoc("a1")
	productOf(doc)["title"] = "   "
	res := p.ProcessBatch(context.Background(), Batch{Items: [][]byte{encodeDoc(t, doc)}})

	r := res.Results[0]
	assert.Equal(t, entity.OutcomeError, r.Outcome)
	require.NotEmpty(t, r.Errors)
	assert.Equal(t, entity.CategoryPipelineError, r.Errors[len(r.Errors)-1].Category)

	records := q.all()
	require.Len(t, records, 1)
	assert.Equal(t, entity.CategoryPipelineError, records[0].Reason)
	assert.Equal(t, "a1", records[0].ArtifactID)
}

func TestProcessBatch_Classification(t *testing.T) {
	p := newTestPipeline(Dependencies{})

	equipment := artifactDoc("a1")
	productOf(equipment)["product_type"] = "Coffee Equipment"
	productOf(equipment)["title"] = "Hario V60 Dripper"

	upstream := artifactDoc("a2")
	upstream["normalization"] = map[string]any{"is_coffee": false}

	res := p.ProcessBatch(context.Background(), Batch{Items: [][]byte{encodeDoc(t, equipment), encodeDoc(t, upstream)}})

	for _, r := range res.Results {
		assert.Equal(t, entity.OutcomeMapped, r.Outcome, "non-coffee artifacts are still mapped")
		require.NotNil(t, r.IsCoffee)
		assert.False(t, *r.IsCoffee)
	}
}

func TestProcessBatch_ErrorSamplesCapped(t *testing.T) {
	p := newTestPipeline(Dependencies{})

	var items [][]byte
	for i := 0; i < 5; i++ {
		doc := artifactDoc("a")
		delete(doc, "scraped_at")
		items = append(items, encodeDoc(t, doc))
	}
	res := p.ProcessBatch(context.Background(), Batch{Items: items})

	assert.Equal(t, 5, res.Stats.Count(entity.OutcomeInvalid))
	assert.Len(t, res.Stats.ErrorSamples[entity.CategoryMissingField], maxErrorSamples)
	assert.Equal(t, 5, res.Stats.ErrorCounts[entity.CategoryMissingField])
}

func TestProcessFiles(t *testing.T) {
	t.Run("reads through the reader", func(t *testing.T) {
		reader := fakeReader{"r1/shopify/a1.json": rawArtifact(t, "a1")}
		p := newTestPipeline(Dependencies{Reader: reader})

		res, err := p.ProcessFiles(context.Background(), "r1", "shopify", []string{"a1.json", "missing.json"}, false)
		require.NoError(t, err)

		require.Len(t, res.Results, 2)
		assert.Equal(t, entity.OutcomeMapped, res.Results[0].Outcome)
		assert.Equal(t, entity.OutcomeError, res.Results[1].Outcome)
		assert.Equal(t, "missing.json", res.Results[1].ArtifactID)
		require.Len(t, res.Results[1].Errors, 1)
		assert.Equal(t, entity.CategoryPipelineError, res.Results[1].Errors[0].Category)
		assert.Equal(t, "r1", res.Stats.RoasterID)
	})

	t.Run("no reader", func(t *testing.T) {
		p := newTestPipeline(Dependencies{})
		_, err := p.ProcessFiles(context.Background(), "r1", "shopify", []string{"a1.json"}, false)
		assert.ErrorIs(t, err, ErrNoReader)
	})

	t.Run("job id becomes run id", func(t *testing.T) {
		reader := fakeReader{"r1/shopify/a1.json": rawArtifact(t, "a1")}
		p := newTestPipeline(Dependencies{Reader: reader})

		res, err := p.ProcessJob(context.Background(), &entity.IngestJob{
			ID:        "job-1",
			RoasterID: "r1",
			Platform:  "shopify",
			Filenames: []string{"a1.json"},
		})
		require.NoError(t, err)
		assert.Equal(t, "job-1", res.RunID)
	})
}

func TestPipeline_ValidateAndStats(t *testing.T) {
	p := newTestPipeline(Dependencies{})

	assert.True(t, p.Validate(rawArtifact(t, "a1")).IsValid)
	assert.False(t, p.Validate([]byte(`[]`)).IsValid)

	s := p.Stats()
	assert.Equal(t, 2, s.Validation.Total)
	assert.Equal(t, 1, s.Validation.Invalid)

	p.ResetStats()
	assert.Zero(t, p.Stats().Validation.Total)
}
