package validator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/coffee-ingest/internal/entity"
)

func validDoc() map[string]any {
	return map[string]any{
		"source":         "shopify",
		"roaster_domain": "example-roasters.com",
		"scraped_at":     "2024-05-01T10:00:00Z",
		"product": map[string]any{
			"platform_product_id": "p-1",
			"title":               "Ethiopia Guji",
			"source_url":          "https://example-roasters.com/products/ethiopia-guji",
			"variants": []any{
				map[string]any{
					"platform_variant_id": "v-1",
					"title":               "French Press Grind",
					"price":               "25.99",
				},
			},
		},
	}
}

func encode(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func product(doc map[string]any) map[string]any { return doc["product"].(map[string]any) }

func variant(doc map[string]any) map[string]any {
	return product(doc)["variants"].([]any)[0].(map[string]any)
}

func TestValidate_Valid(t *testing.T) {
	out := New().Validate(encode(t, validDoc()))

	require.True(t, out.IsValid, "errors: %v", out.Errors)
	assert.Empty(t, out.Errors)
	assert.Equal(t, "shopify_example-roasters.com_2024-05-01T10:00:00Z", out.ArtifactID)

	a := out.Artifact
	require.NotNil(t, a)
	assert.Equal(t, entity.SourceShopify, a.Source)
	assert.True(t, a.ScrapedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	require.Len(t, a.Product.Variants, 1)
	require.NotNil(t, a.Product.Variants[0].PriceDecimal)
	assert.InDelta(t, 25.99, *a.Product.Variants[0].PriceDecimal, 1e-9)
	assert.NotEmpty(t, a.Product.Variants[0].RawVariantJSON)
}

func TestValidate_MissingRequired(t *testing.T) {
	for _, field := range []string{"product", "roaster_domain", "scraped_at", "source"} {
		t.Run(field, func(t *testing.T) {
			doc := validDoc()
			delete(doc, field)

			out := New().Validate(encode(t, doc))
			assert.False(t, out.IsValid)
			require.Len(t, out.Errors, 1)
			assert.Equal(t, entity.CategoryMissingField, out.Errors[0].Category)
			assert.Equal(t, field, out.Errors[0].Path)
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(doc map[string]any)
		category entity.ErrorCategory
		path     string
	}{
		{
			name:     "domain without a dot",
			mutate:   func(doc map[string]any) { doc["roaster_domain"] = "localhost" },
			category: entity.CategoryInvalidValue,
			path:     "roaster_domain",
		},
		{
			name:     "scraped_at not ISO-8601",
			mutate:   func(doc map[string]any) { doc["scraped_at"] = "yesterday" },
			category: entity.CategoryInvalidValue,
			path:     "scraped_at",
		},
		{
			name:     "unknown top-level field",
			mutate:   func(doc map[string]any) { doc["shop_name"] = "x" },
			category: entity.CategoryInvalidValue,
			path:     "shop_name",
		},
		{
			name:     "unknown source",
			mutate:   func(doc map[string]any) { doc["source"] = "amazon" },
			category: entity.CategoryInvalidEnum,
			path:     "source",
		},
		{
			name:     "title of wrong type",
			mutate:   func(doc map[string]any) { product(doc)["title"] = 123 },
			category: entity.CategoryTypeMismatch,
			path:     "product.title",
		},
		{
			name:     "product is not an object",
			mutate:   func(doc map[string]any) { doc["product"] = "ethiopia" },
			category: entity.CategoryTypeMismatch,
			path:     "product",
		},
		{
			name:     "variants missing",
			mutate:   func(doc map[string]any) { delete(product(doc), "variants") },
			category: entity.CategoryMissingField,
			path:     "product.variants",
		},
		{
			name:     "variants empty",
			mutate:   func(doc map[string]any) { product(doc)["variants"] = []any{} },
			category: entity.CategoryInvalidValue,
			path:     "product.variants",
		},
		{
			name:     "variant price missing",
			mutate:   func(doc map[string]any) { delete(variant(doc), "price") },
			category: entity.CategoryMissingField,
			path:     "product.variants[0].price",
		},
		{
			name:     "variant price not decimal",
			mutate:   func(doc map[string]any) { variant(doc)["price"] = "call us" },
			category: entity.CategoryInvalidValue,
			path:     "product.variants[0].price",
		},
		{
			name:     "variant id is an object",
			mutate:   func(doc map[string]any) { variant(doc)["platform_variant_id"] = map[string]any{"id": 1} },
			category: entity.CategoryTypeMismatch,
			path:     "product.variants[0].platform_variant_id",
		},
		{
			name:     "bad source url",
			mutate:   func(doc map[string]any) { product(doc)["source_url"] = "not a url" },
			category: entity.CategoryInvalidValue,
			path:     "product.source_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			out := New().Validate(encode(t, doc))
			assert.False(t, out.IsValid)
			assert.Nil(t, out.Artifact)
			require.Len(t, out.Errors, 1, "errors: %v", out.Errors)
			assert.Equal(t, tt.category, out.Errors[0].Category)
			assert.Equal(t, tt.path, out.Errors[0].Path)
		})
	}
}

func TestValidate_EnumCarriesAllowedSet(t *testing.T) {
	doc := validDoc()
	doc["source"] = "amazon"

	out := New().Validate(encode(t, doc))
	require.Len(t, out.Errors, 1)
	assert.Equal(t, []string{"shopify", "woocommerce", "firecrawl", "manual", "other"}, out.Errors[0].Allowed)
}

func TestValidate_ReportsEveryBrokenField(t *testing.T) {
	doc := validDoc()
	doc["roaster_domain"] = "localhost"
	doc["extra"] = true
	delete(variant(doc), "price")

	out := New().Validate(encode(t, doc))
	assert.False(t, out.IsValid)
	assert.Len(t, out.Errors, 3)
}

func TestValidate_NestedExtrasPreserved(t *testing.T) {
	doc := validDoc()
	product(doc)["vendor"] = "Example Roasters"
	variant(doc)["inventory_policy"] = "deny"
	doc["normalization"] = map[string]any{"is_coffee": true, "lab_score": 86.5}

	out := New().Validate(encode(t, doc))
	require.True(t, out.IsValid, "errors: %v", out.Errors)

	p := out.Artifact.Product
	assert.JSONEq(t, `"Example Roasters"`, string(p.Extra["vendor"]))
	assert.JSONEq(t, `"deny"`, string(p.Variants[0].Extra["inventory_policy"]))
	assert.JSONEq(t, `86.5`, string(out.Artifact.Normalization.Extra["lab_score"]))
	require.NotNil(t, out.Artifact.Normalization.IsCoffee)
	assert.True(t, *out.Artifact.Normalization.IsCoffee)
}

func TestValidate_NumericIDsAndLocalTimestamps(t *testing.T) {
	doc := validDoc()
	doc["scraped_at"] = "2024-05-01T10:00:00.250"
	product(doc)["platform_product_id"] = 7481234567
	variant(doc)["platform_variant_id"] = 42

	out := New().Validate(encode(t, doc))
	require.True(t, out.IsValid, "errors: %v", out.Errors)
	assert.Equal(t, entity.ID("7481234567"), out.Artifact.Product.PlatformProductID)
	assert.Equal(t, entity.ID("42"), out.Artifact.Product.Variants[0].PlatformVariantID)
	assert.Equal(t, time.UTC, out.Artifact.ScrapedAt.Location())
	assert.Equal(t, 250*time.Millisecond, time.Duration(out.Artifact.ScrapedAt.Nanosecond()))
}

func TestValidate_ScrapedAtForms(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2024-05-01T10:00:00Z", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "2024-05-01T15:30:00+05:30", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "2024-05-01T15:30:00+0530", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "2024-05-01 05:00:00-0500", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{in: "2024-05-01", want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			doc := validDoc()
			doc["scraped_at"] = tt.in

			out := New().Validate(encode(t, doc))
			require.True(t, out.IsValid, "errors: %v", out.Errors)
			assert.True(t, out.Artifact.ScrapedAt.Equal(tt.want), "got %s", out.Artifact.ScrapedAt)
			assert.Equal(t, time.UTC, out.Artifact.ScrapedAt.Location())
		})
	}
}

func TestValidate_PriceDecimalMismatchWarns(t *testing.T) {
	doc := validDoc()
	variant(doc)["price_decimal"] = 19.99

	out := New().Validate(encode(t, doc))
	require.True(t, out.IsValid)
	assert.Len(t, out.Warnings, 1)
	assert.InDelta(t, 19.99, *out.Artifact.Product.Variants[0].PriceDecimal, 1e-9)
}

func TestValidate_NotAnObject(t *testing.T) {
	for _, raw := range []string{`{`, `[1,2]`, `null`, `"artifact"`} {
		t.Run(raw, func(t *testing.T) {
			out := New().Validate([]byte(raw))
			assert.False(t, out.IsValid)
			require.Len(t, out.Errors, 1)
			assert.Equal(t, entity.CategoryTypeMismatch, out.Errors[0].Category)
			assert.Equal(t, "$", out.Errors[0].Path)
			assert.Equal(t, "unknown_unknown_unknown", out.ArtifactID)
		})
	}
}

func TestArtifactID(t *testing.T) {
	doc := validDoc()
	doc["collector_meta"] = map[string]any{"job_id": "job-7"}
	assert.Equal(t, "job-7", New().Validate(encode(t, doc)).ArtifactID)

	doc["audit"] = map[string]any{"artifact_id": "art-1"}
	assert.Equal(t, "art-1", New().Validate(encode(t, doc)).ArtifactID)

	delete(doc, "audit")
	delete(doc, "collector_meta")
	delete(doc, "roaster_domain")
	out := New().Validate(encode(t, doc))
	assert.False(t, out.IsValid)
	assert.Equal(t, "shopify_unknown_2024-05-01T10:00:00Z", out.ArtifactID)
}

func TestStats(t *testing.T) {
	v := New()
	stats := NewStats()

	bad := validDoc()
	delete(bad, "product")
	stats.Record(v.Validate(encode(t, validDoc())))
	stats.Record(v.Validate(encode(t, bad)))
	stats.Record(v.Validate([]byte(`{`)))

	snap := stats.Snapshot()
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.Valid)
	assert.Equal(t, 2, snap.Invalid)
	assert.Equal(t, 1, snap.ErrorTypes[entity.CategoryMissingField])
	assert.Equal(t, 1, snap.ErrorTypes[entity.CategoryTypeMismatch])

	stats.Reset()
	assert.Equal(t, StatsSnapshot{ErrorTypes: map[entity.ErrorCategory]int{}}, stats.Snapshot())
}
