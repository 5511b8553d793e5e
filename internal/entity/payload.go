package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CoffeePayload is the argument set for the store's upsert_coffee function.
type CoffeePayload struct {
	RoasterID         string                  `json:"roaster_id"`
	Platform          Source                  `json:"platform"`
	PlatformProductID string                  `json:"platform_product_id"`
	Name              string                  `json:"name"`
	Slug              string                  `json:"slug"`
	Description       string                  `json:"description,omitempty"`
	SourceURL         string                  `json:"source_url"`
	IsCoffee          *bool                   `json:"is_coffee,omitempty"`
	BeanSpecies       string                  `json:"bean_species"`
	Process           string                  `json:"process"`
	ProcessRaw        string                  `json:"process_raw,omitempty"`
	RoastLevel        string                  `json:"roast_level"`
	RoastLevelRaw     string                  `json:"roast_level_raw,omitempty"`
	Decaf             bool                    `json:"decaf"`
	DefaultGrind      string                  `json:"default_grind,omitempty"`
	Tags              []string                `json:"tags,omitempty"`
	Notes             []string                `json:"notes,omitempty"`
	Varieties         []string                `json:"varieties,omitempty"`
	Region            string                  `json:"region,omitempty"`
	Country           string                  `json:"country,omitempty"`
	AltitudeM         *int                    `json:"altitude_m,omitempty"`
	Sensory           map[string]SensoryScore `json:"sensory,omitempty"`
	ContentHash       string                  `json:"content_hash,omitempty"`
	RawPayloadHash    string                  `json:"raw_payload_hash,omitempty"`
	ScrapedAt         time.Time               `json:"scraped_at"`
}

// VariantPayload is the argument set for upsert_variant.
type VariantPayload struct {
	PlatformVariantID string          `json:"platform_variant_id"`
	Title             string          `json:"title,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	WeightG           int             `json:"weight_g"`
	Currency          string          `json:"currency"`
	InStock           bool            `json:"in_stock"`
	Grind             string          `json:"grind,omitempty"`
	SourceRaw         json.RawMessage `json:"source_raw,omitempty"`
}

// PricePayload is the argument set for insert_price. Prices are keyed to
// their variant by platform variant id, never by position.
type PricePayload struct {
	PlatformVariantID string           `json:"platform_variant_id"`
	Price             decimal.Decimal  `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price,omitempty"`
	Currency          string           `json:"currency"`
	IsSale            bool             `json:"is_sale"`
	ScrapedAt         time.Time        `json:"scraped_at"`
}

// ImagePayload is the argument set for upsert_coffee_image.
type ImagePayload struct {
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
	SortOrder int    `json:"sort_order"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SourceID  string `json:"source_id,omitempty"`
}

// MappedArtifact is the full payload set produced for one artifact.
type MappedArtifact struct {
	Coffee   CoffeePayload    `json:"coffee"`
	Variants []VariantPayload `json:"variants"`
	Prices   []PricePayload   `json:"prices"`
	Images   []ImagePayload   `json:"images,omitempty"`
}
