package entity

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Source identifies the platform or collector an artifact was scraped from.
type Source string

const (
	SourceShopify     Source = "shopify"
	SourceWooCommerce Source = "woocommerce"
	SourceFirecrawl   Source = "firecrawl"
	SourceManual      Source = "manual"
	SourceOther       Source = "other"
)

// Sources lists every accepted source value, in enum order.
var Sources = []Source{SourceShopify, SourceWooCommerce, SourceFirecrawl, SourceManual, SourceOther}

// Artifact is one scraped listing snapshot. The top level is strict: the
// validator rejects keys that are not declared here. Nested sections keep
// unknown keys in their Extra maps.
type Artifact struct {
	Source           Source            `json:"source" validate:"required,oneof=shopify woocommerce firecrawl manual other"`
	RoasterDomain    string            `json:"roaster_domain" validate:"required,domain"`
	ScrapedAt        time.Time         `json:"scraped_at" validate:"required"`
	Product          *Product          `json:"product" validate:"required"`
	Normalization    *Normalization    `json:"normalization,omitempty"`
	CollectorMeta    *CollectorMeta    `json:"collector_meta,omitempty"`
	CollectorSignals *CollectorSignals `json:"collector_signals,omitempty"`
	Audit            *Audit            `json:"audit,omitempty"`
}

// EnsureNormalization returns the artifact's normalization section, attaching
// an empty one first if needed.
func (a *Artifact) EnsureNormalization() *Normalization {
	if a.Normalization == nil {
		a.Normalization = &Normalization{}
	}
	return a.Normalization
}

var idType = reflect.TypeOf("")

// ID is a platform identifier. Shopify emits numeric ids while WooCommerce
// and crawlers emit strings, so both forms decode into the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = ID(str)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return &json.UnmarshalTypeError{Value: "non-scalar", Type: idType, Offset: 0}
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

// Product is the platform-independent listing. At least one variant is required.
type Product struct {
	PlatformProductID ID                         `json:"platform_product_id" validate:"required"`
	Title             string                     `json:"title" validate:"required"`
	Handle            string                     `json:"handle,omitempty"`
	ProductType       string                     `json:"product_type,omitempty"`
	Categories        []string                   `json:"categories,omitempty"`
	DescriptionHTML   string                     `json:"description_html,omitempty"`
	DescriptionMD     string                     `json:"description_md,omitempty"`
	SourceURL         string                     `json:"source_url" validate:"required,url"`
	Tags              []string                   `json:"tags,omitempty"`
	Images            []Image                    `json:"images,omitempty" validate:"dive"`
	Variants          []Variant                  `json:"variants" validate:"required,min=1,dive"`
	RawMeta           map[string]any             `json:"raw_meta,omitempty"`
	Extra             map[string]json.RawMessage `json:"-"`
}

// Variant is one purchasable option of a product. Platform-A listings carry
// free-text Options, platform-B listings carry name/terms Attributes.
type Variant struct {
	PlatformVariantID ID                         `json:"platform_variant_id" validate:"required"`
	Title             string                     `json:"title,omitempty"`
	SKU               string                     `json:"sku,omitempty"`
	Price             string                     `json:"price" validate:"required,decimal"`
	PriceDecimal      *float64                   `json:"price_decimal,omitempty"`
	CompareAtPrice    string                     `json:"compare_at_price,omitempty" validate:"omitempty,decimal"`
	Currency          string                     `json:"currency,omitempty"`
	InStock           *bool                      `json:"in_stock,omitempty"`
	Grams             *int                       `json:"grams,omitempty" validate:"omitempty,gte=0"`
	Weight            *float64                   `json:"weight,omitempty" validate:"omitempty,gte=0"`
	WeightUnit        string                     `json:"weight_unit,omitempty"`
	Options           []string                   `json:"options,omitempty"`
	Attributes        []Attribute                `json:"attributes,omitempty" validate:"dive"`
	RawVariantJSON    json.RawMessage            `json:"raw_variant_json,omitempty"`
	Extra             map[string]json.RawMessage `json:"-"`
}

// Attribute is a platform-B variant attribute such as {"name": "Grind", "terms": ["Espresso"]}.
type Attribute struct {
	Name  string   `json:"name" validate:"required"`
	Terms []string `json:"terms,omitempty"`
}

// Image is a product image reference.
type Image struct {
	URL      string                     `json:"url" validate:"required"`
	AltText  string                     `json:"alt_text,omitempty"`
	Order    *int                       `json:"order,omitempty"`
	Width    int                        `json:"width,omitempty"`
	Height   int                        `json:"height,omitempty"`
	SourceID string                     `json:"source_id,omitempty"`
	Extra    map[string]json.RawMessage `json:"-"`
}

// CollectorMeta describes the scrape job that produced an artifact.
type CollectorMeta struct {
	JobID            string                     `json:"job_id,omitempty"`
	Collector        string                     `json:"collector,omitempty"`
	CollectorVersion string                     `json:"collector_version,omitempty"`
	HTTPStatus       int                        `json:"http_status,omitempty"`
	DurationMS       int64                      `json:"duration_ms,omitempty"`
	Extra            map[string]json.RawMessage `json:"-"`
}

// CollectorSignals holds low-level response signals captured by the collector.
type CollectorSignals struct {
	ResponseHeaders map[string]string          `json:"response_headers,omitempty"`
	SizeBytes       int64                      `json:"size_bytes,omitempty"`
	RobotsAllowed   *bool                      `json:"robots_allowed,omitempty"`
	Extra           map[string]json.RawMessage `json:"-"`
}

// Audit carries provenance identifiers assigned upstream.
type Audit struct {
	ArtifactID string                     `json:"artifact_id,omitempty"`
	CreatedAt  string                     `json:"created_at,omitempty"`
	Importer   string                     `json:"importer,omitempty"`
	Extra      map[string]json.RawMessage `json:"-"`
}
