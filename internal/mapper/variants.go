package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/parser"
	"github.com/user/coffee-ingest/pkg/utils"
)

var (
	errNoVariantID = errors.New("variant has no platform id")
	errNoImageURL  = errors.New("image has no url")
)

// provenance is the parser trace embedded in a variant's source blob.
type provenance struct {
	Value      any      `json:"value"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Warnings   []string `json:"warnings,omitempty"`
}

func trace[T any](r parser.Result[T]) provenance {
	return provenance{Value: r.Value, Confidence: r.Confidence, Source: string(r.Source), Warnings: r.Warnings}
}

// mapVariants builds one variant payload per input variant and one price
// payload per variant with a usable price. Each record is isolated: a
// failure skips that record only.
func (m *Mapper) mapVariants(a *entity.Artifact, grinds []parser.Result[parser.GrindType]) ([]entity.VariantPayload, []entity.PricePayload) {
	variants := make([]entity.VariantPayload, 0, len(a.Product.Variants))
	prices := make([]entity.PricePayload, 0, len(a.Product.Variants))

	for i := range a.Product.Variants {
		v := &a.Product.Variants[i]
		log := m.logger.With(
			zap.String("platform_product_id", a.Product.PlatformProductID.String()),
			zap.Int("variant_index", i),
		)

		var grind parser.Result[parser.GrindType]
		if i < len(grinds) {
			grind = grinds[i]
		}
		vp, err := m.safeVariant(v, grind)
		if err != nil {
			log.Warn("skipping variant", zap.Error(err))
			m.stats.add(func(s *StatsSnapshot) { s.VariantsSkipped++ })
			continue
		}
		variants = append(variants, *vp)
		m.stats.add(func(s *StatsSnapshot) { s.VariantsBuilt++ })

		if strings.TrimSpace(v.Price) == "" {
			continue
		}
		pp, err := m.safePrice(a, v, vp.Currency)
		if err != nil {
			log.Warn("skipping price", zap.Error(err))
			m.stats.add(func(s *StatsSnapshot) { s.PricesSkipped++ })
			continue
		}
		prices = append(prices, *pp)
		m.stats.add(func(s *StatsSnapshot) { s.PricesBuilt++ })
	}
	return variants, prices
}

func (m *Mapper) safeVariant(v *entity.Variant, grind parser.Result[parser.GrindType]) (out *entity.VariantPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("variant panic: %v", r)
		}
	}()

	if v.PlatformVariantID == "" {
		return nil, errNoVariantID
	}
	weight := m.weight.ParseVariant(*v)
	observe("weight", weight.Source)
	observe("grind", grind.Source)

	inStock := true
	if v.InStock != nil {
		inStock = *v.InStock
	}

	blob := map[string]any{"weight_parse": trace(weight)}
	if len(v.RawVariantJSON) > 0 && json.Valid(v.RawVariantJSON) {
		blob["raw"] = v.RawVariantJSON
	}

	out = &entity.VariantPayload{
		PlatformVariantID: v.PlatformVariantID.String(),
		Title:             v.Title,
		SKU:               v.SKU,
		WeightG:           weight.Value,
		Currency:          parser.NormalizeCurrency(v.Currency, m.defaultCurrency),
		InStock:           inStock,
	}
	if grind.Value != "" && grind.Value != parser.GrindUnknown {
		out.Grind = string(grind.Value)
		blob["grind_parse"] = trace(grind)
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("encode variant source: %w", err)
	}
	out.SourceRaw = raw
	return out, nil
}

func (m *Mapper) safePrice(a *entity.Artifact, v *entity.Variant, currency string) (out *entity.PricePayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("price panic: %v", r)
		}
	}()

	price, err := parser.ParsePrice(v.Price)
	if err != nil {
		return nil, err
	}
	out = &entity.PricePayload{
		PlatformVariantID: v.PlatformVariantID.String(),
		Price:             price,
		Currency:          currency,
		ScrapedAt:         a.ScrapedAt,
	}
	if strings.TrimSpace(v.CompareAtPrice) != "" {
		compare, err := parser.ParsePrice(v.CompareAtPrice)
		if err != nil {
			m.logger.Debug("ignoring compare-at price", zap.String("value", v.CompareAtPrice), zap.Error(err))
		} else {
			out.CompareAtPrice = &compare
		}
	}
	out.IsSale = isSale(out.Price, out.CompareAtPrice)
	return out, nil
}

// isSale reports price < compare-at; no compare-at price means no sale.
func isSale(price decimal.Decimal, compareAt *decimal.Decimal) bool {
	return compareAt != nil && price.LessThan(*compareAt)
}

func buildImage(base *url.URL, img entity.Image, index int) (entity.ImagePayload, error) {
	if strings.TrimSpace(img.URL) == "" {
		return entity.ImagePayload{}, errNoImageURL
	}
	abs, err := utils.ToAbsoluteURL(base, img.URL)
	if err != nil {
		return entity.ImagePayload{}, fmt.Errorf("image url %q: %w", img.URL, err)
	}
	order := index
	if img.Order != nil {
		order = *img.Order
	}
	return entity.ImagePayload{
		URL:       abs,
		AltText:   img.AltText,
		SortOrder: order,
		Width:     img.Width,
		Height:    img.Height,
		SourceID:  img.SourceID,
	}, nil
}
