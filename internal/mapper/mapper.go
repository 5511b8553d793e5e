// Package mapper turns validated artifacts into store upsert payloads. A
// broken variant, price or image is logged and skipped; a broken coffee
// record fails the whole artifact with ErrCoffeeMapping.
package mapper

import (
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/guard"
	"github.com/user/coffee-ingest/internal/parser"
)

// ErrCoffeeMapping wraps every failure that aborts an artifact's mapping.
var ErrCoffeeMapping = errors.New("coffee mapping failed")

const (
	defaultSpecies = string(parser.SpeciesArabica)
	defaultProcess = string(parser.ProcessOther)
	defaultRoast   = string(parser.RoastUnknown)
)

// Options configures a Mapper.
type Options struct {
	DefaultCurrency    string
	DefaultWeightGrams int
}

// Mapper builds payloads. It is safe for concurrent use; its Stats are shared.
type Mapper struct {
	grind   *parser.GrindParser
	weight  *parser.WeightParser
	roast   *parser.RoastParser
	process *parser.ProcessParser
	species *parser.SpeciesParser
	notes   *parser.NotesParser

	defaultCurrency string
	logger          *zap.Logger
	stats           *Stats
}

// New creates a Mapper.
func New(opts Options, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "mapper"))
	return &Mapper{
		grind:           parser.NewGrindParser(logger),
		weight:          parser.NewWeightParser(opts.DefaultWeightGrams),
		roast:           parser.NewRoastParser(),
		process:         parser.NewProcessParser(),
		species:         parser.NewSpeciesParser(),
		notes:           parser.NewNotesParser(),
		defaultCurrency: parser.NormalizeCurrency(opts.DefaultCurrency, parser.DefaultCurrency),
		logger:          logger,
		stats:           &Stats{},
	}
}

// Stats returns the mapper's counters.
func (m *Mapper) Stats() *Stats { return m.stats }

// Map builds the payload set for a validated artifact. Images are omitted
// when metadataOnly is set.
func (m *Mapper) Map(a *entity.Artifact, roasterID string, metadataOnly bool) (*entity.MappedArtifact, error) {
	return m.MapGuarded(a, roasterID, guard.New(metadataOnly, m.logger))
}

// MapGuarded is Map with the image gate supplied by the caller, so a whole
// run shares one guard and its counters.
func (m *Mapper) MapGuarded(a *entity.Artifact, roasterID string, g *guard.Guard) (out *entity.MappedArtifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCoffeeMapping, r)
		}
		if err != nil {
			m.stats.add(func(s *StatsSnapshot) { s.ArtifactsFailed++ })
			out = nil
		}
	}()

	if a == nil || a.Product == nil {
		return nil, fmt.Errorf("%w: artifact has no product", ErrCoffeeMapping)
	}

	grinds := m.grind.ParseMany(a.Product.Variants)
	coffee, err := m.mapCoffee(a, roasterID, grinds)
	if err != nil {
		return nil, err
	}

	out = &entity.MappedArtifact{Coffee: *coffee}
	out.Variants, out.Prices = m.mapVariants(a, grinds)
	out.Images = m.mapImages(a, g)

	m.stats.add(func(s *StatsSnapshot) { s.ArtifactsMapped++ })
	return out, nil
}

func (m *Mapper) mapCoffee(a *entity.Artifact, roasterID string, grinds []parser.Result[parser.GrindType]) (*entity.CoffeePayload, error) {
	p := a.Product
	d := m.derive(a)

	if d.name == "" {
		return nil, fmt.Errorf("%w: product %s has no usable name", ErrCoffeeMapping, p.PlatformProductID)
	}
	slug := parser.Slugify(p.Handle)
	if slug == "" {
		slug = parser.Slugify(p.Title)
	}
	if slug == "" {
		slug = parser.Slugify(d.name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: product %s has no usable slug", ErrCoffeeMapping, p.PlatformProductID)
	}

	coffee := &entity.CoffeePayload{
		RoasterID:         roasterID,
		Platform:          a.Source,
		PlatformProductID: p.PlatformProductID.String(),
		Name:              d.name,
		Slug:              slug,
		Description:       d.description,
		SourceURL:         p.SourceURL,
		BeanSpecies:       orDefault(string(d.species.Value), defaultSpecies),
		Process:           orDefault(string(d.process.Value), defaultProcess),
		RoastLevel:        orDefault(string(d.roast.Value), defaultRoast),
		Decaf:             d.decaf,
		Tags:              d.tags,
		Notes:             d.notes,
		ScrapedAt:         a.ScrapedAt,
	}
	if d.roast.Matched() {
		coffee.RoastLevelRaw = truncate(d.roast.OriginalText, maxRawText)
	}
	if d.process.Matched() {
		coffee.ProcessRaw = truncate(d.process.OriginalText, maxRawText)
	}
	if g, ok := parser.DetermineDefaultGrind(grinds); ok {
		coffee.DefaultGrind = string(g)
	}

	if n := a.Normalization; n != nil {
		coffee.IsCoffee = n.IsCoffee
		coffee.ContentHash = n.ContentHash
		coffee.RawPayloadHash = n.RawPayloadHash
		coffee.Varieties = n.Varieties
		coffee.Region = n.Region
		coffee.Country = n.Country
		coffee.AltitudeM = n.AltitudeM
		coffee.Sensory = n.Sensory
		if n.RoastLevelRaw != "" {
			coffee.RoastLevelRaw = n.RoastLevelRaw
		}
		if n.ProcessRaw != "" {
			coffee.ProcessRaw = n.ProcessRaw
		}
	}
	return coffee, nil
}

func (m *Mapper) mapImages(a *entity.Artifact, g *guard.Guard) []entity.ImagePayload {
	images := a.Product.Images
	if len(images) == 0 {
		return nil
	}
	if !g.CheckAllowed("map_images") {
		g.Skip("build_image_payload", len(images))
		m.stats.add(func(s *StatsSnapshot) { s.ImagesSkipped += len(images) })
		return nil
	}

	base, _ := url.Parse(a.Product.SourceURL)
	out := make([]entity.ImagePayload, 0, len(images))
	for i, img := range images {
		payload, ran, err := guard.Call(g, "build_image_payload", func() (entity.ImagePayload, error) {
			return buildImage(base, img, i)
		})
		if !ran {
			continue
		}
		if err != nil {
			m.logger.Warn("skipping image",
				zap.String("platform_product_id", a.Product.PlatformProductID.String()),
				zap.Int("index", i),
				zap.Error(err),
			)
			m.stats.add(func(s *StatsSnapshot) { s.ImagesSkipped++ })
			continue
		}
		out = append(out, payload)
		m.stats.add(func(s *StatsSnapshot) { s.ImagesBuilt++ })
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
