// Package usecase runs artifacts through validation, classification,
// normalization, mapping and persistence, and manages queued ingest jobs.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/coffee-ingest/internal/audit"
	"github.com/user/coffee-ingest/internal/classifier"
	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/guard"
	"github.com/user/coffee-ingest/internal/mapper"
	"github.com/user/coffee-ingest/internal/repository"
	"github.com/user/coffee-ingest/internal/validator"
	"github.com/user/coffee-ingest/pkg/metrics"
)

const (
	defaultWorkers  = 4
	defaultDedupTTL = 48 * time.Hour
)

// ErrNoReader is returned by file-based runs when no artifact reader is configured.
var ErrNoReader = errors.New("no artifact reader configured")

// Dependencies are the pipeline's collaborators. Only the reader is needed
// for file-based runs; a nil Store makes every run a dry run.
type Dependencies struct {
	Store      repository.CoffeeStore
	Quarantine repository.QuarantineRepository
	RawStore   repository.RawArtifactRepository
	Processed  repository.ProcessedRepository
	Reader     repository.ArtifactReader
	Fallback   repository.ClassificationFallback
}

// Options tunes a Pipeline.
type Options struct {
	Workers            int
	DedupTTL           time.Duration
	DefaultCurrency    string
	DefaultWeightGrams int
	// MetadataOnly makes every run skip image writes.
	MetadataOnly       bool
}

// Batch is one run over in-memory artifacts.
type Batch struct {
	RoasterID    string
	Platform     string
	MetadataOnly bool
	Force        bool
	Items        [][]byte
}

// ItemResult is the outcome of one artifact. Results keep input order.
type ItemResult struct {
	Index      int                    `json:"index"`
	ArtifactID string                 `json:"artifact_id"`
	Outcome    entity.Outcome         `json:"outcome"`
	CoffeeID   string                 `json:"coffee_id,omitempty"`
	IsCoffee   *bool                  `json:"is_coffee,omitempty"`
	Errors     []entity.FieldError    `json:"errors,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	Mapped     *entity.MappedArtifact `json:"mapped,omitempty"`
}

// BatchResult is the full report of one run.
type BatchResult struct {
	RunID   string       `json:"run_id"`
	Results []ItemResult `json:"results"`
	Stats   RunStats     `json:"stats"`
}

// Pipeline processes artifact batches. It is safe for concurrent use; the
// validation and mapping counters are shared by every run.
type Pipeline struct {
	deps       Dependencies
	opts       Options
	validator  *validator.Validator
	validation *validator.Stats
	classifier *classifier.Classifier
	mapper     *mapper.Mapper
	logger     *zap.Logger
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(deps Dependencies, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = defaultDedupTTL
	}
	return &Pipeline{
		deps:       deps,
		opts:       opts,
		validator:  validator.New(),
		validation: validator.NewStats(),
		classifier: classifier.New(deps.Fallback, logger),
		mapper: mapper.New(mapper.Options{
			DefaultCurrency:    opts.DefaultCurrency,
			DefaultWeightGrams: opts.DefaultWeightGrams,
		}, logger),
		logger: logger.With(zap.String("component", "pipeline")),
	}
}

// Validate checks one raw artifact without processing it. The call is
// counted in the validation stats.
func (p *Pipeline) Validate(raw []byte) validator.Outcome {
	out := p.validator.Validate(raw)
	p.validation.Record(out)
	return out
}

// Stats returns the cumulative component counters.
func (p *Pipeline) Stats() ComponentStats {
	s := ComponentStats{
		Validation: p.validation.Snapshot(),
		Mapping:    p.mapper.Stats().Snapshot(),
	}
	if r, ok := p.deps.Store.(repository.UpsertStatsReporter); ok {
		u := r.UpsertStats()
		s.Upsert = &u
	}
	return s
}

// ResetStats zeroes the cumulative component counters.
func (p *Pipeline) ResetStats() {
	p.validation.Reset()
	p.mapper.Stats().Reset()
}

// ProcessBatch runs every item of b. It always returns one result per
// item: a broken artifact never stops the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, b Batch) *BatchResult {
	return p.execute(ctx, runMeta{
		roasterID:    b.RoasterID,
		platform:     b.Platform,
		metadataOnly: b.MetadataOnly || p.opts.MetadataOnly,
		force:        b.Force,
	}, len(b.Items), func(_ context.Context, i int) ([]byte, string, error) {
		return b.Items[i], "", nil
	})
}

// ProcessFiles reads each file through the artifact reader and runs it.
func (p *Pipeline) ProcessFiles(ctx context.Context, roasterID, platform string, filenames []string, metadataOnly bool) (*BatchResult, error) {
	return p.ProcessJob(ctx, &entity.IngestJob{
		RoasterID:    roasterID,
		Platform:     platform,
		Filenames:    filenames,
		MetadataOnly: metadataOnly,
	})
}

// ProcessJob runs a queued ingest job.
func (p *Pipeline) ProcessJob(ctx context.Context, job *entity.IngestJob) (*BatchResult, error) {
	if p.deps.Reader == nil {
		return nil, ErrNoReader
	}
	meta := runMeta{
		runID:        job.ID,
		roasterID:    job.RoasterID,
		platform:     job.Platform,
		metadataOnly: job.MetadataOnly || p.opts.MetadataOnly,
		force:        job.Force,
	}
	return p.execute(ctx, meta, len(job.Filenames), func(ctx context.Context, i int) ([]byte, string, error) {
		raw, err := p.deps.Reader.ReadArtifact(ctx, job.RoasterID, job.Platform, job.Filenames[i])
		return raw, job.Filenames[i], err
	}), nil
}

type runMeta struct {
	runID        string
	roasterID    string
	platform     string
	metadataOnly bool
	force        bool
}

// run is the state shared by the workers of one batch.
type run struct {
	runMeta
	guard  *guard.Guard
	stats  *runStats
	logger *zap.Logger
}

// loadFunc returns the raw bytes of item i and, when known, a name to use
// as the artifact id if the bytes cannot be loaded.
type loadFunc func(ctx context.Context, i int) ([]byte, string, error)

func (p *Pipeline) execute(ctx context.Context, meta runMeta, n int, load loadFunc) *BatchResult {
	if meta.runID == "" {
		meta.runID = uuid.NewString()
	}
	r := &run{
		runMeta: meta,
		guard:   guard.New(meta.metadataOnly, p.logger),
		stats:   newRunStats(meta, time.Now()),
		logger:  p.logger.With(zap.String("run_id", meta.runID), zap.String("roaster_id", meta.roasterID)),
	}
	r.logger.Info("batch started", zap.Int("artifacts", n), zap.Bool("metadata_only", meta.metadataOnly))

	results := make([]ItemResult, n)
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			results[i] = cancelledResult(i)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = cancelledResult(i)
				return nil
			}
			// An artifact that has started runs to completion.
			actx := context.WithoutCancel(ctx)
			raw, name, err := load(actx, i)
			if err != nil {
				results[i] = p.loadFailed(r, name, err)
			} else {
				results[i] = p.processOne(actx, r, raw)
			}
			results[i].Index = i
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		r.stats.record(res)
		metrics.ArtifactsProcessed.WithLabelValues(string(res.Outcome)).Inc()
	}
	stats := r.stats.snapshot(time.Now())
	stats.Guard = r.guard.Stats()
	stats.Components = p.Stats()
	metrics.BatchDuration.Observe(stats.Duration.Seconds())

	r.logger.Info("batch finished",
		zap.Int("artifacts", n),
		zap.Any("outcomes", stats.Outcomes),
		zap.Duration("duration", stats.Duration),
	)
	return &BatchResult{RunID: meta.runID, Results: results, Stats: stats}
}

func cancelledResult(i int) ItemResult {
	return ItemResult{Index: i, Outcome: entity.OutcomeCancelled}
}

func (p *Pipeline) loadFailed(r *run, name string, err error) ItemResult {
	r.logger.Warn("artifact could not be read", zap.String("file", name), zap.Error(err))
	fe := entity.FieldError{Category: entity.CategoryPipelineError, Path: "$", Message: "read artifact: " + err.Error()}
	r.stats.sample(fe)
	return ItemResult{ArtifactID: name, Outcome: entity.OutcomeError, Errors: []entity.FieldError{fe}}
}

// processOne moves a single artifact through its lifecycle. Panics and
// unexpected failures become a quarantined pipeline error.
func (p *Pipeline) processOne(ctx context.Context, r *run, raw []byte) (res ItemResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("artifact processing panicked",
				zap.String("artifact_id", res.ArtifactID),
				zap.Any("panic", rec),
			)
			res = p.pipelineError(ctx, r, res, raw, fmt.Errorf("panic: %v", rec))
		}
	}()

	v := p.validator.Validate(raw)
	p.validation.Record(v)
	res = ItemResult{ArtifactID: v.ArtifactID, Warnings: v.Warnings}
	if !v.IsValid {
		for _, e := range v.Errors {
			metrics.ValidationErrors.WithLabelValues(string(e.Category)).Inc()
			r.stats.sample(e)
		}
		res.Outcome = entity.OutcomeInvalid
		res.Errors = v.Errors
		p.quarantine(ctx, r, res, v.Errors[0].Category, raw)
		return res
	}

	a := v.Artifact
	n := a.EnsureNormalization()
	if n.IsCoffee == nil {
		c := p.classifier.Classify(ctx, a.Product, a.Source)
		if c.Resolved {
			isCoffee := c.IsCoffee
			n.IsCoffee = &isCoffee
		}
	}
	res.IsCoffee = n.IsCoffee

	p.mapper.Normalize(a)
	audit.Stamp(a, raw)
	res.Warnings = append(res.Warnings, n.ParsingWarnings...)

	if p.isDuplicate(ctx, r, n.RawPayloadHash) {
		res.Outcome = entity.OutcomeDuplicate
		return res
	}

	mapped, err := p.mapper.MapGuarded(a, r.roasterID, r.guard)
	if err != nil {
		return p.pipelineError(ctx, r, res, raw, err)
	}

	if p.deps.Store == nil {
		res.Outcome = entity.OutcomeMapped
		res.Mapped = mapped
		return res
	}

	coffeeID, err := p.persist(ctx, r, mapped)
	if err != nil {
		r.logger.Error("coffee upsert failed", zap.String("artifact_id", res.ArtifactID), zap.Error(err))
		fe := entity.FieldError{Category: entity.CategoryPersistenceError, Path: "$", Message: err.Error()}
		r.stats.sample(fe)
		res.Outcome = entity.OutcomeFailed
		res.Errors = []entity.FieldError{fe}
		p.quarantine(ctx, r, res, entity.CategoryPersistenceError, raw)
		return res
	}
	res.CoffeeID = coffeeID
	res.Outcome = entity.OutcomePersisted

	p.saveRaw(ctx, r, res.ArtifactID, a, raw)
	p.markProcessed(ctx, r, n.RawPayloadHash)
	return res
}

func (p *Pipeline) pipelineError(ctx context.Context, r *run, res ItemResult, raw []byte, err error) ItemResult {
	fe := entity.FieldError{Category: entity.CategoryPipelineError, Path: "$", Message: err.Error()}
	r.stats.sample(fe)
	res.Outcome = entity.OutcomeError
	res.Errors = append(res.Errors, fe)
	res.Mapped = nil
	if res.ArtifactID == "" {
		res.ArtifactID = artifactIDOf(raw)
	}
	p.quarantine(ctx, r, res, entity.CategoryPipelineError, raw)
	return res
}

// quarantine writes the failed artifact to the quarantine store. A failed
// write is logged; the batch goes on.
func (p *Pipeline) quarantine(ctx context.Context, r *run, res ItemResult, reason entity.ErrorCategory, raw []byte) {
	record := &entity.InvalidArtifact{
		ID:            uuid.NewString(),
		ArtifactID:    res.ArtifactID,
		RoasterID:     r.roasterID,
		Platform:      r.platform,
		Reason:        reason,
		Errors:        res.Errors,
		Warnings:      res.Warnings,
		RawPayload:    raw,
		QuarantinedAt: time.Now().UTC(),
	}
	if p.deps.Quarantine == nil {
		r.logger.Warn("artifact rejected, no quarantine store configured",
			zap.String("artifact_id", record.ArtifactID),
			zap.String("reason", string(reason)),
		)
		return
	}
	if err := p.deps.Quarantine.Save(ctx, record); err != nil {
		r.logger.Error("failed to quarantine artifact",
			zap.String("artifact_id", record.ArtifactID),
			zap.Error(err),
		)
	}
}

// isDuplicate consults the processed-payload store. Forced runs forget the
// hash instead. Store errors never block processing.
func (p *Pipeline) isDuplicate(ctx context.Context, r *run, hash string) bool {
	if p.deps.Processed == nil || hash == "" {
		return false
	}
	if r.force {
		if err := p.deps.Processed.Forget(ctx, hash); err != nil {
			r.logger.Warn("failed to forget processed payload", zap.String("hash", hash), zap.Error(err))
		}
		return false
	}
	seen, err := p.deps.Processed.IsProcessed(ctx, hash)
	if err != nil {
		r.logger.Warn("processed-payload check failed", zap.String("hash", hash), zap.Error(err))
		return false
	}
	return seen
}

func (p *Pipeline) markProcessed(ctx context.Context, r *run, hash string) {
	if p.deps.Processed == nil || hash == "" {
		return
	}
	if err := p.deps.Processed.MarkProcessed(ctx, hash, p.opts.DedupTTL); err != nil {
		r.logger.Warn("failed to mark payload processed", zap.String("hash", hash), zap.Error(err))
	}
}

// saveRaw stores the raw document for audit once both hashes check out.
func (p *Pipeline) saveRaw(ctx context.Context, r *run, artifactID string, a *entity.Artifact, raw []byte) {
	if p.deps.RawStore == nil {
		return
	}
	if err := audit.Verify(a); err != nil {
		r.logger.Warn("raw artifact not stored", zap.String("artifact_id", artifactID), zap.Error(err))
		return
	}
	if err := p.deps.RawStore.Save(ctx, artifactID, a, raw); err != nil {
		r.logger.Error("failed to store raw artifact", zap.String("artifact_id", artifactID), zap.Error(err))
	}
}

// persist upserts the coffee and then its children. Only a coffee failure
// is returned; variant, price and image failures skip that record.
func (p *Pipeline) persist(ctx context.Context, r *run, m *entity.MappedArtifact) (string, error) {
	coffeeID, err := p.deps.Store.UpsertCoffee(ctx, &m.Coffee)
	if err != nil {
		return "", err
	}
	log := r.logger.With(zap.String("coffee_id", coffeeID))

	variantIDs := make(map[string]string, len(m.Variants))
	for i := range m.Variants {
		v := &m.Variants[i]
		id, err := isolated(func() (string, error) { return p.deps.Store.UpsertVariant(ctx, coffeeID, v) })
		if err != nil {
			log.Warn("variant upsert failed", zap.String("platform_variant_id", v.PlatformVariantID), zap.Error(err))
			r.stats.recordFailure("upsert_variant")
			continue
		}
		variantIDs[v.PlatformVariantID] = id
	}

	for i := range m.Prices {
		pr := &m.Prices[i]
		variantID, ok := variantIDs[pr.PlatformVariantID]
		if !ok {
			log.Debug("price skipped, variant not stored", zap.String("platform_variant_id", pr.PlatformVariantID))
			r.stats.recordFailure("insert_price")
			continue
		}
		if _, err := isolated(func() (string, error) { return p.deps.Store.InsertPrice(ctx, variantID, pr) }); err != nil {
			log.Warn("price insert failed", zap.String("platform_variant_id", pr.PlatformVariantID), zap.Error(err))
			r.stats.recordFailure("insert_price")
		}
	}

	for i := range m.Images {
		img := &m.Images[i]
		_, err := r.guard.Do("upsert_coffee_image", func() (any, error) {
			return isolated(func() (string, error) { return p.deps.Store.UpsertCoffeeImage(ctx, coffeeID, img) })
		})
		if err != nil {
			log.Warn("image upsert failed", zap.String("url", img.URL), zap.Error(err))
			r.stats.recordFailure("upsert_coffee_image")
		}
	}
	return coffeeID, nil
}

// isolated runs one child upsert, turning a panic into an error.
func isolated(fn func() (string, error)) (id string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}

func artifactIDOf(raw []byte) string {
	var doc map[string]json.RawMessage
	if json.Unmarshal(raw, &doc) != nil {
		doc = nil
	}
	return validator.ArtifactID(doc)
}
