package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/repository"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu          sync.Mutex
	coffees     []entity.CoffeePayload
	variants    map[string]string // variant id -> coffee id
	prices      map[string][]entity.PricePayload
	images      []entity.ImagePayload
	failCoffee  bool
	failVariant map[string]bool
	seq         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		variants:    make(map[string]string),
		prices:      make(map[string][]entity.PricePayload),
		failVariant: make(map[string]bool),
	}
}

func (s *fakeStore) next(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) UpsertCoffee(_ context.Context, c *entity.CoffeePayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCoffee {
		return "", errStoreDown
	}
	s.coffees = append(s.coffees, *c)
	return s.next("coffee"), nil
}

func (s *fakeStore) UpsertVariant(_ context.Context, coffeeID string, v *entity.VariantPayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failVariant[v.PlatformVariantID] {
		return "", errStoreDown
	}
	id := s.next("variant")
	s.variants[id] = coffeeID
	return id, nil
}

func (s *fakeStore) InsertPrice(_ context.Context, variantID string, p *entity.PricePayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[variantID] = append(s.prices[variantID], *p)
	return s.next("price"), nil
}

func (s *fakeStore) UpsertCoffeeImage(_ context.Context, _ string, img *entity.ImagePayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, *img)
	return s.next("image"), nil
}

func (s *fakeStore) UpsertStats() entity.UpsertStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entity.UpsertStats{Calls: map[string]int{"upsert_coffee": len(s.coffees)}}
}

type fakeQuarantine struct {
	mu      sync.Mutex
	records []*entity.InvalidArtifact
}

func (q *fakeQuarantine) Save(_ context.Context, r *entity.InvalidArtifact) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, r)
	return nil
}

func (q *fakeQuarantine) all() []*entity.InvalidArtifact {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*entity.InvalidArtifact(nil), q.records...)
}

type fakeRawStore struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (r *fakeRawStore) Save(_ context.Context, artifactID string, _ *entity.Artifact, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		r.saved = make(map[string][]byte)
	}
	r.saved[artifactID] = raw
	return nil
}

type fakeProcessed struct {
	mu     sync.Mutex
	hashes map[string]time.Duration
}

func newFakeProcessed() *fakeProcessed {
	return &fakeProcessed{hashes: make(map[string]time.Duration)}
}

func (p *fakeProcessed) MarkProcessed(_ context.Context, hash string, expiry time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hashes[hash] = expiry
	return nil
}

func (p *fakeProcessed) IsProcessed(_ context.Context, hash string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.hashes[hash]
	return ok, nil
}

func (p *fakeProcessed) Forget(_ context.Context, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.hashes, hash)
	return nil
}

type fakeReader map[string][]byte

func (r fakeReader) ReadArtifact(_ context.Context, roasterID, platform, filename string) ([]byte, error) {
	raw, ok := r[roasterID+"/"+platform+"/"+filename]
	if !ok {
		return nil, repository.ErrArtifactNotFound
	}
	return raw, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []*entity.IngestJob
	err  error
}

func (q *fakeQueue) Push(_ context.Context, job *entity.IngestJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Pop(_ context.Context) (*entity.IngestJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	if len(q.jobs) == 0 {
		return nil, repository.ErrQueueEmpty
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *fakeQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), q.err
}
