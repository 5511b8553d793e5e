// Package filestore keeps quarantined artifacts as JSON files on disk, one
// file per record, for environments without a database.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/coffee-ingest/internal/entity"
)

// ErrMissingID is returned for records without an id, which names the file.
var ErrMissingID = errors.New("quarantine record has no id")

// record is the on-disk layout. The raw payload is kept verbatim as a string
// so reviewers can read it without decoding.
type record struct {
	*entity.InvalidArtifact
	RawPayload string `json:"raw_payload"`
}

// QuarantineStore writes records to <dir>/<id>.json.
type QuarantineStore struct {
	dir string
	mu  sync.Mutex
}

// NewQuarantineStore creates the directory if needed.
func NewQuarantineStore(dir string) (*QuarantineStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create quarantine dir: %w", err)
	}
	return &QuarantineStore{dir: dir}, nil
}

// Save implements repository.QuarantineRepository. The file is written to a
// temporary name first and renamed into place.
func (s *QuarantineStore) Save(ctx context.Context, rec *entity.InvalidArtifact) error {
	if rec.ID == "" {
		return ErrMissingID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.MarshalIndent(record{InvalidArtifact: rec, RawPayload: string(rec.RawPayload)}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode quarantine record %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := filepath.Join(s.dir, filepath.Base(rec.ID)+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write quarantine record %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write quarantine record %s: %w", rec.ID, err)
	}
	return nil
}

// Load reads a record back by id. RawPayload is restored from its string form.
func (s *QuarantineStore) Load(id string) (*entity.InvalidArtifact, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(id)+".json"))
	if err != nil {
		return nil, err
	}
	rec := record{InvalidArtifact: &entity.InvalidArtifact{}}
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode quarantine record %s: %w", id, err)
	}
	rec.InvalidArtifact.RawPayload = []byte(rec.RawPayload)
	return rec.InvalidArtifact, nil
}
