package postgres

import (
	"context"
	"fmt"

	"github.com/user/coffee-ingest/internal/entity"
)

// RawArtifactRepoImpl keeps raw artifact documents in the raw_artifacts table.
type RawArtifactRepoImpl struct {
	db DB
}

// NewRawArtifactRepo creates a new instance of RawArtifactRepoImpl.
func NewRawArtifactRepo(db DB) *RawArtifactRepoImpl {
	return &RawArtifactRepoImpl{db: db}
}

// Save stores the raw payload once per raw payload hash.
func (r *RawArtifactRepoImpl) Save(ctx context.Context, artifactID string, artifact *entity.Artifact, raw []byte) error {
	row := toRawArtifact(artifactID, artifact, raw)

	query := `
		INSERT INTO raw_artifacts (artifact_id, source, roaster_domain, content_hash, raw_payload_hash, payload, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (raw_payload_hash) DO NOTHING;
	`
	_, err := r.db.Exec(ctx, query,
		row.ArtifactID,
		string(row.Source),
		row.RoasterDomain,
		row.ContentHash,
		row.RawPayloadHash,
		row.Payload,
		row.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("insert raw artifact %s: %w", artifactID, err)
	}
	return nil
}

func toRawArtifact(artifactID string, a *entity.Artifact, raw []byte) *entity.RawArtifact {
	row := &entity.RawArtifact{
		ArtifactID:    artifactID,
		Source:        a.Source,
		RoasterDomain: a.RoasterDomain,
		Payload:       raw,
		ScrapedAt:     a.ScrapedAt,
	}
	if n := a.Normalization; n != nil {
		row.ContentHash = n.ContentHash
		row.RawPayloadHash = n.RawPayloadHash
	}
	return row
}
