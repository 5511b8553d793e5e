package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/coffee-ingest/internal/entity"
)

// QuarantineRepoImpl writes rejected artifacts to the invalid_artifacts table.
type QuarantineRepoImpl struct {
	db DB
}

// NewQuarantineRepo creates a new instance of QuarantineRepoImpl.
func NewQuarantineRepo(db DB) *QuarantineRepoImpl {
	return &QuarantineRepoImpl{db: db}
}

// Save inserts one quarantine record. The raw payload is kept as text
// because it may not be valid JSON.
func (r *QuarantineRepoImpl) Save(ctx context.Context, record *entity.InvalidArtifact) error {
	errorsJSON, err := json.Marshal(record.Errors)
	if err != nil {
		return fmt.Errorf("encode quarantine errors: %w", err)
	}

	query := `
		INSERT INTO invalid_artifacts (id, artifact_id, roaster_id, platform, reason, errors, warnings, raw_payload, quarantined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.ArtifactID,
		record.RoasterID,
		record.Platform,
		string(record.Reason),
		errorsJSON,
		record.Warnings,
		string(record.RawPayload),
		record.QuarantinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quarantine record %s: %w", record.ArtifactID, err)
	}
	return nil
}
