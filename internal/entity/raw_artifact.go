package entity

import "time"

// RawArtifact mirrors the `raw_artifacts` PostgreSQL table.
type RawArtifact struct {
	ID             int64
	ArtifactID     string
	Source         Source
	RoasterDomain  string
	ContentHash    string
	RawPayloadHash string
	Payload        []byte // stored as JSONB
	ScrapedAt      time.Time
	CreatedAt      time.Time
}
