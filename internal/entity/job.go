package entity

import "time"

// IngestJob is a queued request to run the pipeline over stored artifacts.
type IngestJob struct {
	ID           string    `json:"id"`
	RoasterID    string    `json:"roaster_id"`
	Platform     string    `json:"platform"`
	Filenames    []string  `json:"filenames"`
	MetadataOnly bool      `json:"metadata_only"`
	Force        bool      `json:"force"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
