package request

import "encoding/json"

// SubmitBatchRequest carries raw artifact documents to process inline.
type SubmitBatchRequest struct {
	RoasterID    string            `json:"roaster_id" validate:"required"`
	Platform     string            `json:"platform" validate:"required"`
	MetadataOnly bool              `json:"metadata_only"`
	Force        bool              `json:"force"`
	Artifacts    []json.RawMessage `json:"artifacts" validate:"required,min=1"`
}

// SubmitIngestRequest names stored artifacts to process asynchronously.
type SubmitIngestRequest struct {
	RoasterID    string   `json:"roaster_id" validate:"required"`
	Platform     string   `json:"platform" validate:"required"`
	MetadataOnly bool     `json:"metadata_only"`
	Force        bool     `json:"force"`
	Filenames    []string `json:"filenames" validate:"required,min=1,dive,required"`
}
