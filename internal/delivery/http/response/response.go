package response

import "github.com/user/coffee-ingest/internal/usecase"

type SubmitIngestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

type QueueSizeResponse struct {
	Size int64 `json:"size"`
}

// BatchResponse mirrors usecase.BatchResult: one result per submitted
// artifact, in submission order, plus the run statistics.
type BatchResponse struct {
	RunID   string               `json:"run_id"`
	Results []usecase.ItemResult `json:"results"`
	Stats   usecase.RunStats     `json:"stats"`
}

// HealthResponse reports each dependency as "healthy" or "unhealthy".
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}
