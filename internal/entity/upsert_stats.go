package entity

// UpsertStats counts store calls per operation.
type UpsertStats struct {
	Calls    map[string]int `json:"calls"`
	Failures map[string]int `json:"failures"`
	Retries  int            `json:"retries"`
}
