package entity

import "time"

// Outcome is the terminal state of one artifact within a batch.
type Outcome string

const (
	OutcomePersisted Outcome = "persisted" // payloads upserted
	OutcomeMapped    Outcome = "mapped"    // dry run, payloads built but not written
	OutcomeInvalid   Outcome = "invalid"   // failed validation, quarantined
	OutcomeError     Outcome = "error"     // unexpected pipeline failure, quarantined
	OutcomeFailed    Outcome = "failed"    // coffee upsert failed, quarantined
	OutcomeDuplicate Outcome = "duplicate" // identical payload processed recently
	OutcomeCancelled Outcome = "cancelled" // never started, batch context done
)

// ErrorCategory classifies a validation or pipeline error.
type ErrorCategory string

const (
	CategoryMissingField     ErrorCategory = "missing-field"
	CategoryTypeMismatch     ErrorCategory = "type-mismatch"
	CategoryInvalidValue     ErrorCategory = "invalid-value"
	CategoryInvalidEnum      ErrorCategory = "invalid-enum"
	CategoryPipelineError    ErrorCategory = "pipeline-error"
	CategoryPersistenceError ErrorCategory = "persistence-error"
)

// FieldError is one structured validation error.
type FieldError struct {
	Category ErrorCategory `json:"category"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
	Allowed  []string      `json:"allowed,omitempty"`
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return string(e.Category) + ": " + e.Message
	}
	return string(e.Category) + " at " + e.Path + ": " + e.Message
}

// InvalidArtifact mirrors the `invalid_artifacts` quarantine table.
type InvalidArtifact struct {
	ID            string        `json:"id"`
	ArtifactID    string        `json:"artifact_id"`
	RoasterID     string        `json:"roaster_id,omitempty"`
	Platform      string        `json:"platform,omitempty"`
	Reason        ErrorCategory `json:"reason"`
	Errors        []FieldError  `json:"errors"`
	Warnings      []string      `json:"warnings,omitempty"`
	RawPayload    []byte        `json:"-"`
	QuarantinedAt time.Time     `json:"quarantined_at"`
}
