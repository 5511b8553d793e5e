package entity

import "encoding/json"

// Normalization holds derived fields attached to an artifact while it moves
// through the pipeline.
type Normalization struct {
	IsCoffee           *bool                      `json:"is_coffee,omitempty"`
	ContentHash        string                     `json:"content_hash,omitempty"`
	RawPayloadHash     string                     `json:"raw_payload_hash,omitempty"`
	NameClean          string                     `json:"name_clean,omitempty"`
	DescriptionMDClean string                     `json:"description_md_clean,omitempty"`
	TagsNormalized     []string                   `json:"tags_normalized,omitempty"`
	NotesRaw           []string                   `json:"notes_raw,omitempty"`
	RoastLevelRaw      string                     `json:"roast_level_raw,omitempty"`
	RoastLevelEnum     string                     `json:"roast_level_enum,omitempty"`
	ProcessRaw         string                     `json:"process_raw,omitempty"`
	ProcessEnum        string                     `json:"process_enum,omitempty"`
	BeanSpecies        string                     `json:"bean_species,omitempty"`
	Varieties          []string                   `json:"varieties,omitempty"`
	Region             string                     `json:"region,omitempty"`
	Country            string                     `json:"country,omitempty"`
	AltitudeM          *int                       `json:"altitude_m,omitempty" validate:"omitempty,gte=0"`
	Sensory            map[string]SensoryScore    `json:"sensory,omitempty" validate:"omitempty,dive"`
	ParsingWarnings    []string                   `json:"parsing_warnings,omitempty"`
	Extra              map[string]json.RawMessage `json:"-"`
}

// SensoryScore is one sensory parameter (acidity, body, sweetness, ...)
// scored 0-10 with the confidence and origin of the score.
type SensoryScore struct {
	Value      float64 `json:"value" validate:"gte=0,lte=10"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Source     string  `json:"source,omitempty"`
}

// AddWarning appends a parser diagnostic, skipping exact duplicates.
func (n *Normalization) AddWarning(msg string) {
	for _, w := range n.ParsingWarnings {
		if w == msg {
			return
		}
	}
	n.ParsingWarnings = append(n.ParsingWarnings, msg)
}
