package mapper

import (
	"strings"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/parser"
	"github.com/user/coffee-ingest/pkg/metrics"
)

// maxRawText bounds the raw roast/process text kept on the payload.
const maxRawText = 200

// derived holds the product-level values computed from an artifact.
// Values already present on the normalization section take precedence.
type derived struct {
	name        string
	description string
	tags        []string
	notes       []string
	roast       parser.Result[parser.RoastLevel]
	process     parser.Result[parser.ProcessMethod]
	species     parser.Result[parser.BeanSpecies]
	decaf       bool
	warnings    []string

	notesSource parser.Source // empty when notes came from normalization
}

func (m *Mapper) derive(a *entity.Artifact) derived {
	p := a.Product
	n := a.Normalization
	if n == nil {
		n = &entity.Normalization{}
	}

	d := derived{name: n.NameClean, description: n.DescriptionMDClean, tags: n.TagsNormalized, notes: n.NotesRaw}
	if d.name == "" {
		d.name = parser.CleanName(p.Title)
	}
	if d.description == "" {
		d.description = strings.TrimSpace(p.DescriptionMD)
	}
	if d.description == "" {
		d.description = parser.HTMLToText(p.DescriptionHTML)
	}
	if d.tags == nil {
		d.tags = parser.NormalizeTags(p.Tags)
	}
	if d.notes == nil {
		r := m.notes.Parse(d.description, p.Tags)
		d.notesSource = r.Source
		d.notes = r.Value
		d.addWarnings("notes", r.Warnings)
	}

	text := parser.ProductText{Title: p.Title, Tags: p.Tags, Description: d.description}

	if v := parser.RoastLevel(n.RoastLevelEnum); isRoastLevel(v) {
		d.roast = parser.Result[parser.RoastLevel]{Value: v, Confidence: 1, Source: parser.SourceNormalization, OriginalText: n.RoastLevelRaw}
	} else {
		text.Raw = n.RoastLevelRaw
		d.roast = m.roast.Parse(text)
		d.addWarnings("roast", d.roast.Warnings)
	}

	if v := parser.ProcessMethod(n.ProcessEnum); isProcess(v) {
		d.process = parser.Result[parser.ProcessMethod]{Value: v, Confidence: 1, Source: parser.SourceNormalization, OriginalText: n.ProcessRaw}
	} else {
		text.Raw = n.ProcessRaw
		d.process = m.process.Parse(text)
		d.addWarnings("process", d.process.Warnings)
	}

	text.Raw = strings.ReplaceAll(n.BeanSpecies, "_", " ")
	d.species = m.species.Parse(text)

	d.decaf = parser.DetectDecaf(p.Title, d.description, strings.Join(p.Tags, " "))
	return d
}

// record reports parser provenance to metrics. Only Normalize calls it, so
// mapping an already normalized artifact does not count a parse twice.
func (d *derived) record() {
	if d.notesSource != "" {
		observe("notes", d.notesSource)
	}
	observe("roast", d.roast.Source)
	observe("process", d.process.Source)
	observe("species", d.species.Source)
}

func (d *derived) addWarnings(parserName string, warnings []string) {
	for _, w := range warnings {
		d.warnings = append(d.warnings, parserName+": "+w)
	}
}

// Normalize attaches the derived values to the artifact's normalization
// section, filling only fields that are still empty, and records parser
// diagnostics as parsing warnings.
func (m *Mapper) Normalize(a *entity.Artifact) {
	if a == nil || a.Product == nil {
		return
	}
	d := m.derive(a)
	d.record()
	n := a.EnsureNormalization()

	if n.NameClean == "" {
		n.NameClean = d.name
	}
	if n.DescriptionMDClean == "" {
		n.DescriptionMDClean = d.description
	}
	if n.TagsNormalized == nil {
		n.TagsNormalized = d.tags
	}
	if n.NotesRaw == nil {
		n.NotesRaw = d.notes
	}
	if n.RoastLevelEnum == "" {
		n.RoastLevelEnum = string(d.roast.Value)
		if n.RoastLevelRaw == "" && d.roast.Matched() {
			n.RoastLevelRaw = truncate(d.roast.OriginalText, maxRawText)
		}
	}
	if n.ProcessEnum == "" {
		n.ProcessEnum = string(d.process.Value)
		if n.ProcessRaw == "" && d.process.Matched() {
			n.ProcessRaw = truncate(d.process.OriginalText, maxRawText)
		}
	}
	if n.BeanSpecies == "" {
		n.BeanSpecies = string(d.species.Value)
	}
	for _, w := range d.warnings {
		n.AddWarning(w)
	}
}

func isRoastLevel(v parser.RoastLevel) bool {
	switch v {
	case parser.RoastLight, parser.RoastLightMedium, parser.RoastMedium, parser.RoastMediumDark, parser.RoastDark:
		return true
	}
	return false
}

func isProcess(v parser.ProcessMethod) bool {
	switch v {
	case parser.ProcessWashed, parser.ProcessNatural, parser.ProcessHoney, parser.ProcessAnaerobic,
		parser.ProcessMonsooned, parser.ProcessWetHulled, parser.ProcessCarbonicMaceration:
		return true
	}
	return false
}

func observe(parserName string, source parser.Source) {
	metrics.ParserResults.WithLabelValues(parserName, string(source)).Inc()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
